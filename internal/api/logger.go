package api

import (
	"io"
	"os"
	"path/filepath"

	"github.com/siteops/opsflow-gin/internal/config"
	"github.com/sirupsen/logrus"
)

var defaultLogger *logrus.Logger

// timestampFormat 日志时间戳格式,与日志聚合侧的解析器保持一致
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// NewLoggerFromConfig 根据配置创建日志记录器
// format=json 用于生产聚合,其余落回带时间戳的文本格式;
// output 支持 stdout/file/both,file 写入 logs/opsflow-gin.log
func NewLoggerFromConfig(cfg *config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var writers []io.Writer
	if cfg.Output == "stdout" || cfg.Output == "both" {
		writers = append(writers, os.Stdout)
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(filepath.Join(logDir, "opsflow-gin.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	logger.SetOutput(io.MultiWriter(writers...))

	logger.AddHook(&serviceFieldHook{service: "opsflow-gin"})

	return logger, nil
}

// serviceFieldHook 为每条日志附加 service 字段,供日志聚合按服务过滤
type serviceFieldHook struct {
	service string
}

func (h *serviceFieldHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceFieldHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	return nil
}

// GetLogger 返回进程级默认日志记录器 (请求日志中间件使用)
func GetLogger() *logrus.Logger {
	if defaultLogger == nil {
		defaultLogger = logrus.New()
		defaultLogger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
		defaultLogger.SetLevel(logrus.InfoLevel)
		defaultLogger.SetOutput(os.Stdout)
	}
	return defaultLogger
}

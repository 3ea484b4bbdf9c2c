package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siteops/opsflow-gin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults 测试无配置文件时的默认值
func TestLoad_Defaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "opsflow", cfg.Database.DBName)
	assert.Equal(t, 5, cfg.Notify.Workers)
	assert.Equal(t, 3, cfg.Notify.MaxRetries)
	assert.Equal(t, 5, cfg.Notify.PollInterval)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

// TestLoad_FromFile 测试配置文件覆盖默认值
func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `env: production
server:
  host: 127.0.0.1
  port: 9090
database:
  dbname: opsflow_test
notify:
  workers: 2
  poll_interval: 1
oidc:
  issuer: https://sso.site.example/realms/ops
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.True(t, config.IsProduction(cfg))
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "opsflow_test", cfg.Database.DBName)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, 1, cfg.Notify.PollInterval)
	assert.Equal(t, "https://sso.site.example/realms/ops", cfg.OIDC.Issuer)

	// 未覆盖的字段保留默认值
	assert.Equal(t, 3, cfg.Notify.MaxRetries)
	assert.Equal(t, 25, cfg.SMTP.Port)
}

// TestLoad_MissingFile 测试指定的配置文件不存在时报错
func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestLoad_EnvOverride 测试环境变量覆盖
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "18080")
	t.Setenv("APP_DATABASE_PASSWORD", "secret")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 18080, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
}

// TestIsProduction 测试生产环境判定
func TestIsProduction(t *testing.T) {
	assert.False(t, config.IsProduction(nil))
	assert.False(t, config.IsProduction(&config.Config{Env: "development"}))
	assert.True(t, config.IsProduction(&config.Config{Env: "production"}))
}

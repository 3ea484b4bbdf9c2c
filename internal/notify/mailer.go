package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/siteops/opsflow-gin/internal/config"
)

// Message 一封待发送的通知
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender 通知发送端
type Sender interface {
	Send(msg *Message) error
}

// smtpSender SMTP 发送端
type smtpSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender 创建 SMTP 发送端
func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

// Send 发送邮件
func (s *smtpSender) Send(msg *Message) error {
	if len(msg.To) == 0 {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

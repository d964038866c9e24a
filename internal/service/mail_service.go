package service

import (
	"fmt"
	"helpmarket_backend/internal/config"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

// Mailer 邮件发送
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(b.String()))
}

// noopMailer 邮件关闭时使用
type noopMailer struct{}

func (noopMailer) Send(string, string, string) error { return nil }

// NewMailer 按配置返回 SMTP 或空实现
func NewMailer(cfg config.MailConfig) Mailer {
	if !cfg.Enabled || cfg.Host == "" {
		return noopMailer{}
	}
	return NewSMTPMailer(cfg)
}

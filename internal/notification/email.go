package notification

import (
	"context"
	"fmt"
	"net/smtp"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	AppName  string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends verification codes over SMTP.
type SMTPSender struct {
	config   EmailConfig
	sendMail sendMailFunc
}

func NewSMTPSender(config EmailConfig) *SMTPSender {
	return &SMTPSender{config: config, sendMail: smtp.SendMail}
}

func (s *SMTPSender) SendVerificationCode(ctx context.Context, email, username, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(VerificationMessage(s.config.AppName, email, username, code))
}

func (s *SMTPSender) send(m Message) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, m.To, m.Subject, m.HTML)

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return s.sendMail(addr, auth, s.config.From, []string{m.To}, []byte(msg))
}

var _ Sender = (*SMTPSender)(nil)

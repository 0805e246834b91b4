// Package notification delivers verification codes to users.
package notification

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender delivers a verification code to an email address.
type Sender interface {
	SendVerificationCode(ctx context.Context, email, username, code string) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// VerificationMessage renders the verification code email.
func VerificationMessage(appName, email, username, code string) Message {
	return Message{
		To:      email,
		Subject: fmt.Sprintf("%s | Verification Code", appName),
		HTML: fmt.Sprintf(`<html><body>
		<h2>Hello %s,</h2>
		<p>Thank you for registering. Please use the following verification code to complete your registration:</p>
		<p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p>
		<p>This code expires in one hour.</p>
		<p>If you did not request this code, please ignore this email.</p>
	</body></html>`, username, code),
	}
}

// LogSender writes codes to the log instead of sending email.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender for local development.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerificationCode(ctx context.Context, email, username, code string) error {
	s.logger.InfoContext(ctx, "verification code", "email", email, "username", username, "code", code)
	return nil
}

var _ Sender = (*LogSender)(nil)

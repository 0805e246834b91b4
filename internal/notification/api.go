package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APISender posts verification emails to a JSON email API
// (Resend-compatible request body).
type APISender struct {
	client  *http.Client
	url     string
	apiKey  string
	from    string
	appName string
}

// APISenderOption configures APISender.
type APISenderOption func(*APISender)

// WithHTTPClient sets the HTTP client (default: 10s timeout).
func WithHTTPClient(c *http.Client) APISenderOption {
	return func(s *APISender) {
		s.client = c
	}
}

// NewAPISender returns a Sender that POSTs to url with a bearer apiKey.
func NewAPISender(url, apiKey string, config EmailConfig, opts ...APISenderOption) *APISender {
	from := config.From
	if config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", config.FromName, config.From)
	}
	s := &APISender{
		client:  &http.Client{Timeout: 10 * time.Second},
		url:     url,
		apiKey:  apiKey,
		from:    from,
		appName: config.AppName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type apiEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *APISender) SendVerificationCode(ctx context.Context, email, username, code string) error {
	m := VerificationMessage(s.appName, email, username, code)
	body, err := json.Marshal(apiEmail{
		From:    s.from,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx response from the email API.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email api returned status %d", e.Status)
}

var _ Sender = (*APISender)(nil)

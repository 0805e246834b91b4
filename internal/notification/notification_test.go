package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
)

func TestVerificationMessage(t *testing.T) {
	m := VerificationMessage("Anon Inbox", "alice@example.com", "alice", "482913")

	if m.To != "alice@example.com" {
		t.Errorf("To = %q", m.To)
	}
	if m.Subject != "Anon Inbox | Verification Code" {
		t.Errorf("Subject = %q", m.Subject)
	}
	if !strings.Contains(m.HTML, "Hello alice,") || !strings.Contains(m.HTML, "482913") {
		t.Errorf("HTML missing username or code: %s", m.HTML)
	}
}

func TestAPISender_Success(t *testing.T) {
	var got apiEmail
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	s := NewAPISender(srv.URL, "key-123", EmailConfig{From: "no-reply@example.com", FromName: "Anon", AppName: "Anon"})
	if err := s.SendVerificationCode(context.Background(), "alice@example.com", "alice", "482913"); err != nil {
		t.Fatalf("SendVerificationCode error: %v", err)
	}

	if authHeader != "Bearer key-123" {
		t.Errorf("Authorization = %q", authHeader)
	}
	if got.From != "Anon <no-reply@example.com>" {
		t.Errorf("From = %q", got.From)
	}
	if len(got.To) != 1 || got.To[0] != "alice@example.com" {
		t.Errorf("To = %v", got.To)
	}
	if !strings.Contains(got.HTML, "482913") {
		t.Error("body missing code")
	}
}

func TestAPISender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewAPISender(srv.URL, "key", EmailConfig{From: "no-reply@example.com"})
	err := s.SendVerificationCode(context.Background(), "a@x.com", "a", "111111")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d", statusErr.Status)
	}
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s := NewSMTPSender(EmailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "user",
		Password: "pass",
		From:     "no-reply@example.com",
		FromName: "Anon Inbox",
		AppName:  "Anon Inbox",
	})
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		if a == nil {
			t.Error("expected PLAIN auth when a user is configured")
		}
		return nil
	}

	if err := s.SendVerificationCode(context.Background(), "alice@example.com", "alice", "482913"); err != nil {
		t.Fatalf("SendVerificationCode error: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "no-reply@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "alice@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	for _, want := range []string{
		"From: Anon Inbox <no-reply@example.com>\r\n",
		"Subject: Anon Inbox | Verification Code\r\n",
		"482913",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSMTPSender_PropagatesError(t *testing.T) {
	s := NewSMTPSender(EmailConfig{Host: "smtp.example.com", Port: 25, From: "a@x.com"})
	boom := errors.New("connection refused")
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	if err := s.SendVerificationCode(context.Background(), "b@x.com", "b", "123456"); !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := s.SendVerificationCode(context.Background(), "a@x.com", "alice", "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"code":"123456"`) {
		t.Errorf("log missing code: %s", buf.String())
	}
}

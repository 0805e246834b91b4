// Package inbox implements the message-acceptance flag and the anonymous
// message collection owned by each account.
package inbox

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/metrics"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
)

// SendInput is an anonymous message submission.
type SendInput struct {
	Username string `json:"username" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

// Service handles message intake, retrieval and deletion.
type Service struct {
	store    repository.AccountStore
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new inbox service.
func NewService(store repository.AccountStore, validate *validation.Validator, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
}

// SetAccepting stores the caller's acceptance flag and returns the account.
// Messages already received are unaffected.
func (s *Service) SetAccepting(ctx context.Context, accountID string, accept bool) (*domain.Account, error) {
	account, err := s.store.SetAcceptingMessages(ctx, accountID, accept)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "message acceptance updated", "account_id", accountID, "accepting", accept)
	return account, nil
}

// IsAccepting returns the stored acceptance flag.
func (s *Service) IsAccepting(ctx context.Context, accountID string) (bool, error) {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.IsAcceptingMessages, nil
}

// Send delivers an anonymous message to username.
// The message is discarded if the recipient is not accepting messages.
func (s *Service) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	recipient, err := s.store.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if !recipient.IsAcceptingMessages {
		metrics.Messages.WithLabelValues(metrics.OutcomeNotAccepting).Inc()
		return nil, domain.ErrNotAcceptingMessages
	}

	msg := &domain.Message{Content: in.Content, CreatedAt: s.now()}
	if err := s.store.AppendMessage(ctx, recipient.ID, msg); err != nil {
		return nil, err
	}

	metrics.Messages.WithLabelValues(metrics.OutcomeDelivered).Inc()
	s.logger.InfoContext(ctx, "message delivered", "account_id", recipient.ID, "message_id", msg.ID)
	return msg, nil
}

// List returns the caller's messages, newest first.
func (s *Service) List(ctx context.Context, accountID string) ([]domain.Message, error) {
	messages, err := s.store.ListMessages(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return domain.SortNewestFirst(messages), nil
}

// Delete removes one of the caller's messages.
func (s *Service) Delete(ctx context.Context, accountID, messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return domain.ErrMessageNotFound
	}
	if err := s.store.DeleteMessage(ctx, accountID, messageID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "message deleted", "account_id", accountID, "message_id", messageID)
	return nil
}

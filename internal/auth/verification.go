package auth

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/metrics"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
)

// VerifyInput is the code verification request.
type VerifyInput struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

// VerificationService checks verification codes.
type VerificationService struct {
	store    repository.AccountStore
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

func NewVerificationService(store repository.AccountStore, validate *validation.Validator, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		store:    store,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify marks the account verified when code matches and has not expired.
// The stored code is left in place after use.
func (s *VerificationService) Verify(ctx context.Context, in VerifyInput) (*domain.Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	username, err := url.PathUnescape(in.Username)
	if err != nil {
		username = in.Username
	}

	account, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if account.CodeExpired(s.now()) {
		metrics.Verifications.WithLabelValues(metrics.OutcomeExpired).Inc()
		return nil, domain.ErrCodeExpired
	}
	if !account.CodeMatches(in.Code) {
		metrics.Verifications.WithLabelValues(metrics.OutcomeIncorrect).Inc()
		return nil, domain.ErrCodeIncorrect
	}

	if err := s.store.MarkVerified(ctx, account.ID); err != nil {
		return nil, err
	}
	account.IsVerified = true

	metrics.Verifications.WithLabelValues(metrics.OutcomeVerified).Inc()
	s.logger.InfoContext(ctx, "account verified", "account_id", account.ID, "username", account.Username)
	return account, nil
}

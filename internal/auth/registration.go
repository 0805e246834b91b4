package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/metrics"
	"github.com/tendant/anon-inbox/internal/notification"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
)

// RegisterInput is the sign-up request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=2,max=20,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegistrationService creates pending accounts and sends their codes.
type RegistrationService struct {
	store    repository.AccountStore
	codes    *CodeGenerator
	sender   notification.Sender
	validate *validation.Validator
	logger   *slog.Logger
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(
	store repository.AccountStore,
	codes *CodeGenerator,
	sender notification.Sender,
	validate *validation.Validator,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		store:    store,
		codes:    codes,
		sender:   sender,
		validate: validate,
		logger:   logger,
	}
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates or refreshes an unverified account and emails its code.
//
// An unverified account with the same email is overwritten in place with the
// new username, password and code. If the email cannot be sent the account
// stays persisted and domain.ErrEmailDelivery is returned.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		metrics.Registrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	if _, err := s.store.GetVerifiedByUsername(ctx, in.Username); err == nil {
		metrics.Registrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsVerified {
		metrics.Registrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, domain.ErrEmailTaken
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, expiry, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	var account *domain.Account
	outcome := metrics.OutcomeCreated
	if existing != nil {
		existing.Username = in.Username
		existing.PasswordHash = hash
		existing.VerifyCode = code
		existing.VerifyCodeExpiry = expiry
		if err := s.store.UpdatePending(ctx, existing); err != nil {
			return nil, err
		}
		account = existing
		outcome = metrics.OutcomeReregistered
	} else {
		account = &domain.Account{
			Username:            in.Username,
			Email:               in.Email,
			PasswordHash:        hash,
			VerifyCode:          code,
			VerifyCodeExpiry:    expiry,
			IsVerified:          false,
			IsAcceptingMessages: true,
			Messages:            []domain.Message{},
		}
		if err := s.store.Create(ctx, account); err != nil {
			return nil, err
		}
	}
	metrics.Registrations.WithLabelValues(outcome).Inc()
	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID, "username", account.Username, "outcome", outcome)

	if err := s.sender.SendVerificationCode(ctx, account.Email, account.Username, code); err != nil {
		metrics.VerificationEmails.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.ErrorContext(ctx, "verification email failed", "account_id", account.ID, "error", err)
		return account, fmt.Errorf("%w: %v", domain.ErrEmailDelivery, err)
	}
	metrics.VerificationEmails.WithLabelValues(metrics.OutcomeSent).Inc()
	s.logger.InfoContext(ctx, "verification email sent", "account_id", account.ID)

	return account, nil
}

// CheckUsername reports whether username is free to verify.
// Pending registrations do not hold a name.
func (s *RegistrationService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if err := s.validate.Username(username); err != nil {
		return false, err
	}
	_, err := s.store.GetVerifiedByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, domain.ErrAccountNotFound):
		return true, nil
	default:
		return false, err
	}
}

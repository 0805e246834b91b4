package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
)

// SignInInput is the credential sign-in request.
type SignInInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// PasswordService authenticates accounts by email or username and password.
type PasswordService struct {
	store    repository.AccountStore
	validate *validation.Validator
}

func NewPasswordService(store repository.AccountStore, validate *validation.Validator) *PasswordService {
	return &PasswordService{store: store, validate: validate}
}

// Authenticate returns the account for identifier if it is verified and
// password matches.
func (s *PasswordService) Authenticate(ctx context.Context, in SignInInput) (*domain.Account, error) {
	in.Identifier = strings.TrimSpace(in.Identifier)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if strings.Contains(in.Identifier, "@") {
		in.Identifier = NormalizeEmail(in.Identifier)
	}

	account, err := s.store.GetByIdentifier(ctx, in.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrNoSuchUser
		}
		return nil, err
	}

	if !account.IsVerified {
		return nil, domain.ErrNotVerified
	}
	if !VerifyPassword(in.Password, account.PasswordHash) {
		return nil, domain.ErrWrongPassword
	}
	return account, nil
}

// Package repository persists accounts and their messages.
//
// Three AccountStore implementations share one contract: PostgresAccountStore
// (lib/pq, schema managed by goose), MongoAccountStore (messages embedded as
// sub-documents) and MemoryAccountStore (tests and local development).
package repository

import (
	"context"

	"github.com/tendant/anon-inbox/internal/domain"
)

// AccountStore is the credential store used by the auth and inbox services.
//
// Lookups return domain.ErrAccountNotFound when nothing matches. Account
// lookups do not populate Messages; use ListMessages for that.
type AccountStore interface {
	// Create inserts a new account and assigns its ID.
	// Returns domain.ErrEmailTaken or domain.ErrUsernameTaken on a uniqueness violation.
	Create(ctx context.Context, account *domain.Account) error

	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetByUsername returns the account holding username, preferring a
	// verified account over pending ones.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// GetVerifiedByUsername only matches verified accounts.
	GetVerifiedByUsername(ctx context.Context, username string) (*domain.Account, error)

	// GetByIdentifier matches identifier against email or username.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)

	// UpdatePending rewrites the username, password hash and verification
	// code of an existing account in place.
	UpdatePending(ctx context.Context, account *domain.Account) error

	// MarkVerified flips the account to verified.
	// Returns domain.ErrUsernameTaken if another verified account holds the name.
	MarkVerified(ctx context.Context, id string) error

	// SetAcceptingMessages stores the flag and returns the updated account.
	SetAcceptingMessages(ctx context.Context, id string, accept bool) (*domain.Account, error)

	// AppendMessage adds msg to the account's collection and assigns its ID.
	AppendMessage(ctx context.Context, accountID string, msg *domain.Message) error

	// ListMessages returns the account's messages in storage order.
	ListMessages(ctx context.Context, accountID string) ([]domain.Message, error)

	// DeleteMessage removes one message owned by accountID.
	// Returns domain.ErrMessageNotFound when nothing was removed.
	DeleteMessage(ctx context.Context, accountID, messageID string) error
}

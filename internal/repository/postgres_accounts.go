package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/anon-inbox/internal/domain"
)

const accountColumns = `id, username, email, password_hash, verify_code, verify_code_expiry,
       is_verified, is_accepting_messages, created_at`

// PostgresAccountStore handles account and message persistence in Postgres.
type PostgresAccountStore struct {
	db *sql.DB
}

// NewPostgresAccountStore creates a new Postgres-backed account store.
func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

var _ AccountStore = (*PostgresAccountStore)(nil)

// Create creates a new account.
func (s *PostgresAccountStore) Create(ctx context.Context, account *domain.Account) error {
	id := uuid.New()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO accounts (id, username, email, password_hash, verify_code, verify_code_expiry,
		                      is_verified, is_accepting_messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		id, account.Username, account.Email, account.PasswordHash,
		account.VerifyCode, account.VerifyCodeExpiry,
		account.IsVerified, account.IsAcceptingMessages, account.CreatedAt,
	)
	if err != nil {
		return mapConstraintError(err)
	}

	account.ID = id.String()
	return nil
}

// GetByID retrieves an account by ID.
func (s *PostgresAccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrAccountNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an account by email.
func (s *PostgresAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, email))
}

// GetByUsername retrieves an account by username, verified accounts first.
func (s *PostgresAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE username = $1
		ORDER BY is_verified DESC, created_at ASC
		LIMIT 1
	`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, username))
}

// GetVerifiedByUsername retrieves a verified account by username.
func (s *PostgresAccountStore) GetVerifiedByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 AND is_verified`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, username))
}

// GetByIdentifier retrieves an account by email or username.
func (s *PostgresAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1 OR username = $1
		ORDER BY is_verified DESC, created_at ASC
		LIMIT 1
	`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, identifier))
}

// UpdatePending rewrites the pending registration fields of an account.
func (s *PostgresAccountStore) UpdatePending(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET username = $2, password_hash = $3, verify_code = $4, verify_code_expiry = $5,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		account.ID, account.Username, account.PasswordHash, account.VerifyCode, account.VerifyCodeExpiry,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return expectRows(result, domain.ErrAccountNotFound)
}

// MarkVerified marks an account as verified.
func (s *PostgresAccountStore) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE accounts SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapConstraintError(err)
	}
	return expectRows(result, domain.ErrAccountNotFound)
}

// SetAcceptingMessages updates the message acceptance flag.
func (s *PostgresAccountStore) SetAcceptingMessages(ctx context.Context, id string, accept bool) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrAccountNotFound
	}
	query := `
		UPDATE accounts
		SET is_accepting_messages = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id, accept))
}

// AppendMessage stores a message for an account.
func (s *PostgresAccountStore) AppendMessage(ctx context.Context, accountID string, msg *domain.Message) error {
	if _, err := uuid.Parse(accountID); err != nil {
		return domain.ErrAccountNotFound
	}
	id := uuid.New()
	query := `INSERT INTO messages (id, account_id, content, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, id, accountID, msg.Content, msg.CreatedAt); err != nil {
		return mapConstraintError(err)
	}
	msg.ID = id.String()
	return nil
}

// ListMessages returns all messages of an account in insertion order.
func (s *PostgresAccountStore) ListMessages(ctx context.Context, accountID string) ([]domain.Message, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, domain.ErrAccountNotFound
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	query := `
		SELECT id, content, created_at
		FROM messages
		WHERE account_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessage removes a message, scoped to its owner.
func (s *PostgresAccountStore) DeleteMessage(ctx context.Context, accountID, messageID string) error {
	if _, err := uuid.Parse(accountID); err != nil {
		return domain.ErrMessageNotFound
	}
	if _, err := uuid.Parse(messageID); err != nil {
		return domain.ErrMessageNotFound
	}
	query := `DELETE FROM messages WHERE id = $1 AND account_id = $2`
	result, err := s.db.ExecContext(ctx, query, messageID, accountID)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrMessageNotFound)
}

func (s *PostgresAccountStore) scanAccount(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.VerifyCode, &a.VerifyCodeExpiry,
		&a.IsVerified, &a.IsAcceptingMessages, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func expectRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

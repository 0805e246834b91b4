package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/anon-inbox/internal/domain"
)

var accountRowColumns = []string{
	"id", "username", "email", "password_hash", "verify_code", "verify_code_expiry",
	"is_verified", "is_accepting_messages", "created_at",
}

func newStoreWithMock(t *testing.T) (*PostgresAccountStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresAccountStore(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_Success(t *testing.T) {
	store, mock := newStoreWithMock(t)
	expiry := time.Now().Add(time.Hour)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+accounts`).
		WithArgs(sqlmock.AnyArg(), "alice", "a@x.com", "hash", "123456", expiry, false, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &domain.Account{
		Username:            "alice",
		Email:               "a@x.com",
		PasswordHash:        "hash",
		VerifyCode:          "123456",
		VerifyCodeExpiry:    expiry,
		IsAcceptingMessages: true,
	}
	if err := store.Create(context.Background(), a); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("expected uuid ID, got %q", a.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	expectationsMet(t, mock)
}

func TestPostgresCreate_UniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{name: "email", constraint: constraintEmail, want: domain.ErrEmailTaken},
		{name: "verified username", constraint: constraintVerifiedUsername, want: domain.ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newStoreWithMock(t)
			mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
				WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: tt.constraint})

			err := store.Create(context.Background(), &domain.Account{Username: "alice", Email: "a@x.com"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPostgresGetByID_Found(t *testing.T) {
	store, mock := newStoreWithMock(t)
	id := uuid.NewString()
	now := time.Now()

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(id, "alice", "a@x.com", "hash", "123456", now, true, false, now)
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*username.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(id).
		WillReturnRows(rows)

	got, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != id || got.Username != "alice" || !got.IsVerified || got.IsAcceptingMessages {
		t.Fatalf("unexpected account: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestPostgresGetByID_NotFound(t *testing.T) {
	store, mock := newStoreWithMock(t)
	id := uuid.NewString()

	mock.ExpectQuery(`FROM\s+accounts\s+WHERE\s+id`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), id)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestPostgresGetByID_MalformedID(t *testing.T) {
	store, mock := newStoreWithMock(t)

	_, err := store.GetByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresGetVerifiedByUsername_FiltersVerified(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)FROM\s+accounts\s+WHERE\s+username\s*=\s*\$1\s+AND\s+is_verified`).
		WithArgs("alice").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetVerifiedByUsername(context.Background(), "alice")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresGetByUsername_VerifiedThenOldest(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(uuid.NewString(), "bob", "b1@x.com", "hash", "111111", now, false, true, now)
	mock.ExpectQuery(`(?s)WHERE\s+username\s*=\s*\$1\s+ORDER\s+BY\s+is_verified\s+DESC,\s*created_at\s+ASC\s+LIMIT\s+1`).
		WithArgs("bob").
		WillReturnRows(rows)

	got, err := store.GetByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.Email != "b1@x.com" {
		t.Fatalf("unexpected account: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestPostgresGetByIdentifier(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(uuid.NewString(), "alice", "a@x.com", "hash", "123456", now, true, true, now)
	mock.ExpectQuery(`(?s)WHERE\s+email\s*=\s*\$1\s+OR\s+username\s*=\s*\$1`).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	got, err := store.GetByIdentifier(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByIdentifier error: %v", err)
	}
	if got.Email != "a@x.com" {
		t.Fatalf("unexpected account: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestPostgresMarkVerified(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		id := uuid.NewString()
		mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+is_verified\s*=\s*TRUE`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := store.MarkVerified(context.Background(), id); err != nil {
			t.Fatalf("MarkVerified error: %v", err)
		}
		expectationsMet(t, mock)
	})

	t.Run("username collision", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+is_verified`).
			WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: constraintVerifiedUsername})

		err := store.MarkVerified(context.Background(), uuid.NewString())
		if !errors.Is(err, domain.ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("missing account", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+is_verified`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.MarkVerified(context.Background(), uuid.NewString())
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestPostgresUpdatePending(t *testing.T) {
	store, mock := newStoreWithMock(t)
	id := uuid.NewString()
	expiry := time.Now().Add(time.Hour)

	mock.ExpectExec(`(?s)UPDATE\s+accounts\s+SET\s+username\s*=\s*\$2,\s*password_hash\s*=\s*\$3`).
		WithArgs(id, "alice", "newhash", "654321", expiry).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdatePending(context.Background(), &domain.Account{
		ID: id, Username: "alice", PasswordHash: "newhash", VerifyCode: "654321", VerifyCodeExpiry: expiry,
	})
	if err != nil {
		t.Fatalf("UpdatePending error: %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresSetAcceptingMessages(t *testing.T) {
	store, mock := newStoreWithMock(t)
	id := uuid.NewString()
	now := time.Now()

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(id, "alice", "a@x.com", "hash", "123456", now, true, false, now)
	mock.ExpectQuery(`(?s)UPDATE\s+accounts\s+SET\s+is_accepting_messages\s*=\s*\$2.*RETURNING`).
		WithArgs(id, false).
		WillReturnRows(rows)

	got, err := store.SetAcceptingMessages(context.Background(), id, false)
	if err != nil {
		t.Fatalf("SetAcceptingMessages error: %v", err)
	}
	if got.IsAcceptingMessages {
		t.Error("expected IsAcceptingMessages to be false")
	}
	expectationsMet(t, mock)
}

func TestPostgresAppendMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		accountID := uuid.NewString()
		created := time.Now()

		mock.ExpectExec(`INSERT\s+INTO\s+messages`).
			WithArgs(sqlmock.AnyArg(), accountID, "hi", created).
			WillReturnResult(sqlmock.NewResult(0, 1))

		msg := &domain.Message{Content: "hi", CreatedAt: created}
		if err := store.AppendMessage(context.Background(), accountID, msg); err != nil {
			t.Fatalf("AppendMessage error: %v", err)
		}
		if msg.ID == "" {
			t.Error("message ID should be assigned")
		}
		expectationsMet(t, mock)
	})

	t.Run("missing account", func(t *testing.T) {
		store, mock := newStoreWithMock(t)
		mock.ExpectExec(`INSERT\s+INTO\s+messages`).
			WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

		err := store.AppendMessage(context.Background(), uuid.NewString(), &domain.Message{Content: "hi"})
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestPostgresListMessages(t *testing.T) {
	store, mock := newStoreWithMock(t)
	accountID := uuid.NewString()
	now := time.Now()

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*content,\s*created_at\s+FROM\s+messages\s+WHERE\s+account_id\s*=\s*\$1`).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "created_at"}).
			AddRow("m1", "first", now).
			AddRow("m2", "second", now.Add(time.Minute)))

	got, err := store.ListMessages(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].Content != "second" {
		t.Fatalf("unexpected messages: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestPostgresListMessages_MissingAccount(t *testing.T) {
	store, mock := newStoreWithMock(t)
	accountID := uuid.NewString()

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := store.ListMessages(context.Background(), accountID)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresDeleteMessage(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     error
	}{
		{name: "removed", affected: 1, want: nil},
		{name: "not owned or missing", affected: 0, want: domain.ErrMessageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newStoreWithMock(t)
			accountID, messageID := uuid.NewString(), uuid.NewString()

			mock.ExpectExec(`DELETE\s+FROM\s+messages\s+WHERE\s+id\s*=\s*\$1\s+AND\s+account_id\s*=\s*\$2`).
				WithArgs(messageID, accountID).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := store.DeleteMessage(context.Background(), accountID, messageID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DeleteMessage error = %v, want %v", err, tt.want)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestPostgresDeleteMessage_MalformedID(t *testing.T) {
	store, mock := newStoreWithMock(t)

	err := store.DeleteMessage(context.Background(), uuid.NewString(), "../etc")
	if !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

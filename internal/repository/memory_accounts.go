package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/anon-inbox/internal/domain"
)

// MemoryAccountStore keeps accounts in process memory.
// It enforces the same uniqueness rules as the database stores.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	order    []string
}

// NewMemoryAccountStore creates an empty in-memory store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*domain.Account)}
}

var _ AccountStore = (*MemoryAccountStore)(nil)

func (s *MemoryAccountStore) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrEmailTaken
		}
		if account.IsVerified && a.IsVerified && a.Username == account.Username {
			return domain.ErrUsernameTaken
		}
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.ID = uuid.NewString()

	stored := copyAccount(account)
	stored.Messages = []domain.Message{}
	s.accounts[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return nil
}

func (s *MemoryAccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return publicCopy(a), nil
}

func (s *MemoryAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool { return a.Email == email })
}

func (s *MemoryAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool { return a.Username == username })
}

func (s *MemoryAccountStore) GetVerifiedByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool { return a.IsVerified && a.Username == username })
}

func (s *MemoryAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool {
		return a.Email == identifier || a.Username == identifier
	})
}

func (s *MemoryAccountStore) UpdatePending(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if account.Username != a.Username && s.verifiedNameHeld(account.Username, a.ID) {
		return domain.ErrUsernameTaken
	}
	a.Username = account.Username
	a.PasswordHash = account.PasswordHash
	a.VerifyCode = account.VerifyCode
	a.VerifyCodeExpiry = account.VerifyCodeExpiry
	return nil
}

func (s *MemoryAccountStore) MarkVerified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if s.verifiedNameHeld(a.Username, a.ID) {
		return domain.ErrUsernameTaken
	}
	a.IsVerified = true
	return nil
}

func (s *MemoryAccountStore) SetAcceptingMessages(ctx context.Context, id string, accept bool) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.IsAcceptingMessages = accept
	return publicCopy(a), nil
}

func (s *MemoryAccountStore) AppendMessage(ctx context.Context, accountID string, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	msg.ID = uuid.NewString()
	a.Messages = append(a.Messages, *msg)
	return nil
}

func (s *MemoryAccountStore) ListMessages(ctx context.Context, accountID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	messages := make([]domain.Message, len(a.Messages))
	copy(messages, a.Messages)
	return messages, nil
}

func (s *MemoryAccountStore) DeleteMessage(ctx context.Context, accountID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return domain.ErrMessageNotFound
	}
	for i, m := range a.Messages {
		if m.ID == messageID {
			a.Messages = append(a.Messages[:i:i], a.Messages[i+1:]...)
			return nil
		}
	}
	return domain.ErrMessageNotFound
}

// find returns a verified match if one exists, otherwise the oldest pending one.
func (s *MemoryAccountStore) find(match func(*domain.Account) bool) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Account
	for _, id := range s.order {
		a := s.accounts[id]
		if !match(a) {
			continue
		}
		if a.IsVerified {
			return publicCopy(a), nil
		}
		if best == nil {
			best = a
		}
	}
	if best == nil {
		return nil, domain.ErrAccountNotFound
	}
	return publicCopy(best), nil
}

// verifiedNameHeld must be called with s.mu held.
func (s *MemoryAccountStore) verifiedNameHeld(username, exceptID string) bool {
	for _, a := range s.accounts {
		if a.ID != exceptID && a.IsVerified && a.Username == username {
			return true
		}
	}
	return false
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.Messages != nil {
		c.Messages = make([]domain.Message, len(a.Messages))
		copy(c.Messages, a.Messages)
	}
	return &c
}

func publicCopy(a *domain.Account) *domain.Account {
	c := *a
	c.Messages = nil
	return &c
}

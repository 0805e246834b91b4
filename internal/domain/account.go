package domain

import (
	"sort"
	"time"
)

// Account is one registered user together with the messages sent to them.
type Account struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	VerifyCode          string
	VerifyCodeExpiry    time.Time
	IsVerified          bool
	IsAcceptingMessages bool
	Messages            []Message
	CreatedAt           time.Time
}

// Message is an anonymous message owned by exactly one Account.
type Message struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// CodeMatches reports whether code equals the stored verification code.
func (a *Account) CodeMatches(code string) bool {
	return a.VerifyCode != "" && a.VerifyCode == code
}

// CodeExpired reports whether the stored code is no longer valid at now.
// The code is invalid from the expiry instant onward.
func (a *Account) CodeExpired(now time.Time) bool {
	return !now.Before(a.VerifyCodeExpiry)
}

// Principal returns the session identity for the account.
func (a *Account) Principal() Principal {
	return Principal{
		ID:                  a.ID,
		Username:            a.Username,
		IsVerified:          a.IsVerified,
		IsAcceptingMessages: a.IsAcceptingMessages,
	}
}

// SortNewestFirst orders messages by CreatedAt descending.
// Messages with equal timestamps keep their insertion order.
func SortNewestFirst(messages []Message) []Message {
	sorted := make([]Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// Principal is the authenticated caller carried through a request.
type Principal struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}

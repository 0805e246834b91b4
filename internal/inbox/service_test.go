package inbox

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
)

func newTestService(t *testing.T) (*Service, *repository.MemoryAccountStore, *time.Time) {
	t.Helper()
	store := repository.NewMemoryAccountStore()
	svc := NewService(store, validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, &now
}

func seedAccount(t *testing.T, store *repository.MemoryAccountStore, username string) *domain.Account {
	t.Helper()
	a := &domain.Account{
		Username:            username,
		Email:               username + "@example.com",
		IsVerified:          true,
		IsAcceptingMessages: true,
	}
	require.NoError(t, store.Create(context.Background(), a))
	return a
}

func TestToggleThenIntake(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	bob := seedAccount(t, store, "bob")

	updated, err := svc.SetAccepting(ctx, bob.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsAcceptingMessages)

	accepting, err := svc.IsAccepting(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, accepting)

	_, err = svc.Send(ctx, SendInput{Username: "bob", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotAcceptingMessages)

	msgs, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "rejected messages are discarded")

	_, err = svc.SetAccepting(ctx, bob.ID, true)
	require.NoError(t, err)

	msg, err := svc.Send(ctx, SendInput{Username: "bob", Content: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	msgs, err = svc.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestToggleKeepsExistingMessages(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	bob := seedAccount(t, store, "bob")

	_, err := svc.Send(ctx, SendInput{Username: "bob", Content: "before"})
	require.NoError(t, err)

	_, err = svc.SetAccepting(ctx, bob.ID, false)
	require.NoError(t, err)

	msgs, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSend_UnknownRecipient(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Send(context.Background(), SendInput{Username: "ghost", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSend_RequiresContent(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedAccount(t, store, "bob")

	_, err := svc.Send(context.Background(), SendInput{Username: "bob", Content: ""})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSend_WhitespaceContentDelivered(t *testing.T) {
	svc, store, _ := newTestService(t)
	bob := seedAccount(t, store, "bob")

	msg, err := svc.Send(context.Background(), SendInput{Username: "bob", Content: "   "})
	require.NoError(t, err)
	assert.Equal(t, "   ", msg.Content, "content is stored as sent")

	msgs, err := svc.List(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestList_NewestFirst(t *testing.T) {
	svc, store, now := newTestService(t)
	ctx := context.Background()
	bob := seedAccount(t, store, "bob")

	base := *now
	for i, content := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Send(ctx, SendInput{Username: "bob", Content: content})
		require.NoError(t, err)
	}

	msgs, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "three", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.Equal(t, "one", msgs[2].Content)
}

func TestList_UnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.List(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = svc.IsAccepting(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDelete_OwnerScoped(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	bob := seedAccount(t, store, "bob")
	eve := seedAccount(t, store, "eve")

	msg, err := svc.Send(ctx, SendInput{Username: "bob", Content: "secret"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, eve.ID, msg.ID), domain.ErrMessageNotFound)

	require.NoError(t, svc.Delete(ctx, bob.ID, msg.ID))
	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, msg.ID), domain.ErrMessageNotFound, "second delete finds nothing")
	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, ""), domain.ErrMessageNotFound)

	msgs, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/anon-inbox/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestAccountDocument_RoundTrip(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	a := &domain.Account{
		Username:            "alice",
		Email:               "alice@example.com",
		PasswordHash:        "hash",
		VerifyCode:          "482913",
		VerifyCodeExpiry:    created.Add(time.Hour),
		IsAcceptingMessages: true,
		CreatedAt:           created,
	}

	doc := newAccountDocument(a)
	require.False(t, doc.ID.IsZero())
	require.NotNil(t, doc.Messages, "messages must be an empty array so $push works")

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	for _, key := range []string{"_id", "username", "email", "password", "verifyCode",
		"verifyCodeExpiry", "isVerified", "isAcceptingMessages", "messages", "createdAt"} {
		assert.Contains(t, decoded, key)
	}

	var back accountDocument
	require.NoError(t, bson.Unmarshal(raw, &back))
	got := back.toDomain()
	assert.Equal(t, doc.ID.Hex(), got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "482913", got.VerifyCode)
	assert.False(t, got.IsVerified)
	assert.True(t, got.IsAcceptingMessages)
	assert.True(t, got.VerifyCodeExpiry.Equal(a.VerifyCodeExpiry))
}

func TestMongoMalformedIDs(t *testing.T) {
	conn := NewConnector(func(ctx context.Context) (*mongo.Collection, error) {
		t.Fatal("store must not connect for a malformed id")
		return nil, nil
	})
	store := NewMongoAccountStore(conn)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = store.SetAcceptingMessages(ctx, "nope", false)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = store.ListMessages(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = store.AppendMessage(ctx, "nope", &domain.Message{Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = store.DeleteMessage(ctx, primitive.NewObjectID().Hex(), "nope")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestMongoConnectFailureSurfaces(t *testing.T) {
	dialErr := errors.New("server selection timeout")
	conn := NewConnector(func(ctx context.Context) (*mongo.Collection, error) {
		return nil, dialErr
	})
	store := NewMongoAccountStore(conn)

	_, err := store.GetByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, dialErr)
}

func TestMapMongoError(t *testing.T) {
	dup := func(index string) error {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
			Code:    11000,
			Message: "E11000 duplicate key error collection: anon_inbox.accounts index: " + index + " dup key",
		}}}
	}

	assert.ErrorIs(t, mapMongoError(dup(indexEmailUnique)), domain.ErrEmailTaken)
	assert.ErrorIs(t, mapMongoError(dup(indexVerifiedUsernameUnique)), domain.ErrUsernameTaken)

	other := errors.New("network")
	assert.Same(t, other, mapMongoError(other))
}

func TestVerifiedFirst_OldestPendingNext(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "isVerified", Value: -1}, {Key: "createdAt", Value: 1}}, verifiedFirst)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/anon-inbox/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	accountsCollection = "accounts"

	indexEmailUnique            = "email_unique"
	indexVerifiedUsernameUnique = "verified_username_unique"
)

type messageDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type accountDocument struct {
	ID                  primitive.ObjectID `bson:"_id"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email"`
	Password            string             `bson:"password"`
	VerifyCode          string             `bson:"verifyCode"`
	VerifyCodeExpiry    time.Time          `bson:"verifyCodeExpiry"`
	IsVerified          bool               `bson:"isVerified"`
	IsAcceptingMessages bool               `bson:"isAcceptingMessages"`
	Messages            []messageDocument  `bson:"messages"`
	CreatedAt           time.Time          `bson:"createdAt"`
}

func (d *accountDocument) toDomain() *domain.Account {
	return &domain.Account{
		ID:                  d.ID.Hex(),
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.Password,
		VerifyCode:          d.VerifyCode,
		VerifyCodeExpiry:    d.VerifyCodeExpiry,
		IsVerified:          d.IsVerified,
		IsAcceptingMessages: d.IsAcceptingMessages,
		CreatedAt:           d.CreatedAt,
	}
}

func (d messageDocument) toDomain() domain.Message {
	return domain.Message{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

func newAccountDocument(a *domain.Account) accountDocument {
	return accountDocument{
		ID:                  primitive.NewObjectID(),
		Username:            a.Username,
		Email:               a.Email,
		Password:            a.PasswordHash,
		VerifyCode:          a.VerifyCode,
		VerifyCodeExpiry:    a.VerifyCodeExpiry,
		IsVerified:          a.IsVerified,
		IsAcceptingMessages: a.IsAcceptingMessages,
		Messages:            []messageDocument{},
		CreatedAt:           a.CreatedAt,
	}
}

// withoutMessages keeps account lookups from loading the message array.
var withoutMessages = bson.M{"messages": 0}

// verifiedFirst orders duplicate usernames so a verified account wins,
// then the oldest pending registration.
var verifiedFirst = bson.D{{Key: "isVerified", Value: -1}, {Key: "createdAt", Value: 1}}

// MongoAccountStore stores each account as one document with its messages
// embedded.
type MongoAccountStore struct {
	conn *Connector[*mongo.Collection]
}

// NewMongoAccountStore creates a store that fetches its collection through conn.
func NewMongoAccountStore(conn *Connector[*mongo.Collection]) *MongoAccountStore {
	return &MongoAccountStore{conn: conn}
}

var _ AccountStore = (*MongoAccountStore)(nil)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI     string
	DB      string
	Timeout time.Duration
}

// OpenMongoCollection returns an OpenFunc that connects, pings and ensures
// the account indexes exist.
func OpenMongoCollection(cfg MongoConfig) OpenFunc[*mongo.Collection] {
	return func(ctx context.Context) (*mongo.Collection, error) {
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ping mongo: %w", err)
		}

		coll := client.Database(cfg.DB).Collection(accountsCollection)
		if err := ensureIndexes(ctx, coll); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return coll, nil
	}
}

// CloseMongoCollection disconnects the collection's client.
func CloseMongoCollection(coll *mongo.Collection) error {
	return coll.Database().Client().Disconnect(context.Background())
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexEmailUnique).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName(indexVerifiedUsernameUnique).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "isVerified", Value: true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create mongo indexes: %w", err)
	}
	return nil
}

func (s *MongoAccountStore) Create(ctx context.Context, account *domain.Account) error {
	coll, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	doc := newAccountDocument(account)
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	account.ID = doc.ID.Hex()
	return nil
}

func (s *MongoAccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *MongoAccountStore) GetVerifiedByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.findOne(ctx, bson.M{"username": username, "isVerified": true})
}

func (s *MongoAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}})
}

func (s *MongoAccountStore) UpdatePending(ctx context.Context, account *domain.Account) error {
	oid, err := primitive.ObjectIDFromHex(account.ID)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	return s.updateOne(ctx, oid, bson.M{"$set": bson.M{
		"username":         account.Username,
		"password":         account.PasswordHash,
		"verifyCode":       account.VerifyCode,
		"verifyCodeExpiry": account.VerifyCodeExpiry,
	}})
}

func (s *MongoAccountStore) MarkVerified(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	return s.updateOne(ctx, oid, bson.M{"$set": bson.M{"isVerified": true}})
}

func (s *MongoAccountStore) SetAcceptingMessages(ctx context.Context, id string, accept bool) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	coll, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutMessages)
	var doc accountDocument
	err = coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"isAcceptingMessages": accept}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (s *MongoAccountStore) AppendMessage(ctx context.Context, accountID string, msg *domain.Message) error {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	doc := messageDocument{
		ID:        primitive.NewObjectID(),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.updateOne(ctx, oid, bson.M{"$push": bson.M{"messages": doc}}); err != nil {
		return err
	}
	msg.ID = doc.ID.Hex()
	return nil
}

func (s *MongoAccountStore) ListMessages(ctx context.Context, accountID string) ([]domain.Message, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	coll, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Messages []messageDocument `bson:"messages"`
	}
	opts := options.FindOne().SetProjection(bson.M{"messages": 1})
	err = coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		messages = append(messages, m.toDomain())
	}
	return messages, nil
}

func (s *MongoAccountStore) DeleteMessage(ctx context.Context, accountID, messageID string) error {
	aid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return domain.ErrMessageNotFound
	}
	mid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return domain.ErrMessageNotFound
	}
	coll, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": aid},
		bson.M{"$pull": bson.M{"messages": bson.M{"_id": mid}}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	coll, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(verifiedFirst).SetProjection(withoutMessages)
	var doc accountDocument
	err = coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (s *MongoAccountStore) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	coll, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// mapMongoError translates duplicate key errors on the unique indexes into
// domain errors.
func mapMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, indexEmailUnique):
		return domain.ErrEmailTaken
	case strings.Contains(msg, indexVerifiedUsernameUnique):
		return domain.ErrUsernameTaken
	}
	return err
}

package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusconnect/backend/internal/models"
)

// maxResetAttempts is how many wrong codes an email may submit before its
// active codes stop verifying.
const maxResetAttempts = 5

type ResetCodeStore interface {
	InsertResetCode(ctx context.Context, c *models.PasswordResetCode) error
	// ActiveResetCodes returns unused, unexpired codes for email that are
	// under the attempt limit, newest first.
	ActiveResetCodes(ctx context.Context, email string, now time.Time) ([]models.PasswordResetCode, error)
	// RecordFailedAttempt bumps the attempt counter of every active code for
	// email.
	RecordFailedAttempt(ctx context.Context, email string, now time.Time) error
	// MarkResetCodeUsed flips used exactly once; a second call returns
	// ErrResetCodeInvalid.
	MarkResetCodeUsed(ctx context.Context, id string, now time.Time) error
}

type MemoryResetCodeStore struct {
	mu    sync.Mutex
	codes map[string]*models.PasswordResetCode
}

func NewMemoryResetCodeStore() *MemoryResetCodeStore {
	return &MemoryResetCodeStore{codes: make(map[string]*models.PasswordResetCode)}
}

func (s *MemoryResetCodeStore) InsertResetCode(_ context.Context, c *models.PasswordResetCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.codes[c.ID] = &cp
	return nil
}

func (s *MemoryResetCodeStore) ActiveResetCodes(_ context.Context, email string, now time.Time) ([]models.PasswordResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	out := make([]models.PasswordResetCode, 0)
	for _, c := range s.codes {
		if c.Email == email && !c.Used && now.Before(c.ExpiresAt) && c.Attempts < maxResetAttempts {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryResetCodeStore) RecordFailedAttempt(_ context.Context, email string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, c := range s.codes {
		if c.Email == email && !c.Used && now.Before(c.ExpiresAt) {
			c.Attempts++
		}
	}
	return nil
}

func (s *MemoryResetCodeStore) MarkResetCodeUsed(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[id]
	if !ok || c.Used {
		return ErrResetCodeInvalid
	}
	c.Used = true
	usedAt := now
	c.UsedAt = &usedAt
	return nil
}

type MongoResetCodeStore struct {
	col *mongo.Collection
}

func NewMongoResetCodeStore(ctx context.Context, db *mongo.Database) *MongoResetCodeStore {
	col := db.Collection("password_reset_codes")

	// Best-effort indexes. The TTL index lets Mongo reap expired codes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "used", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(24 * 60 * 60),
		},
	})

	return &MongoResetCodeStore{col: col}
}

func (s *MongoResetCodeStore) InsertResetCode(ctx context.Context, c *models.PasswordResetCode) error {
	_, err := s.col.InsertOne(ctx, c)
	return err
}

func (s *MongoResetCodeStore) ActiveResetCodes(ctx context.Context, email string, now time.Time) ([]models.PasswordResetCode, error) {
	filter := bson.M{
		"email":      strings.ToLower(strings.TrimSpace(email)),
		"used":       false,
		"expires_at": bson.M{"$gt": now},
		"attempts":   bson.M{"$lt": maxResetAttempts},
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(10))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.PasswordResetCode, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoResetCodeStore) RecordFailedAttempt(ctx context.Context, email string, now time.Time) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{
			"email":      strings.ToLower(strings.TrimSpace(email)),
			"used":       false,
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$inc": bson.M{"attempts": 1}},
	)
	return err
}

func (s *MongoResetCodeStore) MarkResetCodeUsed(ctx context.Context, id string, now time.Time) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrResetCodeInvalid
	}
	return nil
}

package services

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusconnect/backend/internal/models"
)

// ConnectMongo dials and pings the cluster. Atlas (mongodb+srv) connections
// are pinned to TLS 1.2.
func ConnectMongo(ctx context.Context, mongoURI string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(mongoURI)
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// MongoProfileStore keys both collections by _id = identity provider uid, so
// the primary key is the uniqueness constraint.
type MongoProfileStore struct {
	juniorsCol *mongo.Collection
	seniorsCol *mongo.Collection
}

func NewMongoProfileStore(db *mongo.Database) *MongoProfileStore {
	return &MongoProfileStore{
		juniorsCol: db.Collection("juniors"),
		seniorsCol: db.Collection("seniors"),
	}
}

func (s *MongoProfileStore) collection(role models.Role) *mongo.Collection {
	if role == models.RoleSenior {
		return s.seniorsCol
	}
	return s.juniorsCol
}

func (s *MongoProfileStore) GetJunior(ctx context.Context, id string) (*models.JuniorProfile, error) {
	var prof models.JuniorProfile
	if err := s.juniorsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&prof); err != nil {
		return nil, mapFindErr(err)
	}
	return &prof, nil
}

func (s *MongoProfileStore) InsertJunior(ctx context.Context, p *models.JuniorProfile) error {
	_, err := s.juniorsCol.InsertOne(ctx, p)
	return mapInsertErr(err)
}

func (s *MongoProfileStore) UpdateJunior(ctx context.Context, id string, req *models.UpdateJuniorRequest, now time.Time) (*models.JuniorProfile, error) {
	set := bson.M{"updated_at": now}
	setField(set, "name", req.Name)
	setField(set, "gender", req.Gender)
	setField(set, "phone", req.Phone)
	setField(set, "year", req.Year)
	setField(set, "branch", req.Branch)
	setField(set, "college", req.College)
	setField(set, "city", req.City)

	if err := s.upsert(ctx, models.RoleJunior, id, set, now); err != nil {
		return nil, err
	}
	return s.GetJunior(ctx, id)
}

func (s *MongoProfileStore) GetSenior(ctx context.Context, id string) (*models.SeniorProfile, error) {
	var prof models.SeniorProfile
	if err := s.seniorsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&prof); err != nil {
		return nil, mapFindErr(err)
	}
	return &prof, nil
}

func (s *MongoProfileStore) InsertSenior(ctx context.Context, p *models.SeniorProfile) error {
	_, err := s.seniorsCol.InsertOne(ctx, p)
	return mapInsertErr(err)
}

func (s *MongoProfileStore) UpdateSenior(ctx context.Context, id string, req *models.UpdateSeniorRequest, now time.Time) (*models.SeniorProfile, error) {
	set := bson.M{"updated_at": now}
	setField(set, "name", req.Name)
	setField(set, "gender", req.Gender)
	setField(set, "college_id", req.CollegeID)
	setField(set, "roll_no", req.RollNo)
	setField(set, "phone", req.Phone)
	setField(set, "region", req.Region)

	if err := s.upsert(ctx, models.RoleSenior, id, set, now); err != nil {
		return nil, err
	}
	return s.GetSenior(ctx, id)
}

func (s *MongoProfileStore) upsert(ctx context.Context, role models.Role, id string, set bson.M, now time.Time) error {
	// $set and $setOnInsert must not touch the same path.
	_, err := s.collection(role).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoProfileStore) SetAvatarIfAbsent(ctx context.Context, role models.Role, id string, ref string, now time.Time) (string, error) {
	col := s.collection(role)
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"avatar_id": bson.M{"$exists": false}},
			bson.M{"avatar_id": ""},
		},
	}
	res, err := col.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"avatar_id": ref, "updated_at": now},
	})
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 1 {
		return ref, nil
	}

	// Either the row is missing or another request assigned first.
	var current struct {
		AvatarID string `bson:"avatar_id"`
	}
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&current); err != nil {
		return "", mapFindErr(err)
	}
	return current.AvatarID, nil
}

func setField(set bson.M, key string, v *string) {
	if v != nil {
		set[key] = *v
	}
}

func mapFindErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrProfileNotFound
	}
	return err
}

func mapInsertErr(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return ErrProfileExists
	}
	return err
}

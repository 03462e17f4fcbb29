package db

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"profeamigo/models"
)

const ProfilesCollection = "skill_profiles"

// extractDBName parses the database name from the URI, defaulting to "profeamigo"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "profeamigo"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:]
	}
	return "profeamigo"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(uri string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	dbName := extractDBName(uri)
	zap.S().Infof("mongo: using database %s", dbName)
	return client, client.Database(dbName), nil
}

// MongoProfileStore keeps one document per learner in skill_profiles.
type MongoProfileStore struct {
	coll *mongo.Collection
}

func NewMongoProfileStore(database *mongo.Database) *MongoProfileStore {
	return &MongoProfileStore{coll: database.Collection(ProfilesCollection)}
}

func (s *MongoProfileStore) Load(ctx context.Context, userID string) (*models.SkillProfile, error) {
	var profile models.SkillProfile
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return models.NewSkillProfile(userID), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load profile %s", userID)
	}
	if profile.KnownWords == nil {
		profile.KnownWords = []string{}
	}
	if profile.PracticeAreas == nil {
		profile.PracticeAreas = []string{}
	}
	return &profile, nil
}

func (s *MongoProfileStore) Save(ctx context.Context, profile *models.SkillProfile) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": profile.UserID}, profile, options.Replace().SetUpsert(true))
	return errors.Wrapf(err, "save profile %s", profile.UserID)
}

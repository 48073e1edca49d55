package store

import (
	"context"
	"crypto/tls"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/growme/backend/internal/models"
)

// MongoProfileStore keeps one document per user in the "users" collection,
// keyed by the identity provider UID.
type MongoProfileStore struct {
	client   *mongo.Client
	db       *mongo.Database
	usersCol *mongo.Collection
	log      *zap.Logger
}

func NewMongoProfileStore(ctx context.Context, mongoURI, dbName string, log *zap.Logger) (*MongoProfileStore, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	return &MongoProfileStore{
		client:   client,
		db:       db,
		usersCol: db.Collection("users"),
		log:      log,
	}, nil
}

func (s *MongoProfileStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// AccountsCollection exposes the password-account collection living in the
// same database.
func (s *MongoProfileStore) AccountsCollection() *mongo.Collection {
	return s.db.Collection("accounts")
}

func (s *MongoProfileStore) Get(ctx context.Context, uid string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.usersCol.FindOne(ctx, bson.M{"_id": uid}).Decode(&prof); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prof, nil
}

func (s *MongoProfileStore) Create(ctx context.Context, p *models.Profile) error {
	_, err := s.usersCol.InsertOne(ctx, p)
	return err
}

func (s *MongoProfileStore) Replace(ctx context.Context, p *models.Profile) error {
	_, err := s.usersCol.ReplaceOne(ctx, bson.M{"_id": p.UID}, p, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoProfileStore) PatchGoals(ctx context.Context, uid string, goals map[string][]models.Goal) error {
	_, err := s.usersCol.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{
		"$set": bson.M{"goals": goals},
	})
	return err
}

// Watch opens a change stream on the user's document and pushes the full
// post-change document on every write, from any process. The returned
// channel closes when ctx is cancelled.
func (s *MongoProfileStore) Watch(ctx context.Context, uid string) (<-chan *models.Profile, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"documentKey._id": uid}}},
	}
	stream, err := s.usersCol.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}

	out := make(chan *models.Profile)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				FullDocument *models.Profile `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				s.log.Warn("failed to decode change stream event",
					zap.String("uid", uid), zap.Error(err))
				continue
			}
			// Deletes carry no full document; nothing to push.
			if event.FullDocument == nil {
				continue
			}
			select {
			case out <- event.FullDocument:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			s.log.Warn("change stream ended", zap.String("uid", uid), zap.Error(err))
		}
	}()
	return out, nil
}

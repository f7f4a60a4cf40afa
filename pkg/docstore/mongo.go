package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/mdcanvas/pkg/cache"
	"github.com/matzehuels/mdcanvas/pkg/errors"
)

// Mongo defaults.
const (
	DefaultDatabase   = "mdcanvas"
	DefaultCollection = "documents"
)

// record is the stored form of one document.
type record struct {
	Name        string    `bson:"_id"`
	Payload     []byte    `bson:"payload"`
	Size        int       `bson:"size"`
	Fingerprint string    `bson:"fingerprint"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoStore keeps documents in a MongoDB collection keyed by name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and verifies the connection. Empty database
// and collection names use the defaults.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mongo: %v", cache.ErrNetwork, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo: %v", cache.ErrNetwork, err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

func (s *MongoStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := errors.ValidateDocumentName(name); err != nil {
		return nil, err
	}
	var rec record
	err := cache.RetryWithBackoff(ctx, func() error {
		return retryable(s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rec))
	})
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return rec.Payload, nil
}

func (s *MongoStore) Put(ctx context.Context, name string, payload []byte) error {
	if err := errors.ValidateDocumentName(name); err != nil {
		return err
	}
	info := describe(name, payload, time.Now())
	if info.Fingerprint == "" {
		return errors.New(errors.ErrCodeInvalidDocument, "document %q is not valid JSON", name)
	}
	rec := record{
		Name:        name,
		Payload:     payload,
		Size:        info.Size,
		Fingerprint: info.Fingerprint,
		UpdatedAt:   info.UpdatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	err := cache.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": name}, rec, opts)
		return retryable(err)
	})
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if err := errors.ValidateDocumentName(name); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]Info, error) {
	opts := options.Find().
		SetProjection(bson.M{"payload": 0}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cur.Close(ctx)

	var out []Info
	for cur.Next(ctx) {
		var rec record
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode document record: %w", err)
		}
		out = append(out, Info{Name: rec.Name, Size: rec.Size, Fingerprint: rec.Fingerprint, UpdatedAt: rec.UpdatedAt})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// retryable marks transient driver failures for retry.
func retryable(err error) error {
	if err == nil || stderrors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return cache.Retryable(err)
	}
	return err
}

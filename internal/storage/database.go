package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

const defaultMongoDatabase = "storelens"

// MongoRepository stores one document per store in a MongoDB collection.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	metrics    *observability.Metrics
	logger     *slog.Logger
}

type storeDocument struct {
	ID        string    `bson:"_id"`
	URL       string    `bson:"url"`
	CreatedAt time.Time `bson:"created_at"`
	Context   bson.Raw  `bson:"context"`
}

// NewMongoRepository connects to cfg.DSN and ensures the unique url index.
func NewMongoRepository(ctx context.Context, cfg *config.StorageConfig, metrics *observability.Metrics, logger *slog.Logger) (*MongoRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.DSN).
		SetMaxPoolSize(uint64(cfg.PoolSize + cfg.MaxOverflow)).
		SetMinPoolSize(uint64(cfg.PoolSize)).
		SetMaxConnIdleTime(cfg.PoolRecycle)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	database := cfg.Name
	if database == "" {
		database = defaultMongoDatabase
	}
	coll := client.Database(database).Collection(cfg.Collection)

	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "index", Err: err}
	}

	return &MongoRepository{
		client:     client,
		collection: coll,
		metrics:    metrics,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (r *MongoRepository) Name() string { return "mongodb" }

func (r *MongoRepository) Lookup(ctx context.Context, url string) (*types.StoreRecord, bool) {
	var doc storeDocument
	err := r.collection.FindOne(ctx, bson.D{{Key: "url", Value: url}}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Error("lookup failed", "url", url, "error", err)
		}
		return nil, false
	}

	bc, err := decodeContext(doc.Context)
	if err != nil {
		r.logger.Error("decode stored context", "url", url, "error", err)
		return nil, false
	}
	return &types.StoreRecord{ID: doc.ID, URL: doc.URL, Context: bc, CreatedAt: doc.CreatedAt.UTC()}, true
}

// Store inserts the whole record as a single document, which MongoDB
// writes atomically.
func (r *MongoRepository) Store(ctx context.Context, url string, bc *types.BrandContext) error {
	raw, err := encodeContext(bc)
	if err != nil {
		err = &types.StorageError{Backend: r.Name(), Op: "store", Err: err}
		countStore(r.metrics, err)
		return err
	}

	doc := storeDocument{
		ID:        uuid.NewString(),
		URL:       url,
		CreatedAt: time.Now().UTC(),
		Context:   raw,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("record already stored", "url", url)
			return nil
		}
		err = &types.StorageError{Backend: r.Name(), Op: "store", Err: fmt.Errorf("mongodb insert: %w", err)}
		countStore(r.metrics, err)
		return err
	}
	countStore(r.metrics, nil)
	r.logger.Debug("record stored", "url", url, "id", doc.ID)
	return nil
}

func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// encodeContext converts bc to BSON through its JSON form so the stored
// document uses the same field names as the API.
func encodeContext(bc *types.BrandContext) (bson.Raw, error) {
	data, err := json.Marshal(bc)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

func decodeContext(raw bson.Raw) (*types.BrandContext, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	bc := types.NewBrandContext()
	if err := json.Unmarshal(data, bc); err != nil {
		return nil, err
	}
	bc.Normalize()
	return bc, nil
}

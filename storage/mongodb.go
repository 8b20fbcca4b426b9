package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/formulai/formulai/config"
	"github.com/formulai/formulai/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is an alternate corpus source: chunks persisted in a MongoDB
// collection, keyed by their corpus index. The runtime still loads the whole
// corpus into a ChunkStore at startup; Mongo is never queried per request.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	config     *config.Config
}

// chunkDocument is the persisted shape of one corpus record. ChunkIndex
// preserves load order so the canonical index space survives a round trip.
type chunkDocument struct {
	ChunkIndex int                  `bson:"chunk_index"`
	Text       string               `bson:"text"`
	Metadata   models.ChunkMetadata `bson:"metadata"`
	CreatedAt  time.Time            `bson:"created_at"`
}

func NewMongoStore(cfg *config.Config) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)

	log.Printf("Connected to MongoDB: %s/%s", cfg.MongoDatabase, cfg.MongoCollection)

	return &MongoStore{
		client:     client,
		collection: collection,
		config:     cfg,
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the chunk_index ordering index if it doesn't exist.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "chunk_index", Value: 1}},
		Options: options.Index().SetName("chunk_index_asc").SetUnique(true),
	}

	if _, err := s.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create chunk index: %w", err)
	}
	return nil
}

// InsertChunks replaces the stored corpus with the given chunks, numbering
// them in slice order. Used by the import mode to seed the collection from
// a corpus JSON file.
func (s *MongoStore) InsertChunks(ctx context.Context, chunks []models.FormulaChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to insert")
	}

	if _, err := s.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}

	docs := make([]interface{}, len(chunks))
	now := time.Now()
	for i, chunk := range chunks {
		docs[i] = chunkDocument{
			ChunkIndex: i,
			Text:       chunk.Text,
			Metadata:   chunk.Metadata,
			CreatedAt:  now,
		}
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	log.Printf("Stored %d chunks in MongoDB", len(chunks))
	return nil
}

// LoadChunks reads the full corpus ordered by chunk_index. Same fail-fast
// rule as the file loader: an empty or malformed collection fails the load.
func (s *MongoStore) LoadChunks(ctx context.Context) (*ChunkStore, error) {
	opts := options.Find().SetSort(bson.D{{Key: "chunk_index", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &CorpusLoadError{Source: "mongodb", Err: err}
	}
	defer cursor.Close(ctx)

	var docs []chunkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &CorpusLoadError{Source: "mongodb", Err: fmt.Errorf("failed to decode chunks: %w", err)}
	}

	if len(docs) == 0 {
		return nil, &CorpusLoadError{Source: "mongodb", Err: fmt.Errorf("corpus collection is empty")}
	}

	chunks := make([]models.FormulaChunk, len(docs))
	for i, doc := range docs {
		if doc.Text == "" {
			return nil, &CorpusLoadError{Source: "mongodb", Err: fmt.Errorf("chunk %d has empty text", doc.ChunkIndex)}
		}
		chunks[i] = models.FormulaChunk{Text: doc.Text, Metadata: doc.Metadata}
	}

	log.Printf("Loaded corpus: %d chunks from MongoDB", len(chunks))
	return &ChunkStore{chunks: chunks}, nil
}

package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"loom/internal/database"
	"loom/internal/models"
)

// MemoryService owns the per-user interaction memory: an append-only Mongo
// log with a derived in-process keyword index. Restarting the process loses
// only the index; it is rebuilt lazily from Mongo on a user's first
// retrieval. With no Mongo configured the service degrades to index-only
// memory that lasts until restart.
type MemoryService struct {
	mongo  *database.MongoDB
	index  *memoryIndex
	limit  int
	loadMu sync.Mutex

	// Durable log operations, swappable in tests.
	insert func(ctx context.Context, record models.MemoryRecord) error
	load   func(ctx context.Context, userID string) ([]models.MemoryRecord, error)
}

// NewMemoryService creates a new memory service. mongo may be nil.
func NewMemoryService(mongo *database.MongoDB, retrieveLimit int) *MemoryService {
	if retrieveLimit <= 0 {
		retrieveLimit = 5
	}
	if mongo == nil {
		log.Println("⚠️ [MEMORY] MongoDB not configured - memories will not survive restarts")
	}
	s := &MemoryService{
		mongo: mongo,
		index: newMemoryIndex(),
		limit: retrieveLimit,
	}
	s.insert = s.insertMongo
	s.load = s.loadMongo
	return s
}

// Append stores one exchange. The index snapshot is settled before the
// durable insert: a rebuild running after the insert would already contain
// the new document, and the explicit add below would index it twice.
func (s *MemoryService) Append(ctx context.Context, userID, content string, meta models.MemoryMetadata) error {
	if err := s.ensureLoaded(ctx, userID); err != nil {
		log.Printf("⚠️ [MEMORY] Index rebuild failed for user %s: %v", userID, err)
	}

	record := models.MemoryRecord{
		UserID:    userID,
		Content:   content,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}

	if err := s.insert(ctx, record); err != nil {
		return fmt.Errorf("failed to append memory: %w", err)
	}
	s.index.add(userID, record)
	return nil
}

// Retrieve returns up to the configured limit of past exchanges relevant to
// the query, most-matching first, ties newest first.
func (s *MemoryService) Retrieve(ctx context.Context, userID, query string) ([]models.MemoryRecord, error) {
	if err := s.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}
	return s.index.retrieve(userID, query, s.limit), nil
}

// Stats reports the size and recency of a user's memory log.
func (s *MemoryService) Stats(ctx context.Context, userID string) (*models.MemoryStats, error) {
	stats := &models.MemoryStats{UserID: userID}

	if s.mongo == nil {
		count, latest := s.index.stats(userID)
		stats.MemoryCount = int64(count)
		if count > 0 {
			stats.LastInteraction = &latest
		}
		return stats, nil
	}

	coll := s.mongo.Collection(database.CollectionMemories)
	count, err := coll.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	stats.MemoryCount = count

	if count > 0 {
		var latest models.MemoryRecord
		opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
		if err := coll.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&latest); err == nil {
			stats.LastInteraction = &latest.Timestamp
		}
	}
	return stats, nil
}

// ensureLoaded rebuilds a user's index from the durable log exactly once
// per process.
func (s *MemoryService) ensureLoaded(ctx context.Context, userID string) error {
	if s.index.isLoaded(userID) {
		return nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.index.isLoaded(userID) {
		return nil
	}

	records, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	for _, record := range records {
		s.index.add(userID, record)
	}
	if len(records) > 0 {
		log.Printf("🧠 [MEMORY] Rebuilt index for user %s (%d records)", userID, len(records))
	}

	s.index.markLoaded(userID)
	return nil
}

func (s *MemoryService) insertMongo(ctx context.Context, record models.MemoryRecord) error {
	if s.mongo == nil {
		return nil
	}
	_, err := s.mongo.Collection(database.CollectionMemories).InsertOne(ctx, record)
	return err
}

func (s *MemoryService) loadMongo(ctx context.Context, userID string) ([]models.MemoryRecord, error) {
	if s.mongo == nil {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.mongo.Collection(database.CollectionMemories).Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.MemoryRecord
	for cursor.Next(ctx) {
		var record models.MemoryRecord
		if err := cursor.Decode(&record); err != nil {
			log.Printf("⚠️ [MEMORY] Skipping undecodable memory for user %s: %v", userID, err)
			continue
		}
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return records, nil
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRecord is one append-only entry in a user's interaction memory.
// Records are never mutated after insert; retrieval ranking is derived
// from an in-process keyword index rebuilt from these documents.
type MemoryRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Content   string             `bson:"content" json:"content"`
	Metadata  MemoryMetadata     `bson:"metadata" json:"metadata"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// MemoryMetadata captures how a remembered exchange was produced.
type MemoryMetadata struct {
	TaskType  TaskType `bson:"taskType" json:"task_type"`
	ToolsUsed []string `bson:"toolsUsed" json:"tools_used"`
	Response  string   `bson:"response" json:"response"`
}

// MemoryStats summarizes a user's memory log for GET /api/memory/stats.
type MemoryStats struct {
	UserID          string     `json:"user_id"`
	MemoryCount     int64      `json:"memory_count"`
	LastInteraction *time.Time `json:"last_interaction,omitempty"`
}

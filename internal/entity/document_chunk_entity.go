package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is an indexed excerpt of a user document. Ingestion writes
// these rows; this core only reads them.
type DocumentChunk struct {
	Id         uuid.UUID
	Collection string // class id or domain fallback
	Source     string // originating file name
	Page       int
	Content    string
	Embedding  []float32
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}

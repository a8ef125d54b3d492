package repository

import (
	"blurcam/internal/model"
)

// EmbeddingRepository defines the interface for cached label embeddings.
// Entries are keyed by encoder name and label text.
type EmbeddingRepository interface {
	// Create operations
	Put(emb *model.LabelEmbedding) error

	// Read operations
	Get(encoder, label string) (*model.LabelEmbedding, error)
	Labels(encoder string) ([]string, error)

	// Delete operations
	DeleteByEncoder(encoder string) error
}

// Package vector holds the value types exchanged with the vector store collaborator.
package vector

import "github.com/kailas-cloud/modalsearch/internal/domain/content"

// SearchOptions parameterizes a per-modality nearest-neighbor query.
type SearchOptions struct {
	Limit           int
	Threshold       float64
	IncludeMetadata bool
	IncludeVectors  bool
}

// Hit is a single nearest-neighbor match. Embedding is set only when
// IncludeVectors was requested and the store could provide it.
type Hit struct {
	ID        string
	Score     float64
	Metadata  content.Metadata
	Embedding *content.Embedding
}

// StorageStats summarizes what the vector store holds.
type StorageStats struct {
	EmbeddingsByType map[content.Type]int `json:"embeddings_by_type"`
}

// Total returns the number of stored embeddings across modalities.
func (s StorageStats) Total() int {
	n := 0
	for _, c := range s.EmbeddingsByType {
		n += c
	}
	return n
}

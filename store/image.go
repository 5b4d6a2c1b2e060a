package store

import (
	"github.com/pkg/errors"
)

// EmbeddingDim is the fixed dimensionality of image embeddings. Vectors of
// any other length are rejected at the boundary, never truncated or padded.
const EmbeddingDim = 512

// Image represents one ingested image row. The embedding is stored
// unit-normalized; everything besides the embedding and the creator grouping
// key is opaque metadata carried through search results unchanged.
type Image struct {
	ID              string
	Source          string
	SourceID        string
	CreatorUsername *string
	PermalinkURL    string
	MediaID         string
	MediaType       string
	Caption         *string
	Width           *int32
	Height          *int32
	Embedding       []float32
	CreatedTs       int64
	UpdatedTs       int64
}

// UpsertImage is the single mutation path for image rows. On a
// (source, source_id) conflict the row is replaced in full - embedding,
// creator, and metadata - while the generated ID is preserved.
type UpsertImage struct {
	Source          string
	SourceID        string
	CreatorUsername *string
	PermalinkURL    string
	MediaID         string
	MediaType       string
	Caption         *string
	Width           *int32
	Height          *int32
	Embedding       []float32
}

// Validate checks the upsert payload before it reaches a driver.
func (u *UpsertImage) Validate() error {
	if u.Source == "" {
		return errors.Wrap(ErrInvalidQuery, "source cannot be empty")
	}
	if u.SourceID == "" {
		return errors.Wrap(ErrInvalidQuery, "source id cannot be empty")
	}
	if len(u.Embedding) != EmbeddingDim {
		return errors.Wrapf(ErrInvalidQuery, "embedding must have %d dimensions, got %d", EmbeddingDim, len(u.Embedding))
	}
	return nil
}

// FindImage is the find condition for image rows.
type FindImage struct {
	ID              *string
	Source          *string
	CreatorUsername *string
	Limit           int
}

// ImageMatch is a similarity search result. Score is the cosine similarity
// of the query and the stored embedding, in [-1, 1].
type ImageMatch struct {
	Image *Image
	Score float64
}

// CreatorMatch is a grouped top-1 result: the single best-matching image for
// one creator.
type CreatorMatch struct {
	CreatorUsername string
	Image           *Image
	Score           float64
}

// VectorSearchOptions are the options for flat top-k similarity search.
// Vector is expected to be unit-normalized by the caller.
type VectorSearchOptions struct {
	Vector []float32
	Limit  int
}

// Validate validates the VectorSearchOptions.
func (o *VectorSearchOptions) Validate() error {
	if len(o.Vector) != EmbeddingDim {
		return errors.Wrapf(ErrInvalidQuery, "query vector must have %d dimensions, got %d", EmbeddingDim, len(o.Vector))
	}
	if o.Limit < 1 {
		return errors.Wrapf(ErrInvalidQuery, "limit must be at least 1, got %d", o.Limit)
	}
	return nil
}

// CreatorVectorSearchOptions are the options for grouped top-1-per-creator
// search. No limit: the caller truncates downstream.
type CreatorVectorSearchOptions struct {
	Vector []float32
}

// Validate validates the CreatorVectorSearchOptions.
func (o *CreatorVectorSearchOptions) Validate() error {
	if len(o.Vector) != EmbeddingDim {
		return errors.Wrapf(ErrInvalidQuery, "query vector must have %d dimensions, got %d", EmbeddingDim, len(o.Vector))
	}
	return nil
}

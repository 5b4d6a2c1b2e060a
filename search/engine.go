// Package search implements the similarity query engine: ranked top-k
// nearest-neighbor search and grouped best-match-per-creator aggregation
// over stored image embeddings.
//
// Two interchangeable strategies exist behind one interface. The native
// strategy delegates ranking to the storage backend's vector index; the
// brute-force strategy streams every stored embedding and scores it in
// process. The strategy is fixed once at construction by a capability probe,
// never re-decided per call.
package search

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/internal/vecmath"
	"github.com/glowmatch/glowmatch/store"
)

// Backend is the slice of the store the engine depends on.
type Backend interface {
	SupportsVectorIndex(ctx context.Context) (bool, error)
	IterateImageEmbeddings(ctx context.Context, fn func(*store.Image) error) error
	VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ImageMatch, error)
	VectorSearchByCreator(ctx context.Context, opts *store.CreatorVectorSearchOptions) ([]*store.CreatorMatch, error)
}

// Engine answers similarity queries. Implementations are stateless and
// reentrant; concurrent calls are safe and unordered relative to each other.
// Both operations score with cosine similarity in [-1, 1], higher is more
// similar.
type Engine interface {
	// Search returns up to k stored images ranked by similarity to query,
	// best first. An empty store yields an empty list, not an error.
	Search(ctx context.Context, query []float32, k int) ([]*store.ImageMatch, error)

	// SearchBestPerCreator returns the single best-matching image for each
	// distinct creator, ordered by score descending. Images without a
	// creator are excluded.
	SearchBestPerCreator(ctx context.Context, query []float32) ([]*store.CreatorMatch, error)

	// Strategy identifies the active strategy, "native" or "bruteforce".
	Strategy() string
}

// New probes the backend's vector-index capability once and returns the
// matching engine. The native engine keeps a brute-force instance around to
// fail closed on per-call index errors.
func New(ctx context.Context, backend Backend) (Engine, error) {
	supported, err := backend.SupportsVectorIndex(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to probe vector index capability")
	}

	bruteForce := &bruteForceEngine{backend: backend}
	if !supported {
		slog.Info("similarity engine initialized", "strategy", "bruteforce")
		return bruteForce, nil
	}
	slog.Info("similarity engine initialized", "strategy", "native")
	return &nativeEngine{backend: backend, fallback: bruteForce}, nil
}

// normalizeQuery validates the query vector and returns a unit-length copy.
// A zero vector is not an error: it cannot be ranked against, so the caller
// returns an empty result (empty reports true).
func normalizeQuery(query []float32) (normalized []float32, empty bool, err error) {
	if len(query) != store.EmbeddingDim {
		return nil, false, errors.Wrapf(store.ErrInvalidQuery,
			"query vector must have %d dimensions, got %d", store.EmbeddingDim, len(query))
	}
	normalized, ok := vecmath.Normalize(query)
	if !ok {
		return nil, true, nil
	}
	return normalized, false, nil
}

// clampScore bounds a similarity score to [-1, 1]. Floating point noise in
// either strategy can push a score a hair outside the range.
func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

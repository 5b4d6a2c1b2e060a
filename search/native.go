package search

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/metrics"
	"github.com/glowmatch/glowmatch/store"
)

// nativeEngine delegates ranking to the storage backend's vector index.
// When a native query fails - stale or missing index, extension trouble -
// the call fails closed onto the brute-force scan instead of returning
// wrong or no rankings. The fallback is observable (log + counter) but not
// a caller-visible error.
type nativeEngine struct {
	backend  Backend
	fallback *bruteForceEngine
}

func (e *nativeEngine) Strategy() string {
	return "native"
}

func (e *nativeEngine) Search(ctx context.Context, query []float32, k int) ([]*store.ImageMatch, error) {
	if k < 1 {
		return nil, errors.Wrapf(store.ErrInvalidQuery, "k must be at least 1, got %d", k)
	}
	normalized, empty, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if empty {
		return []*store.ImageMatch{}, nil
	}

	results, err := e.backend.VectorSearch(ctx, &store.VectorSearchOptions{
		Vector: normalized,
		Limit:  k,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("native vector search failed, falling back to brute-force scan", "error", err)
		metrics.NativeFallbacksTotal.Inc()
		return e.fallback.Search(ctx, query, k)
	}

	for _, match := range results {
		match.Score = clampScore(match.Score)
	}
	metrics.SearchesTotal.WithLabelValues("native", "topk").Inc()
	return results, nil
}

func (e *nativeEngine) SearchBestPerCreator(ctx context.Context, query []float32) ([]*store.CreatorMatch, error) {
	normalized, empty, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if empty {
		return []*store.CreatorMatch{}, nil
	}

	results, err := e.backend.VectorSearchByCreator(ctx, &store.CreatorVectorSearchOptions{
		Vector: normalized,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("native creator search failed, falling back to brute-force scan", "error", err)
		metrics.NativeFallbacksTotal.Inc()
		return e.fallback.SearchBestPerCreator(ctx, query)
	}

	for _, match := range results {
		match.Score = clampScore(match.Score)
	}
	metrics.SearchesTotal.WithLabelValues("native", "best_per_creator").Inc()
	return results, nil
}

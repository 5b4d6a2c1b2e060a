package search

import (
	"context"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/glowmatch/glowmatch/internal/vecmath"
	"github.com/glowmatch/glowmatch/metrics"
	"github.com/glowmatch/glowmatch/store"
)

// scanBatchSize bounds how many rows are buffered between scoring rounds.
// Scoring within a batch is sharded across cores; pushing into the ranking
// structures stays sequential to keep tie-breaks deterministic.
const scanBatchSize = 256

// bruteForceEngine scores every stored embedding in process. Stored vectors
// are unit-normalized at write time, so a single dot product per record is
// the full cosine similarity.
type bruteForceEngine struct {
	backend Backend
}

func (e *bruteForceEngine) Strategy() string {
	return "bruteforce"
}

func (e *bruteForceEngine) Search(ctx context.Context, query []float32, k int) ([]*store.ImageMatch, error) {
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

	top := newTopK(k)
	err = e.scan(ctx, normalized, func(item scoredImage) {
		top.Push(item)
	})
	if err != nil {
		return nil, err
	}

	ranked := top.Ranked()
	results := make([]*store.ImageMatch, 0, len(ranked))
	for _, item := range ranked {
		results = append(results, &store.ImageMatch{Image: item.image, Score: item.score})
	}
	metrics.SearchesTotal.WithLabelValues("bruteforce", "topk").Inc()
	return results, nil
}

func (e *bruteForceEngine) SearchBestPerCreator(ctx context.Context, query []float32) ([]*store.CreatorMatch, error) {
	normalized, empty, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if empty {
		return []*store.CreatorMatch{}, nil
	}

	// Segmented top-1: one best record per creator. Strict > keeps the
	// first-scanned record on score ties; firstSeen fixes the relative
	// order of creators whose best scores tie exactly.
	type creatorBest struct {
		item      scoredImage
		firstSeen int
	}
	bests := map[string]*creatorBest{}

	err = e.scan(ctx, normalized, func(item scoredImage) {
		if item.image.CreatorUsername == nil {
			return
		}
		creator := *item.image.CreatorUsername
		best, ok := bests[creator]
		if !ok {
			bests[creator] = &creatorBest{item: item, firstSeen: item.seq}
			return
		}
		if item.score > best.item.score {
			best.item = item
		}
	})
	if err != nil {
		return nil, err
	}

	ordered := make([]*creatorBest, 0, len(bests))
	for _, best := range bests {
		ordered = append(ordered, best)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].item.score != ordered[j].item.score {
			return ordered[i].item.score > ordered[j].item.score
		}
		return ordered[i].firstSeen < ordered[j].firstSeen
	})

	results := make([]*store.CreatorMatch, 0, len(ordered))
	for _, best := range ordered {
		results = append(results, &store.CreatorMatch{
			CreatorUsername: *best.item.image.CreatorUsername,
			Image:           best.item.image,
			Score:           best.item.score,
		})
	}
	metrics.SearchesTotal.WithLabelValues("bruteforce", "best_per_creator").Inc()
	return results, nil
}

// scan streams all stored embeddings, scores them against the unit query,
// and hands each scored record to emit in scan order.
func (e *bruteForceEngine) scan(ctx context.Context, query []float32, emit func(scoredImage)) error {
	seq := 0
	batch := make([]*store.Image, 0, scanBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		scores, err := scoreBatch(ctx, query, batch)
		if err != nil {
			return err
		}
		for i, image := range batch {
			emit(scoredImage{image: image, seq: seq, score: clampScore(scores[i])})
			seq++
		}
		batch = batch[:0]
		return nil
	}

	err := e.backend.IterateImageEmbeddings(ctx, func(image *store.Image) error {
		batch = append(batch, image)
		if len(batch) == scanBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.Wrapf(store.ErrUnavailable, "embedding scan failed: %v", err)
	}
	return flush()
}

// scoreBatch computes the dot product of the query against every batch
// member, sharded across cores. Scores land at their input index, so the
// caller's ordering is untouched.
func scoreBatch(ctx context.Context, query []float32, batch []*store.Image) ([]float64, error) {
	scores := make([]float64, len(batch))

	shards := runtime.GOMAXPROCS(0)
	if shards > len(batch) {
		shards = len(batch)
	}
	if shards <= 1 {
		for i, image := range batch {
			scores[i] = vecmath.Dot(query, image.Embedding)
		}
		return scores, nil
	}

	g, _ := errgroup.WithContext(ctx)
	chunk := (len(batch) + shards - 1) / shards
	for lo := 0; lo < len(batch); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(batch))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				scores[i] = vecmath.Dot(query, batch[i].Embedding)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Package ingest admits fetched media items into the image store. Each item
// passes a caption predicate and structural validation before it is
// upserted; the natural key (source, source ID) makes re-ingestion
// idempotent.
package ingest

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/metrics"
	"github.com/glowmatch/glowmatch/store"
)

// Item is one fetched media record offered for ingestion.
type Item struct {
	Source          string
	SourceID        string
	CreatorUsername string
	PermalinkURL    string
	MediaID         string
	MediaType       string
	Caption         string
	Width           int32
	Height          int32
	Embedding       []float32
}

// Predicate decides whether a caption is relevant enough to ingest.
type Predicate func(caption string) bool

// Result tallies one ingestion run. Skipped items failed the caption
// predicate; rejected items failed validation or the store write.
type Result struct {
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// Gate filters and persists incoming items.
type Gate struct {
	store     *store.Store
	predicate Predicate
}

// NewGate creates a Gate. A nil predicate admits every caption.
func NewGate(s *store.Store, predicate Predicate) *Gate {
	if predicate == nil {
		predicate = func(string) bool { return true }
	}
	return &Gate{store: s, predicate: predicate}
}

// Ingest offers a batch of items to the store. A failing item never aborts
// the batch; its error is recorded and the run continues.
func (g *Gate) Ingest(ctx context.Context, items []*Item) (*Result, error) {
	result := &Result{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !g.predicate(item.Caption) {
			result.Skipped++
			metrics.IngestedItemsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		if _, err := g.store.UpsertImage(ctx, upsertFromItem(item)); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, errors.Wrapf(err, "item %s/%s", item.Source, item.SourceID).Error())
			metrics.IngestedItemsTotal.WithLabelValues("rejected").Inc()
			continue
		}
		result.Added++
		metrics.IngestedItemsTotal.WithLabelValues("added").Inc()
	}
	return result, nil
}

// RefreshCreator replaces all of a creator's stored images with the given
// batch: purge first, then ingest. The purge count is returned alongside
// the ingestion result.
func (g *Gate) RefreshCreator(ctx context.Context, creatorUsername string, items []*Item) (*Result, int64, error) {
	if creatorUsername == "" {
		return nil, 0, errors.Wrap(store.ErrInvalidQuery, "creator username is required")
	}

	purged, err := g.store.DeleteImagesByCreator(ctx, creatorUsername)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to purge images for creator %s", creatorUsername)
	}
	slog.Info("purged creator images before refresh", "creator", creatorUsername, "purged", purged)

	result, err := g.Ingest(ctx, items)
	if err != nil {
		return result, purged, err
	}
	return result, purged, nil
}

func upsertFromItem(item *Item) *store.UpsertImage {
	upsert := &store.UpsertImage{
		Source:       item.Source,
		SourceID:     item.SourceID,
		PermalinkURL: item.PermalinkURL,
		MediaID:      item.MediaID,
		MediaType:    item.MediaType,
		Embedding:    item.Embedding,
	}
	if item.CreatorUsername != "" {
		upsert.CreatorUsername = &item.CreatorUsername
	}
	if item.Caption != "" {
		upsert.Caption = &item.Caption
	}
	if item.Width > 0 {
		upsert.Width = &item.Width
	}
	if item.Height > 0 {
		upsert.Height = &item.Height
	}
	return upsert
}

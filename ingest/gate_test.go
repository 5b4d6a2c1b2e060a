package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/glowmatch/glowmatch/internal/profile"
	"github.com/glowmatch/glowmatch/internal/vecmath"
	"github.com/glowmatch/glowmatch/store"
)

// fakeDriver is an in-memory store.Driver keyed by (source, source_id).
type fakeDriver struct {
	images    map[string]*store.Image
	upsertErr error
	nextID    int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{images: map[string]*store.Image{}}
}

func (f *fakeDriver) key(source, sourceID string) string {
	return source + "/" + sourceID
}

func (f *fakeDriver) Close() error { return nil }

func (f *fakeDriver) Migrate(ctx context.Context) error { return nil }

func (f *fakeDriver) SupportsVectorIndex(ctx context.Context) (bool, error) {
	return false, nil
}

func (f *fakeDriver) UpsertImage(ctx context.Context, upsert *store.UpsertImage) (*store.Image, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	key := f.key(upsert.Source, upsert.SourceID)
	image, ok := f.images[key]
	if !ok {
		f.nextID++
		image = &store.Image{ID: fmt.Sprintf("id-%d", f.nextID)}
		f.images[key] = image
	}
	image.Source = upsert.Source
	image.SourceID = upsert.SourceID
	image.CreatorUsername = upsert.CreatorUsername
	image.PermalinkURL = upsert.PermalinkURL
	image.MediaID = upsert.MediaID
	image.MediaType = upsert.MediaType
	image.Caption = upsert.Caption
	image.Width = upsert.Width
	image.Height = upsert.Height
	image.Embedding = upsert.Embedding
	return image, nil
}

func (f *fakeDriver) GetImage(ctx context.Context, id string) (*store.Image, error) {
	for _, image := range f.images {
		if image.ID == id {
			return image, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDriver) ListImages(ctx context.Context, find *store.FindImage) ([]*store.Image, error) {
	var images []*store.Image
	for _, image := range f.images {
		if find.ID != nil && image.ID != *find.ID {
			continue
		}
		if find.Source != nil && image.Source != *find.Source {
			continue
		}
		if find.CreatorUsername != nil &&
			(image.CreatorUsername == nil || *image.CreatorUsername != *find.CreatorUsername) {
			continue
		}
		images = append(images, image)
	}
	if find.Limit > 0 && len(images) > find.Limit {
		images = images[:find.Limit]
	}
	return images, nil
}

func (f *fakeDriver) DeleteImagesByCreator(ctx context.Context, creatorUsername string) (int64, error) {
	var deleted int64
	for key, image := range f.images {
		if image.CreatorUsername != nil && *image.CreatorUsername == creatorUsername {
			delete(f.images, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeDriver) CountImages(ctx context.Context) (int64, error) {
	return int64(len(f.images)), nil
}

func (f *fakeDriver) IterateImageEmbeddings(ctx context.Context, fn func(*store.Image) error) error {
	for _, image := range f.images {
		if err := fn(image); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDriver) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ImageMatch, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDriver) VectorSearchByCreator(ctx context.Context, opts *store.CreatorVectorSearchOptions) ([]*store.CreatorMatch, error) {
	return nil, errors.New("not supported")
}

func testEmbedding() []float32 {
	v := make([]float32, store.EmbeddingDim)
	v[0] = 1
	return v
}

func testItem(sourceID, creator, caption string) *Item {
	return &Item{
		Source:          "instagram",
		SourceID:        sourceID,
		CreatorUsername: creator,
		MediaID:         "media-" + sourceID,
		MediaType:       "IMAGE",
		Caption:         caption,
		Embedding:       testEmbedding(),
	}
}

func newTestGate(driver store.Driver, predicate Predicate) *Gate {
	s := store.New(driver, &profile.Profile{Mode: "dev", Driver: "sqlite"})
	return NewGate(s, predicate)
}

func TestIngestCounts(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	gate := newTestGate(driver, HairAndMakeupCaption)

	bad := testItem("3", "carol", "Bridal hair inspo")
	bad.Embedding = []float32{1, 2, 3}

	result, err := gate.Ingest(ctx, []*Item{
		testItem("1", "alice", "Soft waves for the bride"),
		testItem("2", "bob", "My lunch today"),
		bad,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 1, result.Rejected)
	require.Len(t, result.Errors, 1)

	count, err := driver.CountImages(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestIngestIdempotent(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	gate := newTestGate(driver, nil)

	item := testItem("1", "alice", "updo")
	result, err := gate.Ingest(ctx, []*Item{item})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	first, err := driver.GetImage(ctx, "id-1")
	require.NoError(t, err)

	item.Caption = "romantic updo"
	result, err = gate.Ingest(ctx, []*Item{item})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	count, err := driver.CountImages(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	second, err := driver.GetImage(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "romantic updo", *second.Caption)
}

func TestIngestNormalizesEmbedding(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	gate := newTestGate(driver, nil)

	item := testItem("1", "alice", "hair")
	item.Embedding = make([]float32, store.EmbeddingDim)
	item.Embedding[0] = 6
	item.Embedding[1] = 8

	result, err := gate.Ingest(ctx, []*Item{item})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	stored, err := driver.GetImage(ctx, "id-1")
	require.NoError(t, err)
	require.InDelta(t, 1.0, vecmath.Norm(stored.Embedding), 1e-5)
	require.InDelta(t, 0.6, float64(stored.Embedding[0]), 1e-6)
}

func TestIngestNilPredicateAdmitsAll(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newFakeDriver(), nil)

	result, err := gate.Ingest(ctx, []*Item{testItem("1", "alice", "no keywords here")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)
	require.Equal(t, 0, result.Skipped)
}

func TestRefreshCreator(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	gate := newTestGate(driver, nil)

	_, err := gate.Ingest(ctx, []*Item{
		testItem("1", "alice", "hair"),
		testItem("2", "alice", "makeup"),
		testItem("3", "bob", "bridal"),
	})
	require.NoError(t, err)

	result, purged, err := gate.RefreshCreator(ctx, "alice", []*Item{
		testItem("10", "alice", "fresh updo"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)
	require.Equal(t, 1, result.Added)

	count, err := driver.CountImages(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestListImagesAfterRefresh(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := store.New(driver, &profile.Profile{Mode: "dev", Driver: "sqlite"})
	gate := NewGate(s, nil)

	_, err := gate.Ingest(ctx, []*Item{
		testItem("1", "alice", "hair"),
		testItem("2", "alice", "makeup"),
		testItem("3", "bob", "bridal"),
	})
	require.NoError(t, err)

	_, _, err = gate.RefreshCreator(ctx, "alice", []*Item{testItem("10", "alice", "fresh updo")})
	require.NoError(t, err)

	creator := "alice"
	images, err := s.ListImages(ctx, &store.FindImage{CreatorUsername: &creator})
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, "10", images[0].SourceID)

	source := "instagram"
	images, err = s.ListImages(ctx, &store.FindImage{Source: &source, Limit: 1})
	require.NoError(t, err)
	require.Len(t, images, 1)
}

func TestRefreshCreatorRequiresUsername(t *testing.T) {
	gate := newTestGate(newFakeDriver(), nil)
	_, _, err := gate.RefreshCreator(context.Background(), "", nil)
	require.ErrorIs(t, err, store.ErrInvalidQuery)
}

package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/internal/profile"
	"github.com/glowmatch/glowmatch/internal/vecmath"
)

// Driver is the storage backend interface. Two implementations exist:
// postgres (pgvector-backed, with a JSONB column fallback when the vector
// extension is missing) and sqlite (BLOB-encoded vectors, no native index).
type Driver interface {
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// SupportsVectorIndex reports whether the backend can rank vectors
	// natively. Probed once at engine construction, never per call.
	SupportsVectorIndex(ctx context.Context) (bool, error)

	UpsertImage(ctx context.Context, upsert *UpsertImage) (*Image, error)
	GetImage(ctx context.Context, id string) (*Image, error)
	ListImages(ctx context.Context, find *FindImage) ([]*Image, error)
	DeleteImagesByCreator(ctx context.Context, creatorUsername string) (int64, error)
	CountImages(ctx context.Context) (int64, error)

	// IterateImageEmbeddings streams every image row that carries an
	// embedding, invoking fn per row. Each call opens a fresh scan; rows
	// committed mid-scan may or may not be observed (read-committed at
	// best). Iteration stops on the first fn error or ctx cancellation.
	IterateImageEmbeddings(ctx context.Context, fn func(*Image) error) error

	// VectorSearch ranks stored embeddings against a unit query vector
	// inside the database. Only valid when SupportsVectorIndex reports true.
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*ImageMatch, error)

	// VectorSearchByCreator returns the best-matching image per distinct
	// creator, ordered by score descending. Only valid when
	// SupportsVectorIndex reports true.
	VectorSearchByCreator(ctx context.Context, opts *CreatorVectorSearchOptions) ([]*CreatorMatch, error)
}

// Store provides database access to image records. It owns the
// unit-normalization invariant: every embedding is normalized here before it
// reaches a driver, so stored vectors never need re-normalizing at query
// time.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) SupportsVectorIndex(ctx context.Context) (bool, error) {
	return s.driver.SupportsVectorIndex(ctx)
}

// UpsertImage validates and unit-normalizes the embedding, then writes the
// row. Re-ingesting the same (source, source_id) replaces the existing row
// in place; the generated ID is preserved.
func (s *Store) UpsertImage(ctx context.Context, upsert *UpsertImage) (*Image, error) {
	if err := upsert.Validate(); err != nil {
		return nil, err
	}
	normalized, ok := vecmath.Normalize(upsert.Embedding)
	if !ok {
		return nil, errors.Wrap(ErrInvalidQuery, "embedding has zero norm and cannot be normalized")
	}
	normalizedUpsert := *upsert
	normalizedUpsert.Embedding = normalized
	return s.driver.UpsertImage(ctx, &normalizedUpsert)
}

func (s *Store) GetImage(ctx context.Context, id string) (*Image, error) {
	return s.driver.GetImage(ctx, id)
}

func (s *Store) ListImages(ctx context.Context, find *FindImage) ([]*Image, error) {
	return s.driver.ListImages(ctx, find)
}

func (s *Store) DeleteImagesByCreator(ctx context.Context, creatorUsername string) (int64, error) {
	return s.driver.DeleteImagesByCreator(ctx, creatorUsername)
}

func (s *Store) CountImages(ctx context.Context) (int64, error) {
	return s.driver.CountImages(ctx)
}

func (s *Store) IterateImageEmbeddings(ctx context.Context, fn func(*Image) error) error {
	return s.driver.IterateImageEmbeddings(ctx, fn)
}

func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*ImageMatch, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.VectorSearch(ctx, opts)
}

func (s *Store) VectorSearchByCreator(ctx context.Context, opts *CreatorVectorSearchOptions) ([]*CreatorMatch, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.VectorSearchByCreator(ctx, opts)
}

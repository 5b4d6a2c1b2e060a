package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/glowmatch/glowmatch/internal/profile"
	"github.com/glowmatch/glowmatch/store"
)

// DB is the PostgreSQL driver. When the pgvector extension is available,
// embeddings live in a vector(512) column covered by an IVFFlat cosine
// index and similarity queries run in the database. Without the extension
// the same rows are stored with a JSONB embedding column and ranking is
// left to the in-process engine.
type DB struct {
	db      *sql.DB
	profile *profile.Profile

	// hasVector is fixed at Migrate time and decides the embedding column
	// representation. It never flips mid-run.
	hasVector bool
}

// NewDB opens a PostgreSQL connection pool for the given profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Explicit pool ownership instead of a lazily-reconnecting global
	// handle: acquire at startup, health-check, and fail fast.
	pgDB.SetMaxOpenConns(16)
	pgDB.SetMaxIdleConns(4)
	pgDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pgDB.PingContext(ctx); err != nil {
		pgDB.Close()
		return nil, errors.Wrapf(store.ErrUnavailable, "failed to ping database: %v", err)
	}

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the image schema. The embedding column representation is
// chosen here: vector(512) with an IVFFlat cosine index when the pgvector
// extension is present or can be created, JSONB otherwise.
func (d *DB) Migrate(ctx context.Context) error {
	hasVector, err := d.probeVectorExtension(ctx)
	if err != nil {
		return err
	}
	if !hasVector {
		// Best effort; the extension may need superuser rights.
		if _, err := d.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err == nil {
			hasVector, err = d.probeVectorExtension(ctx)
			if err != nil {
				return err
			}
		}
	}
	d.hasVector = hasVector

	embeddingColumn := "embedding JSONB NOT NULL"
	if hasVector {
		embeddingColumn = "embedding vector(" + strconv.Itoa(store.EmbeddingDim) + ") NOT NULL"
	}

	stmt := `
		CREATE TABLE IF NOT EXISTS image (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL,
			creator_username TEXT,
			permalink_url TEXT NOT NULL DEFAULT '',
			media_id TEXT NOT NULL DEFAULT '',
			media_type TEXT NOT NULL DEFAULT '',
			caption TEXT,
			width INT,
			height INT,
			` + embeddingColumn + `,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL,
			UNIQUE (source, source_id)
		)
	`
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to create image table")
	}

	if _, err := d.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_image_creator_username ON image (creator_username)"); err != nil {
		return errors.Wrap(err, "failed to create creator index")
	}

	if hasVector {
		if _, err := d.db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_image_embedding
			ON image USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100)
		`); err != nil {
			return errors.Wrap(err, "failed to create embedding index")
		}
	}

	return nil
}

func (d *DB) probeVectorExtension(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(store.ErrUnavailable, "failed to probe vector extension: %v", err)
	}
	return exists, nil
}

// SupportsVectorIndex reports whether native in-database ranking is usable:
// the pgvector extension must exist and the cosine index must cover the
// embedding column.
func (d *DB) SupportsVectorIndex(ctx context.Context) (bool, error) {
	hasVector, err := d.probeVectorExtension(ctx)
	if err != nil || !hasVector {
		return false, err
	}
	var hasIndex bool
	err = d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE tablename = 'image' AND indexname = 'idx_image_embedding')").Scan(&hasIndex)
	if err != nil {
		return false, errors.Wrapf(store.ErrUnavailable, "failed to probe embedding index: %v", err)
	}
	return hasIndex, nil
}

// encodeEmbedding converts a vector to the active column representation.
func (d *DB) encodeEmbedding(vec []float32) (any, error) {
	if d.hasVector {
		return pgvector.NewVector(vec), nil
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding")
	}
	return raw, nil
}

// embeddingScanner returns a scan destination and a decoder for the active
// embedding representation.
func (d *DB) embeddingScanner() (dest any, decode func() ([]float32, error)) {
	if d.hasVector {
		v := &pgvector.Vector{}
		return v, func() ([]float32, error) { return v.Slice(), nil }
	}
	var raw []byte
	return &raw, func() ([]float32, error) {
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal embedding")
		}
		return vec, nil
	}
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/glowmatch/glowmatch/internal/profile"
	"github.com/glowmatch/glowmatch/store"
)

// DB is the SQLite driver. Embeddings are stored as little-endian float32
// BLOBs and there is no native similarity index: SupportsVectorIndex always
// reports false, so ranking runs in the in-process brute-force engine.
// Intended for development and single-user deployments.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database for the given profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode avoids reader/writer lock contention; the
	// busy_timeout covers the remaining write serialization.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the image schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
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
			width INTEGER,
			height INTEGER,
			embedding BLOB NOT NULL,
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
	return nil
}

// SupportsVectorIndex always reports false: SQLite has no vector index
// here, similarity runs in the application layer.
func (d *DB) SupportsVectorIndex(_ context.Context) (bool, error) {
	return false, nil
}

// VectorSearch is not supported in SQLite; the brute-force engine handles
// ranking via IterateImageEmbeddings.
func (d *DB) VectorSearch(_ context.Context, _ *store.VectorSearchOptions) ([]*store.ImageMatch, error) {
	return nil, errors.New("native vector search not supported in SQLite")
}

// VectorSearchByCreator is not supported in SQLite; see VectorSearch.
func (d *DB) VectorSearchByCreator(_ context.Context, _ *store.CreatorVectorSearchOptions) ([]*store.CreatorMatch, error) {
	return nil, errors.New("native vector search not supported in SQLite")
}

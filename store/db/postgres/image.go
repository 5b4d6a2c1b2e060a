package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/store"
)

const imageColumns = "id, source, source_id, creator_username, permalink_url, media_id, media_type, caption, width, height, created_ts, updated_ts"

// UpsertImage inserts or replaces an image row. On (source, source_id)
// conflict the whole row is replaced atomically while the id survives.
func (d *DB) UpsertImage(ctx context.Context, upsert *store.UpsertImage) (*store.Image, error) {
	embedding, err := d.encodeEmbedding(upsert.Embedding)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	stmt := `
		INSERT INTO image (` + imageColumns + `, embedding)
		VALUES (` + placeholders(13) + `)
		ON CONFLICT (source, source_id)
		DO UPDATE SET
			creator_username = EXCLUDED.creator_username,
			permalink_url = EXCLUDED.permalink_url,
			media_id = EXCLUDED.media_id,
			media_type = EXCLUDED.media_type,
			caption = EXCLUDED.caption,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	image := &store.Image{
		Source:          upsert.Source,
		SourceID:        upsert.SourceID,
		CreatorUsername: upsert.CreatorUsername,
		PermalinkURL:    upsert.PermalinkURL,
		MediaID:         upsert.MediaID,
		MediaType:       upsert.MediaType,
		Caption:         upsert.Caption,
		Width:           upsert.Width,
		Height:          upsert.Height,
		Embedding:       upsert.Embedding,
	}

	err = d.db.QueryRowContext(ctx, stmt,
		uuid.New().String(),
		upsert.Source,
		upsert.SourceID,
		nullString(upsert.CreatorUsername),
		upsert.PermalinkURL,
		upsert.MediaID,
		upsert.MediaType,
		nullString(upsert.Caption),
		nullInt32(upsert.Width),
		nullInt32(upsert.Height),
		now,
		now,
		embedding,
	).Scan(&image.ID, &image.CreatedTs, &image.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert image")
	}

	return image, nil
}

// GetImage returns the image with the given id, embedding included.
func (d *DB) GetImage(ctx context.Context, id string) (*store.Image, error) {
	dest, decode := d.embeddingScanner()
	query := `SELECT ` + imageColumns + `, embedding FROM image WHERE id = ` + placeholder(1)

	image, err := scanImage(d.db.QueryRowContext(ctx, query, id), dest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "image %s", id)
		}
		return nil, errors.Wrap(err, "failed to get image")
	}
	if image.Embedding, err = decode(); err != nil {
		return nil, err
	}
	return image, nil
}

// ListImages lists image rows without embeddings (metadata only).
func (d *DB) ListImages(ctx context.Context, find *store.FindImage) ([]*store.Image, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Source != nil {
		where, args = append(where, "source = "+placeholder(len(args)+1)), append(args, *find.Source)
	}
	if find.CreatorUsername != nil {
		where, args = append(where, "creator_username = "+placeholder(len(args)+1)), append(args, *find.CreatorUsername)
	}

	query := `SELECT ` + imageColumns + ` FROM image WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id`
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list images")
	}
	defer rows.Close()

	list := []*store.Image{}
	for rows.Next() {
		image, err := scanImage(rows, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan image")
		}
		list = append(list, image)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteImagesByCreator removes every row belonging to the creator and
// returns the number of rows purged. Used by the refresh flow before
// re-ingesting a fresh batch.
func (d *DB) DeleteImagesByCreator(ctx context.Context, creatorUsername string) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM image WHERE creator_username = `+placeholder(1), creatorUsername)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete images by creator")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted images")
	}
	return count, nil
}

func (d *DB) CountImages(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count images")
	}
	return count, nil
}

// IterateImageEmbeddings streams all rows with their embeddings in
// insertion order. The scan is read-committed: concurrent upserts may or
// may not be observed.
func (d *DB) IterateImageEmbeddings(ctx context.Context, fn func(*store.Image) error) error {
	query := `SELECT ` + imageColumns + `, embedding FROM image ORDER BY created_ts, id`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "failed to scan image embeddings")
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest, decode := d.embeddingScanner()
		image, err := scanImage(rows, dest)
		if err != nil {
			return errors.Wrap(err, "failed to scan image")
		}
		if image.Embedding, err = decode(); err != nil {
			return err
		}
		if err := fn(image); err != nil {
			return err
		}
	}
	return rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanImage reads one image row. extraDest, when non-nil, receives the
// trailing selected column (the embedding or a computed score).
func scanImage(row rowScanner, extraDest any) (*store.Image, error) {
	var image store.Image
	var creator, caption sql.NullString
	var width, height sql.NullInt32

	dests := []any{
		&image.ID,
		&image.Source,
		&image.SourceID,
		&creator,
		&image.PermalinkURL,
		&image.MediaID,
		&image.MediaType,
		&caption,
		&width,
		&height,
		&image.CreatedTs,
		&image.UpdatedTs,
	}
	if extraDest != nil {
		dests = append(dests, extraDest)
	}
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	image.CreatorUsername = fromNullString(creator)
	image.Caption = fromNullString(caption)
	image.Width = fromNullInt32(width)
	image.Height = fromNullInt32(height)
	return &image, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullInt32(n *int32) sql.NullInt32 {
	if n == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *n, Valid: true}
}

func fromNullInt32(n sql.NullInt32) *int32 {
	if !n.Valid {
		return nil
	}
	return &n.Int32
}

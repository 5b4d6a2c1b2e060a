package sqlite

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
	vectorBLOB, err := float32ArrayToBLOB(upsert.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert embedding vector to BLOB")
	}

	now := time.Now().Unix()
	stmt := `
		INSERT INTO image (` + imageColumns + `, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, source_id) DO UPDATE SET
			creator_username = excluded.creator_username,
			permalink_url = excluded.permalink_url,
			media_id = excluded.media_id,
			media_type = excluded.media_type,
			caption = excluded.caption,
			width = excluded.width,
			height = excluded.height,
			embedding = excluded.embedding,
			updated_ts = excluded.updated_ts
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
		vectorBLOB,
	).Scan(&image.ID, &image.CreatedTs, &image.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert image")
	}

	return image, nil
}

// GetImage returns the image with the given id, embedding included.
func (d *DB) GetImage(ctx context.Context, id string) (*store.Image, error) {
	query := `SELECT ` + imageColumns + `, embedding FROM image WHERE id = ?`

	var blob []byte
	image, err := scanImage(d.db.QueryRowContext(ctx, query, id), &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "image %s", id)
		}
		return nil, errors.Wrap(err, "failed to get image")
	}
	if image.Embedding, err = blobToFloat32Array(blob); err != nil {
		return nil, errors.Wrap(err, "failed to convert embedding BLOB to array")
	}
	return image, nil
}

// ListImages lists image rows without embeddings (metadata only).
func (d *DB) ListImages(ctx context.Context, find *store.FindImage) ([]*store.Image, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Source != nil {
		where, args = append(where, "source = ?"), append(args, *find.Source)
	}
	if find.CreatorUsername != nil {
		where, args = append(where, "creator_username = ?"), append(args, *find.CreatorUsername)
	}

	query := `SELECT ` + imageColumns + ` FROM image WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
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
// returns the number of rows purged.
func (d *DB) DeleteImagesByCreator(ctx context.Context, creatorUsername string) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM image WHERE creator_username = ?`, creatorUsername)
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
// insertion order.
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
		var blob []byte
		image, err := scanImage(rows, &blob)
		if err != nil {
			return errors.Wrap(err, "failed to scan image")
		}
		if image.Embedding, err = blobToFloat32Array(blob); err != nil {
			return errors.Wrap(err, "failed to convert embedding BLOB to array")
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

// scanImage reads one image row. blobDest, when non-nil, receives the raw
// embedding BLOB.
func scanImage(row rowScanner, blobDest *[]byte) (*store.Image, error) {
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
	if blobDest != nil {
		dests = append(dests, blobDest)
	}
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	if creator.Valid {
		image.CreatorUsername = &creator.String
	}
	if caption.Valid {
		image.Caption = &caption.String
	}
	if width.Valid {
		image.Width = &width.Int32
	}
	if height.Valid {
		image.Height = &height.Int32
	}
	return &image, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt32(n *int32) sql.NullInt32 {
	if n == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *n, Valid: true}
}

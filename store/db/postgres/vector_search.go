package postgres

import (
	"context"
	"sort"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/store"
)

// VectorSearch ranks embeddings with the pgvector cosine distance operator.
// The <=> operator returns cosine distance (1 - cosine_similarity), so
// ordering by distance ascending yields the most similar rows first.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ImageMatch, error) {
	if !d.hasVector {
		return nil, errors.New("vector search requires the pgvector extension")
	}

	query := `
		SELECT ` + imageColumns + `,
			1 - (embedding <=> ` + placeholder(1) + `) AS score
		FROM image
		ORDER BY embedding <=> ` + placeholder(2) + `
		LIMIT ` + placeholder(3)

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query, vector, vector, opts.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.ImageMatch{}
	for rows.Next() {
		var match store.ImageMatch
		image, err := scanImage(rows, &match.Score)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		match.Image = image
		results = append(results, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// VectorSearchByCreator finds the best-matching image per distinct creator
// in a single pass. DISTINCT ON keeps the nearest row within each creator
// partition; the final ordering by score happens here since DISTINCT ON
// requires the partition key to lead the ORDER BY.
func (d *DB) VectorSearchByCreator(ctx context.Context, opts *store.CreatorVectorSearchOptions) ([]*store.CreatorMatch, error) {
	if !d.hasVector {
		return nil, errors.New("vector search requires the pgvector extension")
	}

	query := `
		SELECT DISTINCT ON (creator_username) ` + imageColumns + `,
			1 - (embedding <=> ` + placeholder(1) + `) AS score
		FROM image
		WHERE creator_username IS NOT NULL
		ORDER BY creator_username, embedding <=> ` + placeholder(2)

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query, vector, vector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search by creator")
	}
	defer rows.Close()

	results := []*store.CreatorMatch{}
	for rows.Next() {
		var match store.CreatorMatch
		var score float64
		image, err := scanImage(rows, &score)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan creator search result")
		}
		match.Image = image
		match.Score = score
		if image.CreatorUsername != nil {
			match.CreatorUsername = *image.CreatorUsername
		}
		results = append(results, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort: creators tied on best score keep their scan order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

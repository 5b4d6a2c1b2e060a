package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validEmbedding() []float32 {
	v := make([]float32, EmbeddingDim)
	v[0] = 1
	return v
}

func TestUpsertImageValidate(t *testing.T) {
	tests := []struct {
		name    string
		upsert  UpsertImage
		wantErr bool
	}{
		{
			name:   "valid",
			upsert: UpsertImage{Source: "instagram", SourceID: "abc", Embedding: validEmbedding()},
		},
		{
			name:    "missing source",
			upsert:  UpsertImage{SourceID: "abc", Embedding: validEmbedding()},
			wantErr: true,
		},
		{
			name:    "missing source id",
			upsert:  UpsertImage{Source: "instagram", Embedding: validEmbedding()},
			wantErr: true,
		},
		{
			name:    "short embedding",
			upsert:  UpsertImage{Source: "instagram", SourceID: "abc", Embedding: []float32{1, 2, 3}},
			wantErr: true,
		},
		{
			name:    "no embedding",
			upsert:  UpsertImage{Source: "instagram", SourceID: "abc"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.upsert.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestVectorSearchOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    VectorSearchOptions
		wantErr bool
	}{
		{
			name: "valid",
			opts: VectorSearchOptions{Vector: validEmbedding(), Limit: 10},
		},
		{
			name:    "wrong dimension",
			opts:    VectorSearchOptions{Vector: make([]float32, 128), Limit: 10},
			wantErr: true,
		},
		{
			name:    "zero limit",
			opts:    VectorSearchOptions{Vector: validEmbedding(), Limit: 0},
			wantErr: true,
		},
		{
			name:    "negative limit",
			opts:    VectorSearchOptions{Vector: validEmbedding(), Limit: -1},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCreatorVectorSearchOptionsValidate(t *testing.T) {
	require.NoError(t, (&CreatorVectorSearchOptions{Vector: validEmbedding()}).Validate())
	require.ErrorIs(t, (&CreatorVectorSearchOptions{Vector: nil}).Validate(), ErrInvalidQuery)
}

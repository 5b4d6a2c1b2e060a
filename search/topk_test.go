package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopKKeepsBest(t *testing.T) {
	top := newTopK(3)
	scores := []float64{0.2, 0.9, 0.1, 0.5, 0.8, 0.3}
	for seq, score := range scores {
		top.Push(scoredImage{seq: seq, score: score})
	}

	ranked := top.Ranked()
	require.Len(t, ranked, 3)
	require.Equal(t, 0.9, ranked[0].score)
	require.Equal(t, 0.8, ranked[1].score)
	require.Equal(t, 0.5, ranked[2].score)
}

func TestTopKUnderfilled(t *testing.T) {
	top := newTopK(10)
	top.Push(scoredImage{seq: 0, score: 0.4})
	top.Push(scoredImage{seq: 1, score: 0.6})

	ranked := top.Ranked()
	require.Len(t, ranked, 2)
	require.Equal(t, 0.6, ranked[0].score)
	require.Equal(t, 0.4, ranked[1].score)
}

func TestTopKTieBreaksOnScanOrder(t *testing.T) {
	top := newTopK(2)
	top.Push(scoredImage{seq: 0, score: 0.5})
	top.Push(scoredImage{seq: 1, score: 0.5})
	top.Push(scoredImage{seq: 2, score: 0.5})

	ranked := top.Ranked()
	require.Len(t, ranked, 2)
	require.Equal(t, 0, ranked[0].seq)
	require.Equal(t, 1, ranked[1].seq)
}

func TestTopKLateTieDoesNotEvict(t *testing.T) {
	top := newTopK(1)
	top.Push(scoredImage{seq: 0, score: 0.7})
	top.Push(scoredImage{seq: 1, score: 0.7})

	ranked := top.Ranked()
	require.Len(t, ranked, 1)
	require.Equal(t, 0, ranked[0].seq)
}

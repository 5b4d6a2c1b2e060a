package search

import (
	"sort"

	"github.com/glowmatch/glowmatch/store"
)

// scoredImage pairs a scanned record with its score. The sequence number is
// the deterministic tie-breaker: among equal scores, the earlier-scanned
// record wins.
type scoredImage struct {
	image *store.Image
	seq   int
	score float64
}

// topK is a bounded selection over scored scan positions: a min-heap of
// size k whose root is the current worst kept item. Pushing is O(log k), so
// a full scan stays O(n log k) regardless of store size.
type topK struct {
	k     int
	items []scoredImage
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]scoredImage, 0, k)}
}

// worse reports whether a ranks below b: lower score, or same score but
// scanned later.
func worse(a, b scoredImage) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.seq > b.seq
}

// Push offers an item. When the heap is full the item only enters if it
// outranks the current worst, which it then evicts.
func (t *topK) Push(item scoredImage) {
	if len(t.items) < t.k {
		t.items = append(t.items, item)
		t.siftUp(len(t.items) - 1)
		return
	}
	if worse(item, t.items[0]) {
		return
	}
	t.items[0] = item
	t.siftDown(0)
}

// Ranked returns the kept items in final order, best first.
func (t *topK) Ranked() []scoredImage {
	out := make([]scoredImage, len(t.items))
	copy(out, t.items)
	sort.Slice(out, func(i, j int) bool {
		return worse(out[j], out[i])
	})
	return out
}

func (t *topK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(t.items[i], t.items[p]) {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *topK) siftDown(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && worse(t.items[r], t.items[l]) {
			worst = r
		}
		if !worse(t.items[worst], t.items[i]) {
			return
		}
		t.items[i], t.items[worst] = t.items[worst], t.items[i]
		i = worst
	}
}

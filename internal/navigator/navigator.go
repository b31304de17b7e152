// Package navigator splits a dataset into fixed-size chunks and tracks the
// position of the displayed sentence inside the selected chunk.
package navigator

import (
	"github.com/dgnsrekt/parrot/internal/dataset"
)

const (
	// DefaultChunkSize is the number of sentences per chunk.
	DefaultChunkSize = 10

	MinChunkSize = 1
	MaxChunkSize = 100
)

// Navigator is not safe for concurrent use; the session confines it to the
// event loop.
type Navigator struct {
	all   []dataset.Sentence
	size  int
	chunk int
	index int

	// active is a sub-slice of all for the selected chunk.
	active []dataset.Sentence
}

// New returns a navigator over all, in chunks of size.
func New(all []dataset.Sentence, size int) *Navigator {
	n := &Navigator{size: clampSize(size)}
	n.SetDataset(all)
	return n
}

func clampSize(size int) int {
	switch {
	case size < MinChunkSize:
		return MinChunkSize
	case size > MaxChunkSize:
		return MaxChunkSize
	default:
		return size
	}
}

// SetDataset replaces the full dataset, keeping the selected chunk number
// when it is still valid.
func (n *Navigator) SetDataset(all []dataset.Sentence) {
	n.all = all
	n.SelectChunk(n.chunk)
}

// SetChunkSize changes the chunk size, clamped to [MinChunkSize,
// MaxChunkSize], and reloads the selected chunk. It returns the size in use.
func (n *Navigator) SetChunkSize(size int) int {
	n.size = clampSize(size)
	n.SelectChunk(n.chunk)
	return n.size
}

// SelectChunk makes chunk c the active list and resets the position to its
// first sentence. Out of range values are clamped. It returns the chunk
// actually selected.
func (n *Navigator) SelectChunk(c int) int {
	last := n.NumChunks() - 1
	if c > last {
		c = last
	}
	if c < 0 {
		c = 0
	}
	n.chunk = c
	n.index = 0

	start, end := n.Bounds(c)
	n.active = n.all[start:end:end]
	return c
}

// Bounds returns the half-open [start, end) range of chunk c in the full
// dataset. Chunks past the end are empty.
func (n *Navigator) Bounds(c int) (start, end int) {
	total := len(n.all)
	start = c * n.size
	if start > total || c < 0 {
		return total, total
	}
	end = start + n.size
	if end > total {
		end = total
	}
	return start, end
}

// NumChunks is ceil(total/size).
func (n *Navigator) NumChunks() int {
	return (len(n.all) + n.size - 1) / n.size
}

// Next moves to the following sentence. It reports false at the end.
func (n *Navigator) Next() bool {
	if n.index+1 >= len(n.active) {
		return false
	}
	n.index++
	return true
}

// Previous moves to the preceding sentence. It reports false at the start.
func (n *Navigator) Previous() bool {
	if n.index <= 0 {
		return false
	}
	n.index--
	return true
}

// Jump moves to position i of the active chunk. It reports false, leaving the
// position unchanged, when i is out of range.
func (n *Navigator) Jump(i int) bool {
	if i < 0 || i >= len(n.active) {
		return false
	}
	n.index = i
	return true
}

// Current returns the displayed sentence.
func (n *Navigator) Current() (dataset.Sentence, bool) {
	if len(n.active) == 0 {
		return dataset.Sentence{}, false
	}
	return n.active[n.index], true
}

// At returns sentence i of the active chunk.
func (n *Navigator) At(i int) (dataset.Sentence, bool) {
	if i < 0 || i >= len(n.active) {
		return dataset.Sentence{}, false
	}
	return n.active[i], true
}

// Sentences returns the active chunk. The slice shares storage with the
// dataset and must not be modified.
func (n *Navigator) Sentences() []dataset.Sentence { return n.active }

// Index returns the position of the displayed sentence within the chunk.
func (n *Navigator) Index() int { return n.index }

// Len is the number of sentences in the active chunk.
func (n *Navigator) Len() int { return len(n.active) }

// Chunk returns the selected chunk number, starting at 0.
func (n *Navigator) Chunk() int { return n.chunk }

// ChunkSize returns the chunk size in use.
func (n *Navigator) ChunkSize() int { return n.size }

// Total is the number of sentences in the whole dataset.
func (n *Navigator) Total() int { return len(n.all) }

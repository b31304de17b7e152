package prefetch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/parrot/internal/dataset"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, src string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, src)
	if err := f.fail[src]; err != nil {
		return nil, err
	}
	return []byte(src), nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sentence(id string) dataset.Sentence {
	return dataset.Sentence{ID: id, SourceAudio: "fr/" + id, TranslationAudio: "en/" + id}
}

func drain(t *testing.T, q *Queue) []string {
	t.Helper()
	var out []string
	for q.Size() > 0 {
		src, err := q.Dequeue()
		require.NoError(t, err)
		out = append(out, src)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func TestQueue_PriorityOrder(t *testing.T) {
	q := newQueue(&fakeFetcher{}, Options{})

	for _, op := range []struct {
		src string
		p   Priority
	}{
		{"a", PriorityLow},
		{"b", PriorityLow},
		{"c", PriorityHigh},
		{"d", PriorityHigh},
	} {
		require.NoError(t, q.Enqueue(op.src, op.p), op.src)
	}

	assert.Equal(t, "c,d,a,b", strings.Join(drain(t, q), ","))
}

func TestQueue_Deduplicates(t *testing.T) {
	q := newQueue(&fakeFetcher{}, Options{})

	_ = q.Enqueue("a", PriorityLow)
	_ = q.Enqueue("a", PriorityHigh)
	_ = q.Enqueue("", PriorityHigh)

	assert.Equal(t, 1, q.Size())
}

func TestQueue_Full(t *testing.T) {
	q := newQueue(&fakeFetcher{}, Options{MaxSize: 2})

	_ = q.Enqueue("a", PriorityLow)
	_ = q.Enqueue("b", PriorityLow)
	assert.ErrorIs(t, q.Enqueue("c", PriorityLow), ErrQueueFull)

	stats := q.Stats()
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, int64(2), stats.Enqueued)
	assert.Equal(t, 2, stats.PeakSize)
}

func TestQueue_Filter(t *testing.T) {
	q := newQueue(&fakeFetcher{}, Options{
		Filter: func(src string) bool { return strings.HasPrefix(src, "https://") },
	})

	_ = q.Enqueue("local.mp3", PriorityHigh)
	_ = q.Enqueue("https://example.com/a.mp3", PriorityHigh)

	assert.Equal(t, []string{"https://example.com/a.mp3"}, drain(t, q))
}

func TestQueue_PrefetchReplacesLookahead(t *testing.T) {
	q := newQueue(&fakeFetcher{}, Options{})

	q.Prefetch(sentence("0"), []dataset.Sentence{sentence("1"), sentence("2")})
	require.Equal(t, 6, q.Size())

	q.Prefetch(sentence("3"), []dataset.Sentence{sentence("4")})
	assert.Equal(t, "fr/0,en/0,fr/3,en/3,fr/4,en/4", strings.Join(drain(t, q), ","))
}

func TestQueue_Clear(t *testing.T) {
	q := newQueue(&fakeFetcher{}, Options{})

	q.Prefetch(sentence("0"), []dataset.Sentence{sentence("1")})
	q.Clear()
	assert.Zero(t, q.Size())

	// Cleared sources can be scheduled again.
	_ = q.Enqueue("fr/0", PriorityHigh)
	assert.Equal(t, 1, q.Size())
}

func TestQueue_WorkersFetchOnce(t *testing.T) {
	f := &fakeFetcher{}
	q := New(f, Options{Workers: 2})
	defer q.Close() //nolint:errcheck

	q.Prefetch(sentence("0"), []dataset.Sentence{sentence("1")})
	waitFor(t, func() bool { return q.Stats().Fetched == 4 })

	q.Prefetch(sentence("0"), []dataset.Sentence{sentence("1")})
	assert.Zero(t, q.Size(), "fetched clips were queued again")
	assert.Equal(t, 4, f.count())
}

func TestQueue_FailedFetchCanRetry(t *testing.T) {
	f := &fakeFetcher{fail: map[string]error{"bad": errors.New("boom")}}
	q := New(f, Options{Workers: 1})
	defer q.Close() //nolint:errcheck

	_ = q.Enqueue("bad", PriorityHigh)
	waitFor(t, func() bool { return q.Stats().Failed == 1 })

	require.NoError(t, q.Enqueue("bad", PriorityHigh))
	waitFor(t, func() bool { return q.Stats().Failed == 2 })
}

func TestQueue_Close(t *testing.T) {
	q := New(&fakeFetcher{}, Options{})

	require.NoError(t, q.Close())
	assert.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue("a", PriorityHigh), ErrQueueClosed)
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueClosed)
}

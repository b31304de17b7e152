package prefetch

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/parrot/internal/dataset"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
)

const (
	DefaultMaxSize = 32
	DefaultWorkers = 2
)

// Fetcher fetches clip bytes. *audio.Fetcher satisfies it; when it has a
// store, a successful fetch leaves the clip cached.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// Priority orders pending fetches.
type Priority int

const (
	// PriorityLow is lookahead work.
	PriorityLow Priority = iota
	// PriorityHigh is the sentence on screen.
	PriorityHigh
)

// Options configures a Queue.
type Options struct {
	// MaxSize bounds the pending fetches. Enqueue drops past it.
	MaxSize int

	// Workers is the number of concurrent fetches.
	Workers int

	// Filter reports whether src is worth fetching ahead, typically only
	// remote clips. Nil accepts everything.
	Filter func(src string) bool
}

// Stats tracks queue activity.
type Stats struct {
	Enqueued  int64
	Dropped   int64
	Fetched   int64
	Failed    int64
	Pending   int
	PeakSize  int
	LastFetch time.Time
}

// Queue fetches clips in priority order on a pool of workers. Enqueue never
// blocks, so it can be called from the session's event loop.
type Queue struct {
	fetch   Fetcher
	filter  func(string) bool
	maxSize int
	workers int

	mu       sync.Mutex
	notEmpty *sync.Cond
	items    itemHeap
	seq      uint64
	queued   map[string]struct{} // pending or in flight
	fetched  map[string]struct{}
	closed   bool
	stats    Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue and starts its workers.
func New(f Fetcher, opts Options) *Queue {
	q := newQueue(f, opts)
	for range q.workers {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func newQueue(f Fetcher, opts Options) *Queue {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		fetch:   f,
		filter:  opts.Filter,
		maxSize: opts.MaxSize,
		workers: opts.Workers,
		queued:  make(map[string]struct{}),
		fetched: make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	heap.Init(&q.items)
	return q
}

// Enqueue schedules src. Sources already pending, in flight or fetched are
// ignored, as are those the filter rejects.
func (q *Queue) Enqueue(src string, p Priority) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueue(src, p)
}

func (q *Queue) enqueue(src string, p Priority) error {
	if q.closed {
		return ErrQueueClosed
	}
	if src == "" {
		return nil
	}
	if _, ok := q.queued[src]; ok {
		return nil
	}
	if _, ok := q.fetched[src]; ok {
		return nil
	}
	if q.filter != nil && !q.filter(src) {
		return nil
	}
	if q.items.Len() >= q.maxSize {
		q.stats.Dropped++
		return ErrQueueFull
	}

	q.seq++
	heap.Push(&q.items, &item{src: src, priority: p, seq: q.seq})
	q.queued[src] = struct{}{}
	q.stats.Enqueued++
	q.stats.PeakSize = max(q.stats.PeakSize, q.items.Len())
	q.notEmpty.Signal()
	return nil
}

// Prefetch replaces the pending lookahead with the clips of current, at
// high priority, followed by those of upcoming.
func (q *Queue) Prefetch(current dataset.Sentence, upcoming []dataset.Sentence) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dropLow()
	err := errors.Join(
		q.enqueue(current.SourceAudio, PriorityHigh),
		q.enqueue(current.TranslationAudio, PriorityHigh),
	)
	for _, s := range upcoming {
		err = errors.Join(err,
			q.enqueue(s.SourceAudio, PriorityLow),
			q.enqueue(s.TranslationAudio, PriorityLow),
		)
	}
	if err != nil {
		log.Debug("prefetch incomplete", "sentence", current.ID, "error", err)
	}
}

// dropLow discards pending lookahead work. Callers hold q.mu.
func (q *Queue) dropLow() {
	kept := q.items[:0]
	for _, it := range q.items {
		if it.priority == PriorityLow {
			delete(q.queued, it.src)
			continue
		}
		kept = append(kept, it)
	}
	q.items = kept
	heap.Init(&q.items)
}

// Dequeue removes and returns the next source, waiting while the queue is
// empty.
func (q *Queue) Dequeue() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.closed {
		return "", ErrQueueClosed
	}
	return heap.Pop(&q.items).(*item).src, nil
}

// Size returns the number of pending fetches.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Clear drops every pending fetch.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.items {
		delete(q.queued, it.src)
	}
	q.items = q.items[:0]
}

// Stats returns current queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stats
	s.Pending = q.items.Len()
	return s
}

// Close cancels in-flight fetches and waits for the workers to exit.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	return nil
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		src, err := q.Dequeue()
		if err != nil {
			return
		}

		_, err = q.fetch.Fetch(q.ctx, src)

		q.mu.Lock()
		delete(q.queued, src)
		if err != nil {
			q.stats.Failed++
		} else {
			q.fetched[src] = struct{}{}
			q.stats.Fetched++
			q.stats.LastFetch = time.Now()
		}
		q.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("prefetch failed", "src", src, "error", err)
		}
	}
}

type item struct {
	src      string
	priority Priority
	seq      uint64
	index    int // in the heap
}

// itemHeap orders by priority, then by enqueue order.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

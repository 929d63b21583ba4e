// Package queue serializes discussion processing: one worker, FIFO order,
// at-most-once per discussion while the id stays in the seen window.
package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// ProcessFunc handles one discussion id. A returned error marks the id
// unprocessed again so a later webhook can retry it.
type ProcessFunc func(ctx context.Context, discussionID int64) error

// Options tune the queue. Zero values get sane defaults.
type Options struct {
	// InterItemDelay is the pause between consecutive items, spacing out
	// LLM and forum traffic.
	InterItemDelay time.Duration
	// ItemTimeout bounds the processing of a single discussion.
	ItemTimeout time.Duration
	// SeenLimit is how many processed ids are remembered for dedupe once
	// the queue drains.
	SeenLimit int
}

// Queue is an in-process FIFO with duplicate suppression. Enqueue is
// non-blocking; a single drain goroutine owns processing so replies are
// strictly serialized.
type Queue struct {
	process ProcessFunc
	opts    Options
	logger  *log.Logger

	mu        sync.Mutex
	pending   []int64
	inQueue   map[int64]struct{}
	seen      map[int64]struct{}
	seenOrder []int64
	busy      bool

	baseCtx context.Context
	wg      sync.WaitGroup
}

// Status is a snapshot of the queue, served by the health endpoint.
type Status struct {
	Pending int  `json:"pending"`
	Busy    bool `json:"busy"`
	Seen    int  `json:"seen"`
}

// New builds a Queue. baseCtx cancels in-flight processing on shutdown.
func New(baseCtx context.Context, process ProcessFunc, opts Options, logger *log.Logger) *Queue {
	if opts.InterItemDelay <= 0 {
		opts.InterItemDelay = 2 * time.Second
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 5 * time.Minute
	}
	if opts.SeenLimit <= 0 {
		opts.SeenLimit = 100
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[QUEUE] ", log.LstdFlags)
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Queue{
		process: process,
		opts:    opts,
		logger:  logger,
		inQueue: make(map[int64]struct{}),
		seen:    make(map[int64]struct{}),
		baseCtx: baseCtx,
	}
}

// Enqueue adds a discussion id unless it is already pending or recently
// processed. Returns true when the id was accepted. Starts the drain
// goroutine when the queue is idle.
func (q *Queue) Enqueue(discussionID int64) bool {
	q.mu.Lock()
	if _, dup := q.inQueue[discussionID]; dup {
		q.mu.Unlock()
		q.logger.Printf("discussion %d already queued, ignoring", discussionID)
		return false
	}
	if _, done := q.seen[discussionID]; done {
		q.mu.Unlock()
		q.logger.Printf("discussion %d already processed, ignoring", discussionID)
		return false
	}
	q.pending = append(q.pending, discussionID)
	q.inQueue[discussionID] = struct{}{}
	start := !q.busy
	if start {
		q.busy = true
	}
	q.mu.Unlock()

	if start {
		q.wg.Add(1)
		go q.drain()
	}
	return true
}

// Status reports the current queue state.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{Pending: len(q.pending), Busy: q.busy, Seen: len(q.seen)}
}

// Wait blocks until the current drain finishes. Used on shutdown and in
// tests.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// drain processes pending ids one at a time until the queue empties.
func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 || q.baseCtx.Err() != nil {
			q.busy = false
			q.pruneSeenLocked()
			q.mu.Unlock()
			return
		}
		id := q.pending[0]
		q.pending = q.pending[1:]
		delete(q.inQueue, id)
		// Mark seen before processing so a webhook retry arriving
		// mid-flight does not double-queue; rolled back on failure.
		q.markSeenLocked(id)
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(q.baseCtx, q.opts.ItemTimeout)
		err := q.process(ctx, id)
		cancel()
		if err != nil {
			q.logger.Printf("processing discussion %d failed: %v", id, err)
			q.mu.Lock()
			q.unmarkSeenLocked(id)
			q.mu.Unlock()
		}

		q.mu.Lock()
		more := len(q.pending) > 0
		q.mu.Unlock()
		if more {
			select {
			case <-time.After(q.opts.InterItemDelay):
			case <-q.baseCtx.Done():
			}
		}
	}
}

func (q *Queue) markSeenLocked(id int64) {
	if _, ok := q.seen[id]; ok {
		return
	}
	q.seen[id] = struct{}{}
	q.seenOrder = append(q.seenOrder, id)
}

func (q *Queue) unmarkSeenLocked(id int64) {
	if _, ok := q.seen[id]; !ok {
		return
	}
	delete(q.seen, id)
	for i, v := range q.seenOrder {
		if v == id {
			q.seenOrder = append(q.seenOrder[:i], q.seenOrder[i+1:]...)
			break
		}
	}
}

// pruneSeenLocked keeps only the newest SeenLimit ids once the queue is
// idle, bounding memory over a long-lived process.
func (q *Queue) pruneSeenLocked() {
	excess := len(q.seenOrder) - q.opts.SeenLimit
	if excess <= 0 {
		return
	}
	for _, id := range q.seenOrder[:excess] {
		delete(q.seen, id)
	}
	q.seenOrder = append([]int64(nil), q.seenOrder[excess:]...)
}

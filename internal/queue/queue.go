// Package queue implements the Command Queue: a priority queue with FIFO
// ordering within a priority tier and preemption of the running item by a
// strictly higher-priority arrival (spec.md §4.1).
//
// There is no priority-queue library anywhere in the example corpus, so this
// is built on the standard library's container/heap (documented in
// DESIGN.md) the way the teacher builds its own small data structures
// (e.g. the sniper's cooldown map) directly rather than reaching for a dep.
package queue

import (
	"container/heap"
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/web3guy0/polybot/internal/domain"
)

// Item is one unit of work submitted to the Command Queue (spec.md §3
// QueueItem).
type Item struct {
	ID          string
	Priority    domain.Priority
	Preemptible bool
	Run         func(ctx context.Context) error

	seq int64 // FIFO tiebreaker within a priority tier
}

type heapEntry struct {
	item Item
}

type priorityHeap []*heapEntry

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].item.Priority != h[j].item.Priority {
		return h[i].item.Priority > h[j].item.Priority // higher priority first
	}
	return h[i].item.seq < h[j].item.seq // FIFO within a tier
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)   { *h = append(*h, x.(*heapEntry)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is the single-consumer, many-producer priority command queue
// (spec.md §4.1, §5 "single-threaded event loop").
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	h        priorityHeap
	nextSeq  int64
	running  *Item
	runCancel context.CancelFunc
	closed   bool
}

// New constructs an empty Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit enqueues an item, assigning it an ID if it has none. If a
// higher-priority item arrives while a Preemptible item is running, Submit
// cancels the running item's context so the RunLoop can put it back on the
// queue (spec.md §4.1 "preemption", I2).
func (q *Queue) Submit(it Item) string {
	q.mu.Lock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.h, &heapEntry{item: it})

	if q.running != nil && q.running.Preemptible && it.Priority > q.running.Priority {
		if q.runCancel != nil {
			q.runCancel()
		}
	}
	q.mu.Unlock()
	q.cond.Signal()
	return it.ID
}

// Close makes RunLoop exit once the queue is empty; items already queued
// still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// RunLoop pulls items in priority/FIFO order and runs them one at a time,
// re-enqueueing any item whose context is cancelled by a later preemption
// (spec.md §4.1 "a preempted item returns to the queue at its original
// priority"). Exits when ctx is cancelled or Close is called with an empty
// queue.
func (q *Queue) RunLoop(ctx context.Context) {
	for {
		it, ok := q.waitNext(ctx)
		if !ok {
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.running = &it
		q.runCancel = cancel
		q.mu.Unlock()

		err := runItem(runCtx, it)

		q.mu.Lock()
		q.running = nil
		q.runCancel = nil
		preempted := err == context.Canceled && ctx.Err() == nil
		q.mu.Unlock()
		cancel()

		if preempted {
			q.Submit(it)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func runItem(ctx context.Context, it Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = nil // a panicking item counts as finished, never as preempted
		}
	}()
	return it.Run(ctx)
}

func (q *Queue) waitNext(ctx context.Context) (Item, bool) {
	stop := context.AfterFunc(ctx, q.cond.Broadcast)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.h.Len() == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if ctx.Err() != nil || q.h.Len() == 0 {
		return Item{}, false
	}
	e := heap.Pop(&q.h).(*heapEntry)
	return e.item, true
}

// Len reports the number of queued (not running) items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

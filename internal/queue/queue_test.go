package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/web3guy0/polybot/internal/domain"
)

// TestPriorityOrdering verifies P3: items run in descending priority order,
// FIFO within a tier.
func TestPriorityOrdering(t *testing.T) {
	q := New()
	var mu sync.Mutex
	var order []string

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.RunLoop(ctx)
		close(done)
	}()

	record := func(id string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}
	}

	// give RunLoop a chance to block on the empty queue first
	time.Sleep(10 * time.Millisecond)

	q.Submit(Item{ID: "low", Priority: domain.PriorityLow, Run: record("low")})
	q.Submit(Item{ID: "normal-1", Priority: domain.PriorityNormal, Run: record("normal-1")})
	q.Submit(Item{ID: "normal-2", Priority: domain.PriorityNormal, Run: record("normal-2")})
	q.Submit(Item{ID: "high", Priority: domain.PriorityHigh, Run: record("high")})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "normal-1", "normal-2", "low"}, order)
}

// TestPreemptionRequeues verifies I2/I3: a Critical item preempts a running
// Preemptible item, which is re-enqueued and completes afterwards.
func TestPreemptionRequeues(t *testing.T) {
	q := New()
	var mu sync.Mutex
	var order []string
	started := make(chan struct{})
	var startOnce sync.Once
	var runCount int

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.RunLoop(ctx)
		close(done)
	}()

	longRun := func(ctx context.Context) error {
		mu.Lock()
		runCount++
		first := runCount == 1
		mu.Unlock()
		if first {
			startOnce.Do(func() { close(started) })
			<-ctx.Done()
			mu.Lock()
			order = append(order, "long-preempted")
			mu.Unlock()
			return ctx.Err()
		}
		mu.Lock()
		order = append(order, "long-resumed")
		mu.Unlock()
		return nil
	}

	q.Submit(Item{ID: "long", Priority: domain.PriorityNormal, Preemptible: true, Run: longRun})
	<-started

	q.Submit(Item{ID: "critical", Priority: domain.PriorityCritical, Run: func(context.Context) error {
		mu.Lock()
		order = append(order, "critical")
		mu.Unlock()
		return nil
	}})

	time.Sleep(80 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"long-preempted", "critical", "long-resumed"}, order)
}

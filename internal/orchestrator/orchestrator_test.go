package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/config"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
	"github.com/web3guy0/polybot/internal/ledger"
	"github.com/web3guy0/polybot/internal/queue"
	"github.com/web3guy0/polybot/internal/session"
)

// newTestOrchestrator wires a real Queue, Session and Ledger to an
// Orchestrator over a gameio.Fake, matching the construction
// cmd/tradebot/main.go performs minus the network collaborators (Link,
// Reporter, Notifier, PriceClient), which none of these tests exercise.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *gameio.Fake, *queue.Queue) {
	t.Helper()
	io := gameio.NewFake()
	q := queue.New()
	cfg := &config.Config{EnableAHFlips: true, EnableBazaarFlips: true}
	o := New(Deps{
		Config:  cfg,
		GameIO:  io,
		Queue:   q,
		Session: session.New(),
		Ledger:  ledger.New(decimal.Zero, clock.Real{}),
		Clock:   clock.Real{},
	})
	o.EndGracePeriod()
	return o, io, q
}

// TestRunExclusive_TransitionsAndRestoresIdle covers I1/I2: entering
// runExclusive moves BotState to the target for the duration of fn, and
// restores Idle once fn returns.
func TestRunExclusive_TransitionsAndRestoresIdle(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	require.Equal(t, domain.StateIdle, o.State())

	var sawState domain.BotState
	err := o.runExclusive(context.Background(), domain.StateClaiming, func(ctx context.Context) error {
		sawState = o.State()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StateClaiming, sawState)
	assert.Equal(t, domain.StateIdle, o.State())
}

// TestRunExclusive_RejectsReentryWhenNotIdle covers I1: a second caller
// cannot enter runExclusive while another target state is active, and the
// rejection leaves the first caller's occupancy untouched.
func TestRunExclusive_RejectsReentryWhenNotIdle(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = o.runExclusive(context.Background(), domain.StatePurchasing, func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ran := false
	err := o.runExclusive(context.Background(), domain.StateClaiming, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, ran)
	assert.Equal(t, domain.StatePurchasing, o.State())

	close(release)
	require.Eventually(t, func() bool { return o.State() == domain.StateIdle }, time.Second, time.Millisecond)
}

// TestRunExclusive_RecoversPanicToIdle covers I2 and spec.md §7
// "Unrecoverable logic error in an executor": a panicking executor is
// recovered at the runExclusive boundary as a neutral (nil-error) outcome,
// and BotState still returns to Idle.
func TestRunExclusive_RecoversPanicToIdle(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	var err error
	assert.NotPanics(t, func() {
		err = o.runExclusive(context.Background(), domain.StateSellBz, func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.StateIdle, o.State())
}

// TestRunExclusive_OnlyOneConcurrentWinner covers I3: of many concurrent
// callers racing for the exclusive token, exactly one executor body runs at
// a time and the rest are turned away rather than interleaved.
func TestRunExclusive_OnlyOneConcurrentWinner(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	const n = 20

	var successes int32
	var wg sync.WaitGroup
	block := make(chan struct{})

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = o.runExclusive(context.Background(), domain.StateTrading, func(ctx context.Context) error {
				atomic.AddInt32(&successes, 1)
				<-block
				return nil
			})
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&successes))
	assert.Equal(t, domain.StateIdle, o.State())
}

// TestQueuePreemption_ThroughOrchestrator covers P1-P3 end to end through
// the orchestrator boundary: a Critical item preempts a running Normal
// Preemptible executor, the preempted executor observes cancellation and
// releases BotState, and only then does the Critical executor enter
// runExclusive (spec.md §4.1 "preemption", I2). The requeued long item's
// second run is not checked here; queue_test covers resumption.
func TestQueuePreemption_ThroughOrchestrator(t *testing.T) {
	o, _, q := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.RunLoop(ctx)
		close(done)
	}()

	var mu sync.Mutex
	var order []string
	started := make(chan struct{})

	o.enqueue("long", domain.PriorityNormal, true, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StateTrading, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			mu.Lock()
			order = append(order, "long-preempted")
			mu.Unlock()
			return ctx.Err()
		})
	})
	<-started
	assert.Equal(t, domain.StateTrading, o.State())

	o.enqueue("critical", domain.PriorityCritical, false, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StateClaiming, func(ctx context.Context) error {
			mu.Lock()
			order = append(order, "critical")
			mu.Unlock()
			return nil
		})
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"long-preempted", "critical"}, order)
	mu.Unlock()

	cancel()
	<-done
}

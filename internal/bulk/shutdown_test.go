package bulk

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/models"
)

// peakTracker records the highest number of handlers seen executing at once
type peakTracker struct {
	active, peak atomic.Int32
}

func (p *peakTracker) enter() {
	n := p.active.Add(1)
	for {
		cur := p.peak.Load()
		if n <= cur || p.peak.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (p *peakTracker) leave() { p.active.Add(-1) }

func TestInlineRunAfterStopFailsJob(t *testing.T) {
	// a free slot and a closed done channel are both ready; the run must never start
	for i := 0; i < 50; i++ {
		var ran atomic.Int32
		handlers := NewHandlerRegistry()
		require.NoError(t, handlers.Register(models.ActionGuestMarkPaid, itemHandler(func(ctx context.Context, itemID string) error {
			ran.Add(1)
			return nil
		})))

		svc := NewService(Config{MaxConcurrentJobs: 1}, handlers, arbor.NewLogger())
		svc.Start()

		snapshot, err := svc.registry.Create(models.ActionGuestMarkPaid, 1, []string{"a"}, nil)
		require.NoError(t, err)
		require.NoError(t, svc.Stop(context.Background()))

		err = svc.runInline(context.Background(), snapshot.ID)
		assert.ErrorIs(t, err, ErrServiceStopped)

		got, ok := svc.GetJobStatus(snapshot.ID)
		require.True(t, ok)
		assert.Equal(t, string(models.JobStatusFailed), got.Status)
		assert.Equal(t, int32(0), ran.Load())
		assert.Equal(t, 0, len(svc.slots), "slot released")
	}
}

func TestStopDuringSyncAndAsyncLoad(t *testing.T) {
	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register(models.ActionGuestMarkPaid, itemHandler(func(ctx context.Context, itemID string) error {
		select {
		case <-time.After(2 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})))
	svc := NewService(Config{MaxConcurrentJobs: 2, QueueSize: 50}, handlers, arbor.NewLogger())
	svc.Start()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(async bool) {
			defer wg.Done()
			_, _ = svc.ExecuteBulkAction(context.Background(), models.ActionGuestMarkPaid, 1, []string{"a", "b"}, nil, async)
		}(i%2 == 0)
	}

	time.Sleep(5 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
	wg.Wait()

	// nothing is left running or queued and every record is terminal
	assert.Equal(t, 0, svc.RunningJobs())
	assert.Equal(t, 0, svc.QueuedJobs())
	for _, job := range svc.GetUserJobs(1, 100) {
		assert.True(t, job.IsTerminal(), "job %s is %s", job.ID, job.Status)
	}
}

func TestConcurrencyCeilingMixedSyncAndAsync(t *testing.T) {
	const ceiling = 3
	var tracker peakTracker

	svc := newTestService(t, Config{MaxConcurrentJobs: ceiling, QueueSize: 40}, func(r *HandlerRegistry) {
		require.NoError(t, r.Register(models.ActionInventoryUpdate, HandlerFunc(func(ctx context.Context, job models.BulkJob, tr Tracker) (*models.ActionResult, error) {
			tracker.enter()
			defer tracker.leave()
			outcomes, err := ProcessItems(ctx, job, tr, func(ctx context.Context, itemID string) error {
				time.Sleep(3 * time.Millisecond)
				return nil
			})
			if err != nil {
				return nil, err
			}
			return models.NewActionResult(outcomes), nil
		})))
	})

	var (
		mu  sync.Mutex
		ids []string
		wg  sync.WaitGroup
	)
	stopSampling := make(chan struct{})
	var sampledPeak atomic.Int32
	go func() {
		for {
			select {
			case <-stopSampling:
				return
			default:
			}
			if n := int32(svc.RunningJobs()); n > sampledPeak.Load() {
				sampledPeak.Store(n)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(async bool) {
			defer wg.Done()
			id, err := svc.ExecuteBulkAction(context.Background(), models.ActionInventoryUpdate, 1, []string{"i1", "i2"}, nil, async)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}(i%2 == 0)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 40)
	for _, id := range ids {
		snap := waitTerminal(t, svc, id)
		assert.Equal(t, "completed", snap.Status)
	}
	close(stopSampling)

	assert.LessOrEqual(t, tracker.peak.Load(), int32(ceiling))
	assert.LessOrEqual(t, sampledPeak.Load(), int32(ceiling))
	assert.GreaterOrEqual(t, tracker.peak.Load(), int32(1))
}

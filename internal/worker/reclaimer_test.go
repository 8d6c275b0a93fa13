package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roamcars/booking-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

// recordingService captures ReclaimExpired calls; the other BookingService
// methods are unused by the reclaimer.
type recordingService struct {
	service.BookingService

	mu      sync.Mutex
	cutoffs []time.Time
	result  int
	err     error
}

func (r *recordingService) ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.result, r.err
}

func (r *recordingService) calls() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.cutoffs...)
}

func TestRunPass_ComputesCutoffFromWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 16, 0, 0, time.UTC)
	svc := &recordingService{result: 2}
	r := NewReclaimer(svc, stubClock{t: now}, 15*time.Minute, 5*time.Minute)

	n, err := r.RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, svc.calls(), 1)
	assert.Equal(t, now.Add(-15*time.Minute), svc.calls()[0])
}

func TestRunPass_PropagatesError(t *testing.T) {
	svc := &recordingService{err: assert.AnError}
	r := NewReclaimer(svc, stubClock{t: time.Now()}, 15*time.Minute, 5*time.Minute)

	_, err := r.RunPass(context.Background())

	assert.Error(t, err)
}

func TestStart_TicksAndStopsOnCancel(t *testing.T) {
	svc := &recordingService{}
	r := NewReclaimer(svc, stubClock{t: time.Now()}, time.Minute, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(svc.calls()) >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reclaimer did not stop on context cancellation")
	}
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/events"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][2]string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, assessmentID, jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]string{assessmentID, jobID})
}

func (r *recordingInvalidator) snapshot() [][2]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]string(nil), r.calls...)
}

func TestCacheInvalidationService_EvictsOnReclassified(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	invalidator := &recordingInvalidator{}

	service := NewCacheInvalidationService(invalidator, bus)
	require.NoError(t, service.Start())
	defer service.Stop()

	record := &entities.AssessmentRecord{ID: "noncompliance-1", JobID: "job-1"}
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, providers.EventChannelAssessments,
		entities.NewAssessmentEvent(record, entities.AssessmentEventTypeSubmitted, "")))
	require.NoError(t, bus.Publish(ctx, providers.EventChannelAssessments,
		entities.NewAssessmentEvent(record, entities.AssessmentEventTypeReclassified, "partial -> non-compliant")))

	require.Eventually(t, func() bool { return len(invalidator.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [2]string{"noncompliance-1", "job-1"}, invalidator.snapshot()[0])
}

func TestCacheInvalidationService_StopReturnsAfterBusClose(t *testing.T) {
	bus := events.NewLocalEventBus()
	service := NewCacheInvalidationService(&recordingInvalidator{}, bus)
	require.NoError(t, service.Start())

	require.NoError(t, bus.Close())

	done := make(chan struct{})
	go func() {
		service.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestCacheInvalidationService_StartFailsOnClosedBus(t *testing.T) {
	bus := events.NewLocalEventBus()
	require.NoError(t, bus.Close())

	service := NewCacheInvalidationService(&recordingInvalidator{}, bus)
	assert.Error(t, service.Start())
}

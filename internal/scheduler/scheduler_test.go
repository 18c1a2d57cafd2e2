package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportstack/failwatch/internal/models"
	"github.com/supportstack/failwatch/internal/report"
	"github.com/supportstack/failwatch/internal/store"
	"github.com/supportstack/failwatch/internal/summarizer"
)

type sinkStub struct {
	mu    sync.Mutex
	saved []*models.RCAReport
	err   error
}

func (s *sinkStub) Save(_ context.Context, r *models.RCAReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, r)
	return "report-1", nil
}

func (s *sinkStub) Latest(context.Context) (*models.RCAReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil, errors.New("empty")
	}
	return s.saved[len(s.saved)-1], nil
}

func (s *sinkStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func newTestScheduler(t *testing.T, sink *sinkStub, mock *clock.Mock) *Scheduler {
	t.Helper()
	s := store.New(100)
	_, err := s.Record(models.FailureEventInput{
		FailureType: "payment",
		AgentName:   "hulk",
		Gateway:     "stripe",
		Timestamp:   mock.Now().Add(-time.Hour),
		RequestID:   "req-1",
	})
	require.NoError(t, err)

	sum := summarizer.Static{Text: "One payment failure via stripe."}
	builder := report.NewBuilder(nil, s, sum, mock, time.UTC, report.Options{})
	return New(nil, builder, sink, mock, time.Hour, 24)
}

func TestSchedulerPersistsOnTick(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	sink := &sinkStub{}
	sched := newTestScheduler(t, sink, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	// Let the goroutine reach the ticker before advancing time.
	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Hour)

	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)

	latest, err := sink.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Summary.TotalFailures)
	assert.Equal(t, 24, latest.TimeWindow.Hours)
	assert.Equal(t, "One payment failure via stripe.", latest.AISummary)

	mock.Add(time.Hour)
	require.Eventually(t, func() bool { return sink.count() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	sink := &sinkStub{}
	sched := newTestScheduler(t, sink, mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
	assert.Equal(t, 0, sink.count())
}

func TestSchedulerSurvivesPersistenceFailure(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	sink := &sinkStub{err: errors.New("valkey down")}
	sched := newTestScheduler(t, sink, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Hour)
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler wedged after persistence failure")
	}
}

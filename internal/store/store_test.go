package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportstack/failwatch/internal/models"
	"github.com/supportstack/failwatch/internal/utils"
)

func validInput(ts time.Time) models.FailureEventInput {
	return models.FailureEventInput{
		FailureType: models.FailureTypePayment,
		AgentName:   "hulk",
		Gateway:     "stripe",
		Timestamp:   ts,
		RequestID:   "req-1",
	}
}

func TestRecordAssignsUniqueIDs(t *testing.T) {
	s := New(10)
	now := time.Now()

	first, err := s.Record(validInput(now))
	require.NoError(t, err)
	second, err := s.Record(validInput(now))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, s.Len())
}

func TestRecordRejectsMissingFields(t *testing.T) {
	s := New(10)
	now := time.Now()

	cases := map[string]models.FailureEventInput{
		"failure_type": {AgentName: "hulk", Timestamp: now, RequestID: "r"},
		"agent_name":   {FailureType: "payment", Timestamp: now, RequestID: "r"},
		"timestamp":    {FailureType: "payment", AgentName: "hulk", RequestID: "r"},
		"request_id":   {FailureType: "payment", AgentName: "hulk", Timestamp: now},
	}

	for missing, input := range cases {
		t.Run(missing, func(t *testing.T) {
			_, err := s.Record(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrInvalidInput), "expected invalid input kind, got %v", err)
		})
	}
	assert.Equal(t, 0, s.Len(), "rejected inputs must not be stored")
}

func TestEvictionIsStrictFIFO(t *testing.T) {
	s := New(3)
	now := time.Now()

	for i := 1; i <= 5; i++ {
		input := validInput(now.Add(time.Duration(i) * time.Minute))
		input.RequestID = fmt.Sprintf("req-%d", i)
		_, err := s.Record(input)
		require.NoError(t, err)
	}

	events := s.Query(Filter{})
	require.Len(t, events, 3)
	assert.Equal(t, "req-3", events[0].RequestID)
	assert.Equal(t, "req-4", events[1].RequestID)
	assert.Equal(t, "req-5", events[2].RequestID)
}

func TestCapacityBoundHolds(t *testing.T) {
	s := New(100)
	now := time.Now()
	for i := 0; i < 250; i++ {
		_, err := s.Record(validInput(now.Add(time.Duration(i) * time.Second)))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, s.Len())

	events := s.Query(Filter{})
	require.Len(t, events, 100)
	// Oldest retained event is the 151st recorded.
	assert.Equal(t, now.Add(150*time.Second), events[0].Timestamp)
}

func TestQueryFilters(t *testing.T) {
	s := New(20)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	record := func(ft models.FailureType, agent, gateway string, ts time.Time) {
		_, err := s.Record(models.FailureEventInput{
			FailureType: ft, AgentName: agent, Gateway: gateway,
			Timestamp: ts, RequestID: "req",
		})
		require.NoError(t, err)
	}

	record("payment", "hulk", "stripe", base)
	record("payment", "hulk", "paypal", base.Add(time.Hour))
	record("shipping", "havoc", "fedex", base.Add(2*time.Hour))
	record("fraud", "hulk", "", base.Add(3*time.Hour))

	assert.Len(t, s.Query(Filter{FailureType: "payment"}), 2)
	assert.Len(t, s.Query(Filter{AgentName: "havoc"}), 1)
	assert.Len(t, s.Query(Filter{Gateway: "stripe"}), 1)

	// Since/until bounds are inclusive.
	got := s.Query(Filter{Since: base.Add(time.Hour), Until: base.Add(2 * time.Hour)})
	require.Len(t, got, 2)
	assert.Equal(t, "paypal", got[0].Gateway)

	// Combined filters intersect.
	got = s.Query(Filter{FailureType: "payment", Gateway: "paypal"})
	require.Len(t, got, 1)

	assert.Empty(t, s.Query(Filter{AgentName: "nobody"}))
}

func TestStats(t *testing.T) {
	s := New(10)

	empty := s.Stats()
	assert.Equal(t, 0, empty.TotalEvents)
	assert.Nil(t, empty.OldestEventTime)
	assert.Nil(t, empty.NewestEventTime)

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := s.Record(validInput(base.Add(time.Duration(i) * time.Hour)))
		require.NoError(t, err)
	}

	stats := s.Stats()
	assert.Equal(t, 4, stats.TotalEvents)
	require.NotNil(t, stats.OldestEventTime)
	require.NotNil(t, stats.NewestEventTime)
	assert.Equal(t, base, *stats.OldestEventTime)
	assert.Equal(t, base.Add(3*time.Hour), *stats.NewestEventTime)
}

func TestClear(t *testing.T) {
	s := New(10)
	_, err := s.Record(validInput(time.Now()))
	require.NoError(t, err)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Query(Filter{}))
}

func TestConcurrentRecordAndQuery(t *testing.T) {
	s := New(100)
	now := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.Record(validInput(now))
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Query(Filter{Since: now})
				s.Stats()
				s.Len()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
}

// Package store holds the bounded in-memory log of failure events. The store
// is the single mutable piece of state in the RCA engine; everything
// downstream computes over snapshots it hands out.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/supportstack/failwatch/internal/metrics"
	"github.com/supportstack/failwatch/internal/models"
	"github.com/supportstack/failwatch/internal/utils"
)

// DefaultCapacity bounds how many failure events are retained before the
// oldest are evicted.
const DefaultCapacity = 10000

// Filter narrows a Query. Zero values mean "no constraint"; Since and Until
// are inclusive bounds on the event timestamp.
type Filter struct {
	Since       time.Time
	Until       time.Time
	FailureType models.FailureType
	AgentName   string
	Gateway     string
}

// Store is a fixed-capacity, append-only ring buffer of failure events.
// Record and Clear are the only mutations; Query and Stats operate on
// point-in-time copies so readers never observe a partial evict-then-append.
type Store struct {
	mu     sync.RWMutex
	events []models.FailureEvent
	size   int
	head   int
	count  int

	bootNanos int64
	seq       atomic.Uint64
}

// New creates a store retaining up to capacity events. Non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		events:    make([]models.FailureEvent, capacity),
		size:      capacity,
		bootNanos: time.Now().UnixNano(),
	}
}

// Record validates the input, assigns an ID, and appends the event. At
// capacity the single oldest entry is evicted first (strict FIFO). The only
// error condition is a missing required field.
func (s *Store) Record(input models.FailureEventInput) (models.FailureEvent, error) {
	if err := validate(input); err != nil {
		return models.FailureEvent{}, err
	}

	event := models.FailureEvent{
		ID:            s.nextID(),
		FailureType:   input.FailureType,
		AgentName:     input.AgentName,
		Gateway:       input.Gateway,
		Timestamp:     input.Timestamp,
		RequestID:     input.RequestID,
		CorrelationID: input.CorrelationID,
		ErrorMessage:  input.ErrorMessage,
		Metadata:      input.Metadata,
	}

	s.mu.Lock()
	s.events[s.head] = event
	s.head = (s.head + 1) % s.size
	if s.count < s.size {
		s.count++
	}
	s.mu.Unlock()

	metrics.RecordFailure(string(event.FailureType))
	return event, nil
}

// Query returns all events matching the filter in insertion order. A filter
// matching nothing yields an empty slice, never an error.
func (s *Store) Query(filter Filter) []models.FailureEvent {
	snapshot := s.snapshot()

	matched := make([]models.FailureEvent, 0, len(snapshot))
	for _, event := range snapshot {
		if matches(event, filter) {
			matched = append(matched, event)
		}
	}
	return matched
}

// Stats scans current contents and reports totals plus the time bounds.
func (s *Store) Stats() models.StoreStats {
	snapshot := s.snapshot()

	stats := models.StoreStats{TotalEvents: len(snapshot)}
	if len(snapshot) == 0 {
		return stats
	}

	oldest := snapshot[0].Timestamp
	newest := snapshot[0].Timestamp
	for _, event := range snapshot[1:] {
		if event.Timestamp.Before(oldest) {
			oldest = event.Timestamp
		}
		if event.Timestamp.After(newest) {
			newest = event.Timestamp
		}
	}
	stats.OldestEventTime = &oldest
	stats.NewestEventTime = &newest
	return stats
}

// Len returns the number of retained events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Clear empties the store. Test isolation only; production callers construct
// independent instances instead.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.count = 0
}

// snapshot copies retained events oldest-first under the read lock.
func (s *Store) snapshot() []models.FailureEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.FailureEvent, s.count)
	if s.count < s.size {
		copy(result, s.events[:s.count])
	} else {
		copy(result, s.events[s.head:])
		copy(result[s.size-s.head:], s.events[:s.head])
	}
	return result
}

// nextID builds a process-monotonic identifier. The boot-time component keeps
// IDs from colliding across restarts.
func (s *Store) nextID() string {
	return fmt.Sprintf("evt-%d-%d", s.bootNanos, s.seq.Add(1))
}

func validate(input models.FailureEventInput) error {
	switch {
	case input.FailureType == "":
		return utils.InvalidInput("store.record", "failure_type is required")
	case input.AgentName == "":
		return utils.InvalidInput("store.record", "agent_name is required")
	case input.Timestamp.IsZero():
		return utils.InvalidInput("store.record", "timestamp is required")
	case input.RequestID == "":
		return utils.InvalidInput("store.record", "request_id is required")
	}
	return nil
}

func matches(event models.FailureEvent, filter Filter) bool {
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && event.Timestamp.After(filter.Until) {
		return false
	}
	if filter.FailureType != "" && event.FailureType != filter.FailureType {
		return false
	}
	if filter.AgentName != "" && event.AgentName != filter.AgentName {
		return false
	}
	if filter.Gateway != "" && event.Gateway != filter.Gateway {
		return false
	}
	return true
}

// Package aggregate computes grouped statistics over failure event sets.
// Every function is pure: no state, no I/O, deterministic output for a given
// input slice. Percentages are integers rounded half away from zero.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/supportstack/failwatch/internal/models"
)

// Dimension selects the event field used as grouping key.
type Dimension string

const (
	DimensionFailureType Dimension = "failureType"
	DimensionAgent       Dimension = "agentName"
	DimensionGateway     Dimension = "gateway"
)

// unknownKey substitutes for absent dimension values so groups stay explicit.
const unknownKey = "unknown"

// DefaultMinOccurrences is the repeated-pattern threshold used by reports.
const DefaultMinOccurrences = 2

type group struct {
	key   string
	count int
	first time.Time
	last  time.Time
	order int
}

// By groups events along the dimension and returns groups sorted descending by
// count, ties broken by first appearance in the input. Empty input yields an
// empty slice.
func By(dim Dimension, events []models.FailureEvent) []models.AggregatedGroup {
	return aggregate(events, func(event models.FailureEvent) (string, bool) {
		return dimensionKey(dim, event), true
	})
}

// GatewayRanking ranks gateways like By(DimensionGateway, ...) but excludes
// events without a gateway from both the groups and the percentage base.
func GatewayRanking(events []models.FailureEvent) []models.AggregatedGroup {
	return aggregate(events, func(event models.FailureEvent) (string, bool) {
		if event.Gateway == "" {
			return "", false
		}
		return event.Gateway, true
	})
}

// FailuresByHour buckets events into wall-clock hours of the supplied
// location. Hours with zero events are omitted; buckets are sorted descending
// by count with stable hour order on ties. A nil location means UTC.
func FailuresByHour(events []models.FailureEvent, loc *time.Location) []models.HourBucket {
	if len(events) == 0 {
		return []models.HourBucket{}
	}
	if loc == nil {
		loc = time.UTC
	}

	counts := make(map[int]int)
	for _, event := range events {
		counts[event.Timestamp.In(loc).Hour()]++
	}

	buckets := make([]models.HourBucket, 0, len(counts))
	for hour, count := range counts {
		buckets = append(buckets, models.HourBucket{
			Hour:       hour,
			Count:      count,
			Percentage: percentage(count, len(events)),
		})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Hour < buckets[j].Hour
	})
	return buckets
}

// PeakFailureHours returns the topN busiest hour buckets.
func PeakFailureHours(topN int, events []models.FailureEvent, loc *time.Location) []models.HourBucket {
	buckets := FailuresByHour(events, loc)
	if topN < 0 {
		topN = 0
	}
	if len(buckets) > topN {
		buckets = buckets[:topN]
	}
	return buckets
}

// RepeatedPatterns groups events by (agent, gateway, error message) and keeps
// combinations occurring at least minOccurrences times, most frequent first.
// The threshold defaults to DefaultMinOccurrences when non-positive.
func RepeatedPatterns(events []models.FailureEvent, minOccurrences int) []models.RepeatedPattern {
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}
	if len(events) == 0 {
		return []models.RepeatedPattern{}
	}

	type patternGroup struct {
		agent   string
		gateway string
		count   int
		order   int
	}

	groups := make(map[string]*patternGroup)
	orderedKeys := make([]string, 0)
	for _, event := range events {
		gateway := event.Gateway
		if gateway == "" {
			gateway = "none"
		}
		message := event.ErrorMessage
		if message == "" {
			message = unknownKey
		}
		key := fmt.Sprintf("%s | %s | %s", event.AgentName, gateway, message)

		g, ok := groups[key]
		if !ok {
			g = &patternGroup{agent: event.AgentName, gateway: event.Gateway, order: len(orderedKeys)}
			groups[key] = g
			orderedKeys = append(orderedKeys, key)
		}
		g.count++
	}

	patterns := make([]models.RepeatedPattern, 0, len(groups))
	for _, key := range orderedKeys {
		g := groups[key]
		if g.count < minOccurrences {
			continue
		}
		patterns = append(patterns, models.RepeatedPattern{
			Pattern: key,
			Count:   g.count,
			Agent:   g.agent,
			Gateway: g.gateway,
		})
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Count > patterns[j].Count
	})
	return patterns
}

// aggregate runs the shared group-count-sort pass. keyFn reports the grouping
// key and whether the event participates at all; excluded events are removed
// from the percentage base as well.
func aggregate(events []models.FailureEvent, keyFn func(models.FailureEvent) (string, bool)) []models.AggregatedGroup {
	groups := make(map[string]*group)
	total := 0
	for _, event := range events {
		key, ok := keyFn(event)
		if !ok {
			continue
		}
		total++

		g, exists := groups[key]
		if !exists {
			g = &group{key: key, first: event.Timestamp, last: event.Timestamp, order: len(groups)}
			groups[key] = g
		}
		g.count++
		if event.Timestamp.Before(g.first) {
			g.first = event.Timestamp
		}
		if event.Timestamp.After(g.last) {
			g.last = event.Timestamp
		}
	}

	if total == 0 {
		return []models.AggregatedGroup{}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].order < ordered[j].order
	})

	result := make([]models.AggregatedGroup, 0, len(ordered))
	for _, g := range ordered {
		result = append(result, models.AggregatedGroup{
			Key:             g.key,
			Count:           g.count,
			Percentage:      percentage(g.count, total),
			FirstOccurrence: g.first,
			LastOccurrence:  g.last,
		})
	}
	return result
}

func dimensionKey(dim Dimension, event models.FailureEvent) string {
	var value string
	switch dim {
	case DimensionFailureType:
		value = string(event.FailureType)
	case DimensionAgent:
		value = event.AgentName
	case DimensionGateway:
		value = event.Gateway
	}
	if value == "" {
		return unknownKey
	}
	return value
}

// percentage rounds half away from zero; total must be positive.
func percentage(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}

package models

import "time"

// AggregatedGroup is one value of a grouping dimension with its share of the
// analysed event set. Percentage is an integer 0-100, rounded half away from
// zero, relative to the set the aggregation ran over (not the whole store).
type AggregatedGroup struct {
	Key             string    `json:"key"`
	Count           int       `json:"count"`
	Percentage      int       `json:"percentage"`
	FirstOccurrence time.Time `json:"first_occurrence"`
	LastOccurrence  time.Time `json:"last_occurrence"`
}

// HourBucket counts failures that fell into one local wall-clock hour (0-23).
// Hours without events are omitted from distributions.
type HourBucket struct {
	Hour       int `json:"hour"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// RepeatedPattern is a recurring agent+gateway+error combination. Pattern is a
// display string used for dedup and rendering, never reparsed.
type RepeatedPattern struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
	Agent   string `json:"agent"`
	Gateway string `json:"gateway,omitempty"`
}

// TimeWindow bounds the look-back window a report was computed over.
type TimeWindow struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Hours int       `json:"hours"`
}

// ReportSummary carries the per-dimension breakdowns of the analysed window.
type ReportSummary struct {
	TotalFailures int               `json:"total_failures"`
	ByType        []AggregatedGroup `json:"by_type"`
	ByAgent       []AggregatedGroup `json:"by_agent"`
	ByGateway     []AggregatedGroup `json:"by_gateway"`
}

// TimeAnalysis holds the hour-of-day view of the window.
type TimeAnalysis struct {
	PeakHours          []HourBucket `json:"peak_hours"`
	HourlyDistribution []HourBucket `json:"hourly_distribution"`
}

// PatternAnalysis lists repeated failure combinations above the occurrence
// threshold, most frequent first.
type PatternAnalysis struct {
	RepeatedFailures []RepeatedPattern `json:"repeated_failures"`
}

// Insights are single-value highlights derived from the aggregations. They
// restate computed numbers and never introduce new facts.
type Insights struct {
	MostFailingGateway *AggregatedGroup `json:"most_failing_gateway,omitempty"`
	MostFailingAgent   *AggregatedGroup `json:"most_failing_agent,omitempty"`
	PeakFailureWindow  string           `json:"peak_failure_window,omitempty"`
	TopPattern         string           `json:"top_pattern,omitempty"`
}

// RCAReport is one complete analysis pass over a look-back window. AISummary
// is best-effort natural language; every decision-grade number lives in the
// structured fields.
type RCAReport struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	TimeWindow   TimeWindow      `json:"time_window"`
	Summary      ReportSummary   `json:"summary"`
	TimeAnalysis TimeAnalysis    `json:"time_analysis"`
	Patterns     PatternAnalysis `json:"patterns"`
	Insights     Insights        `json:"insights"`
	AISummary    string          `json:"ai_summary,omitempty"`
}

// QuickStats is the low-latency polling variant of a report.
type QuickStats struct {
	TotalFailures  int    `json:"total_failures"`
	TopFailureType string `json:"top_failure_type,omitempty"`
	TopGateway     string `json:"top_gateway,omitempty"`
	TopAgent       string `json:"top_agent,omitempty"`
}

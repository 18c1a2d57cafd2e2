package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportstack/failwatch/internal/models"
	"github.com/supportstack/failwatch/internal/store"
)

type failingSummarizer struct {
	calls int
}

func (f *failingSummarizer) Summarize(context.Context, string) (string, error) {
	f.calls++
	return "", errors.New("llm exploded")
}

func (f *failingSummarizer) Name() string { return "failing" }

type recordingSummarizer struct {
	statsText string
	reply     string
}

func (r *recordingSummarizer) Summarize(_ context.Context, statsText string) (string, error) {
	r.statsText = statsText
	return r.reply, nil
}

func (r *recordingSummarizer) Name() string { return "recording" }

func fixedClock(t time.Time) clock.Clock {
	mock := clock.NewMock()
	mock.Set(t)
	return mock
}

var buildTime = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

func record(t *testing.T, s *store.Store, ft models.FailureType, agent, gateway, message string, ts time.Time) {
	t.Helper()
	_, err := s.Record(models.FailureEventInput{
		FailureType:  ft,
		AgentName:    agent,
		Gateway:      gateway,
		ErrorMessage: message,
		Timestamp:    ts,
		RequestID:    "req",
	})
	require.NoError(t, err)
}

func TestBuildEmptyWindow(t *testing.T) {
	s := store.New(10)
	failing := &failingSummarizer{}
	builder := NewBuilder(nil, s, failing, fixedClock(buildTime), time.UTC, Options{})

	report := builder.Build(context.Background(), BuildRequest{WithSummary: true})

	assert.Equal(t, 0, report.Summary.TotalFailures)
	assert.Empty(t, report.Summary.ByType)
	assert.Empty(t, report.Summary.ByAgent)
	assert.Empty(t, report.Summary.ByGateway)
	assert.Empty(t, report.TimeAnalysis.HourlyDistribution)
	assert.Equal(t, NoFailuresSummary, report.AISummary)
	assert.Equal(t, 0, failing.calls, "summarizer must be skipped on empty windows")
}

func TestBuildGatewayBreakdown(t *testing.T) {
	s := store.New(100)
	for i := 0; i < 12; i++ {
		record(t, s, "payment", "hulk", "stripe", "card declined", buildTime.Add(-time.Hour))
	}
	for i := 0; i < 3; i++ {
		record(t, s, "payment", "hulk", "paypal", "timeout", buildTime.Add(-time.Hour))
	}

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})
	report := builder.Build(context.Background(), BuildRequest{})

	assert.Equal(t, 15, report.Summary.TotalFailures)
	require.Len(t, report.Summary.ByGateway, 2)
	assert.Equal(t, "stripe", report.Summary.ByGateway[0].Key)
	assert.Equal(t, 12, report.Summary.ByGateway[0].Count)
	assert.Equal(t, 80, report.Summary.ByGateway[0].Percentage)
	assert.Equal(t, "paypal", report.Summary.ByGateway[1].Key)
	assert.Equal(t, 20, report.Summary.ByGateway[1].Percentage)

	require.NotNil(t, report.Insights.MostFailingGateway)
	assert.Equal(t, "stripe", report.Insights.MostFailingGateway.Key)
	require.NotNil(t, report.Insights.MostFailingAgent)
	assert.Equal(t, "hulk", report.Insights.MostFailingAgent.Key)
}

func TestBuildPeakHoursAndWindowInsight(t *testing.T) {
	s := store.New(100)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		record(t, s, "shipping", "havoc", "fedex", "", day.Add(18*time.Hour))
	}
	for i := 0; i < 4; i++ {
		record(t, s, "shipping", "havoc", "fedex", "", day.Add(19*time.Hour))
	}

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})
	report := builder.Build(context.Background(), BuildRequest{})

	require.Len(t, report.TimeAnalysis.PeakHours, 2)
	assert.Equal(t, 18, report.TimeAnalysis.PeakHours[0].Hour)
	assert.Equal(t, 6, report.TimeAnalysis.PeakHours[0].Count)
	assert.Equal(t, 19, report.TimeAnalysis.PeakHours[1].Hour)
	require.Len(t, report.TimeAnalysis.HourlyDistribution, 2)

	assert.Equal(t, "18:00-19:59 (100% of failures)", report.Insights.PeakFailureWindow)
}

func TestBuildRepeatedPatternInsight(t *testing.T) {
	s := store.New(100)
	for i := 0; i < 3; i++ {
		record(t, s, "shipping", "havoc", "fedex", "Delivery delayed - weather", buildTime.Add(-time.Hour))
	}

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})
	report := builder.Build(context.Background(), BuildRequest{})

	require.Len(t, report.Patterns.RepeatedFailures, 1)
	assert.Equal(t, 3, report.Patterns.RepeatedFailures[0].Count)
	assert.Equal(t, "havoc agent with fedex gateway (3 occurrences)", report.Insights.TopPattern)
}

func TestBuildWindowFiltering(t *testing.T) {
	s := store.New(100)
	record(t, s, "payment", "hulk", "stripe", "", buildTime.Add(-30*time.Hour))
	record(t, s, "payment", "hulk", "stripe", "", buildTime.Add(-2*time.Hour))

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})

	defaultWindow := builder.Build(context.Background(), BuildRequest{})
	assert.Equal(t, 1, defaultWindow.Summary.TotalFailures, "default window is 24h")
	assert.Equal(t, DefaultWindowHours, defaultWindow.TimeWindow.Hours)

	wide := builder.Build(context.Background(), BuildRequest{HoursBack: 48})
	assert.Equal(t, 2, wide.Summary.TotalFailures)
	assert.Equal(t, 48, wide.TimeWindow.Hours)
}

func TestBuildSummarizerFallback(t *testing.T) {
	s := store.New(100)
	for i := 0; i < 12; i++ {
		record(t, s, "payment", "hulk", "stripe", "card declined", buildTime.Add(-time.Hour))
	}
	for i := 0; i < 3; i++ {
		record(t, s, "payment", "hulk", "paypal", "timeout", buildTime.Add(-time.Hour))
	}

	failing := &failingSummarizer{}
	builder := NewBuilder(nil, s, failing, fixedClock(buildTime), time.UTC, Options{})

	report := builder.Build(context.Background(), BuildRequest{WithSummary: true})

	assert.Equal(t, 1, failing.calls)
	require.NotEmpty(t, report.AISummary, "fallback summary must fill in")
	assert.Contains(t, report.AISummary, "15 failures in the last 24 hours.")
	assert.Contains(t, report.AISummary, "hulk agent")
	assert.Contains(t, report.AISummary, "stripe")
}

func TestBuildSummarizerReceivesStatsBlock(t *testing.T) {
	s := store.New(100)
	for i := 0; i < 5; i++ {
		record(t, s, "payment", "hulk", "stripe", "card declined", buildTime.Add(-time.Hour))
	}

	recording := &recordingSummarizer{reply: "Five payment failures, all via stripe."}
	builder := NewBuilder(nil, s, recording, fixedClock(buildTime), time.UTC, Options{})

	report := builder.Build(context.Background(), BuildRequest{WithSummary: true})

	assert.Equal(t, "Five payment failures, all via stripe.", report.AISummary)
	assert.Contains(t, recording.statsText, "Total failures: 5")
	assert.Contains(t, recording.statsText, "By gateway: stripe: 5 (100%)")
}

func TestBuildIdempotentOverUnchangedStore(t *testing.T) {
	s := store.New(100)
	for i := 0; i < 7; i++ {
		record(t, s, "payment", "hulk", "stripe", "declined", buildTime.Add(-time.Duration(i)*time.Minute))
	}

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})

	first := builder.Build(context.Background(), BuildRequest{})
	second := builder.Build(context.Background(), BuildRequest{})

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.TimeAnalysis, second.TimeAnalysis)
	assert.Equal(t, first.Patterns, second.Patterns)
	assert.Equal(t, first.Insights, second.Insights)
}

func TestQuickStats(t *testing.T) {
	s := store.New(100)
	for i := 0; i < 3; i++ {
		record(t, s, "payment", "hulk", "stripe", "", buildTime.Add(-time.Hour))
	}
	record(t, s, "shipping", "havoc", "fedex", "", buildTime.Add(-time.Hour))
	record(t, s, "fraud", "sentinel", "", "", buildTime.Add(-time.Hour))

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})
	stats := builder.QuickStats(context.Background(), 0)

	assert.Equal(t, 5, stats.TotalFailures)
	assert.Equal(t, "payment", stats.TopFailureType)
	assert.Equal(t, "stripe", stats.TopGateway)
	assert.Equal(t, "hulk", stats.TopAgent)
}

func TestQuickStatsEmpty(t *testing.T) {
	builder := NewBuilder(nil, store.New(10), nil, fixedClock(buildTime), time.UTC, Options{})
	stats := builder.QuickStats(context.Background(), 24)

	assert.Equal(t, models.QuickStats{}, stats)
}

func TestBuildManyEventsStaysBounded(t *testing.T) {
	s := store.New(1000)
	for i := 0; i < 2500; i++ {
		record(t, s, "payment", fmt.Sprintf("agent-%d", i%5), "stripe", "declined", buildTime.Add(-time.Minute))
	}

	builder := NewBuilder(nil, s, nil, fixedClock(buildTime), time.UTC, Options{})
	report := builder.Build(context.Background(), BuildRequest{})

	assert.Equal(t, 1000, report.Summary.TotalFailures, "analysis covers retained events only")
}

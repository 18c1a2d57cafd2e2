// Package report orchestrates one RCA analysis pass: pull events from the
// store, aggregate, derive insights, and attach a best-effort natural-language
// summary. Report generation never fails; summarizer trouble degrades to a
// deterministic template.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/supportstack/failwatch/internal/aggregate"
	"github.com/supportstack/failwatch/internal/metrics"
	"github.com/supportstack/failwatch/internal/models"
	"github.com/supportstack/failwatch/internal/store"
	"github.com/supportstack/failwatch/internal/summarizer"
	"github.com/supportstack/failwatch/internal/utils"
)

// DefaultWindowHours is the look-back window when the caller supplies none.
const DefaultWindowHours = 24

// NoFailuresSummary is the fixed summary for an empty window. The summarizer
// is skipped entirely in that case.
const NoFailuresSummary = "No failures recorded in the specified time window."

const defaultPeakHoursTop = 3

// Options tunes a Builder. Zero values select the documented defaults.
type Options struct {
	PeakHoursTop          int
	MinPatternOccurrences int
	SummarizerTimeout     time.Duration
}

// Builder runs analysis passes over one event store. It performs no writes,
// so concurrent scheduled and on-demand passes need no mutual exclusion.
type Builder struct {
	store      *store.Store
	summarizer summarizer.Summarizer
	logger     *slog.Logger
	clock      clock.Clock
	loc        *time.Location

	peakHoursTop      int
	minOccurrences    int
	summarizerTimeout time.Duration
}

// NewBuilder constructs a Builder. summarizer may be nil to disable AI
// summaries; clk may be nil to use the wall clock; loc may be nil for UTC.
func NewBuilder(logger *slog.Logger, eventStore *store.Store, sum summarizer.Summarizer, clk clock.Clock, loc *time.Location, opts Options) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if opts.PeakHoursTop <= 0 {
		opts.PeakHoursTop = defaultPeakHoursTop
	}
	if opts.MinPatternOccurrences <= 0 {
		opts.MinPatternOccurrences = aggregate.DefaultMinOccurrences
	}
	if opts.SummarizerTimeout <= 0 {
		opts.SummarizerTimeout = 15 * time.Second
	}
	return &Builder{
		store:             eventStore,
		summarizer:        sum,
		logger:            logger,
		clock:             clk,
		loc:               loc,
		peakHoursTop:      opts.PeakHoursTop,
		minOccurrences:    opts.MinPatternOccurrences,
		summarizerTimeout: opts.SummarizerTimeout,
	}
}

// BuildRequest parametrises one pass.
type BuildRequest struct {
	// HoursBack is the look-back window; non-positive means DefaultWindowHours.
	HoursBack int
	// WithSummary requests the natural-language summary.
	WithSummary bool
}

// Build runs one full analysis pass. It always returns a report: summarizer
// errors are logged, counted, and replaced by the templated fallback.
func (b *Builder) Build(ctx context.Context, req BuildRequest) *models.RCAReport {
	start := b.clock.Now()
	hours := req.HoursBack
	if hours <= 0 {
		hours = DefaultWindowHours
	}

	now := start
	since := now.Add(-time.Duration(hours) * time.Hour)
	events := b.store.Query(store.Filter{Since: since})

	report := &models.RCAReport{
		GeneratedAt: now,
		TimeWindow:  models.TimeWindow{From: since, To: now, Hours: hours},
		Summary: models.ReportSummary{
			TotalFailures: len(events),
			ByType:        aggregate.By(aggregate.DimensionFailureType, events),
			ByAgent:       aggregate.By(aggregate.DimensionAgent, events),
			ByGateway:     aggregate.GatewayRanking(events),
		},
		TimeAnalysis: models.TimeAnalysis{
			PeakHours:          aggregate.PeakFailureHours(b.peakHoursTop, events, b.loc),
			HourlyDistribution: aggregate.FailuresByHour(events, b.loc),
		},
		Patterns: models.PatternAnalysis{
			RepeatedFailures: aggregate.RepeatedPatterns(events, b.minOccurrences),
		},
	}
	report.Insights = deriveInsights(report)

	outcome := metrics.OutcomeSuccess
	switch {
	case report.Summary.TotalFailures == 0:
		report.AISummary = NoFailuresSummary
	case req.WithSummary && b.summarizer != nil:
		summary, err := b.summarize(ctx, report)
		if err != nil {
			b.logger.Warn("summarizer degraded to template",
				slog.String("provider", b.summarizer.Name()), utils.ErrAttr(err))
			metrics.SummarizerFallback()
			summary = fallbackSummary(report)
			outcome = metrics.OutcomeFallback
		}
		report.AISummary = summary
	case req.WithSummary:
		report.AISummary = fallbackSummary(report)
	}

	metrics.ObserveReportBuild(b.clock.Since(start), outcome)
	return report
}

// QuickStats is the low-latency polling variant: counts and top keys only,
// no time analysis, no summarizer.
func (b *Builder) QuickStats(_ context.Context, hoursBack int) models.QuickStats {
	if hoursBack <= 0 {
		hoursBack = DefaultWindowHours
	}
	since := b.clock.Now().Add(-time.Duration(hoursBack) * time.Hour)
	events := b.store.Query(store.Filter{Since: since})

	stats := models.QuickStats{TotalFailures: len(events)}
	if byType := aggregate.By(aggregate.DimensionFailureType, events); len(byType) > 0 {
		stats.TopFailureType = byType[0].Key
	}
	if byGateway := aggregate.GatewayRanking(events); len(byGateway) > 0 {
		stats.TopGateway = byGateway[0].Key
	}
	if byAgent := aggregate.By(aggregate.DimensionAgent, events); len(byAgent) > 0 {
		stats.TopAgent = byAgent[0].Key
	}
	return stats
}

// summarize calls the collaborator with a bounded timeout.
func (b *Builder) summarize(ctx context.Context, report *models.RCAReport) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.summarizerTimeout)
	defer cancel()
	return b.summarizer.Summarize(ctx, StatsText(report))
}

func deriveInsights(report *models.RCAReport) models.Insights {
	var insights models.Insights

	if len(report.Summary.ByGateway) > 0 {
		top := report.Summary.ByGateway[0]
		insights.MostFailingGateway = &top
	}
	if len(report.Summary.ByAgent) > 0 {
		top := report.Summary.ByAgent[0]
		insights.MostFailingAgent = &top
	}

	if peaks := report.TimeAnalysis.PeakHours; len(peaks) > 0 {
		minHour, maxHour, pctSum := peaks[0].Hour, peaks[0].Hour, 0
		for _, bucket := range peaks {
			if bucket.Hour < minHour {
				minHour = bucket.Hour
			}
			if bucket.Hour > maxHour {
				maxHour = bucket.Hour
			}
			pctSum += bucket.Percentage
		}
		insights.PeakFailureWindow = fmt.Sprintf("%s (%d%% of failures)",
			utils.HourRange(minHour, maxHour), pctSum)
	}

	if patterns := report.Patterns.RepeatedFailures; len(patterns) > 0 {
		top := patterns[0]
		gateway := top.Gateway
		if gateway == "" {
			gateway = "unknown"
		}
		insights.TopPattern = fmt.Sprintf("%s agent with %s gateway (%d occurrences)",
			top.Agent, gateway, top.Count)
	}

	return insights
}

// fallbackSummary builds the deterministic sentence used when the summarizer
// is unavailable. Derived from insights only, no AI dependency.
func fallbackSummary(report *models.RCAReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d failures in the last %d hours.",
		report.Summary.TotalFailures, report.TimeWindow.Hours)

	if agent := report.Insights.MostFailingAgent; agent != nil {
		fmt.Fprintf(&sb, " Most failures came from the %s agent (%d, %d%%).",
			agent.Key, agent.Count, agent.Percentage)
	}
	if gateway := report.Insights.MostFailingGateway; gateway != nil {
		fmt.Fprintf(&sb, " The most affected gateway was %s (%d, %d%%).",
			gateway.Key, gateway.Count, gateway.Percentage)
	}
	if report.Insights.PeakFailureWindow != "" {
		fmt.Fprintf(&sb, " Failures peaked between %s.", report.Insights.PeakFailureWindow)
	}
	return sb.String()
}

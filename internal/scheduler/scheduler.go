// Package scheduler drives the periodic RCA pass. Each tick builds a full
// report with summary, persists it, and logs the headline numbers.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/supportstack/failwatch/internal/report"
	"github.com/supportstack/failwatch/internal/reportstore"
	"github.com/supportstack/failwatch/internal/utils"
)

// Scheduler runs the report builder on a fixed interval until its context is
// cancelled. It never writes to the event store, so it needs no coordination
// with on-demand API passes.
type Scheduler struct {
	builder  *report.Builder
	reports  reportstore.Store
	logger   *slog.Logger
	clock    clock.Clock
	interval time.Duration
	hours    int
}

// New constructs a Scheduler. clk may be nil for the wall clock; reports may
// be nil to skip persistence (reports are still logged).
func New(logger *slog.Logger, builder *report.Builder, reports reportstore.Store, clk clock.Clock, interval time.Duration, hoursBack int) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		builder:  builder,
		reports:  reports,
		logger:   logger,
		clock:    clk,
		interval: interval,
		hours:    hoursBack,
	}
}

// Run blocks until ctx is cancelled, generating one report per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.logger.Info("report scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("report scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	built := s.builder.Build(ctx, report.BuildRequest{HoursBack: s.hours, WithSummary: true})

	s.logger.Info("scheduled report generated",
		slog.Int("total_failures", built.Summary.TotalFailures),
		slog.Int("window_hours", built.TimeWindow.Hours),
		slog.Int("repeated_patterns", len(built.Patterns.RepeatedFailures)))
	s.logger.Debug("scheduled report", slog.String("report", report.Render(built)))

	if s.reports == nil {
		return
	}
	id, err := s.reports.Save(ctx, built)
	if err != nil {
		s.logger.Warn("report persistence failed", utils.ErrAttr(err))
		return
	}
	s.logger.Info("report persisted", slog.String("report_id", id))
}

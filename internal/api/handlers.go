package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/supportstack/failwatch/internal/report"
	"github.com/supportstack/failwatch/internal/reportstore"
	"github.com/supportstack/failwatch/internal/utils"
)

// Handlers holds the dependencies behind the HTTP surface.
type Handlers struct {
	builder   *report.Builder
	reports   reportstore.Store
	logger    *slog.Logger
	latencies *utils.LatencyTracker
}

// NewHandlers constructs the handler set. reports may be nil when persistence
// is disabled; the latest-report endpoint then always returns 404.
func NewHandlers(logger *slog.Logger, builder *report.Builder, reports reportstore.Store) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		builder:   builder,
		reports:   reports,
		logger:    logger,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Router wires the endpoint table. Only GETs: the RCA engine observes
// failures, it does not accept them over HTTP.
func (h *Handlers) Router() *router.Router {
	r := router.New()
	r.GET("/healthz", h.Health)
	r.GET("/api/v1/rca/report", h.Report)
	r.GET("/api/v1/rca/quick-stats", h.QuickStats)
	r.GET("/api/v1/rca/reports/latest", h.LatestReport)
	return r
}

// Health answers liveness probes.
func (h *Handlers) Health(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("ok")
}

// Report generates a report for the requested look-back window.
// Query params: hours (positive integer, default 24), format (json|text,
// default json), summary (true|false, default true).
func (h *Handlers) Report(ctx *fasthttp.RequestCtx) {
	hours, ok := parseHours(ctx)
	if !ok {
		return
	}

	withSummary := true
	if v := string(ctx.QueryArgs().Peek("summary")); v != "" {
		withSummary = v == "true" || v == "1"
	}

	start := time.Now()
	built := h.builder.Build(ctx, report.BuildRequest{HoursBack: hours, WithSummary: withSummary})
	duration := time.Since(start)

	h.latencies.Observe(duration)
	if count := h.latencies.Count(); count >= 20 && count%20 == 0 {
		h.logger.Info("report latency",
			slog.Duration("p95", h.latencies.Percentile(95)), slog.Int("samples", count))
	}

	switch string(ctx.QueryArgs().Peek("format")) {
	case "text":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(report.Render(built))
	case "", "json":
		jsonResponse(ctx, built)
	default:
		errResponse(ctx, fasthttp.StatusBadRequest, "format must be json or text")
	}
}

// QuickStats serves the low-latency polling variant.
func (h *Handlers) QuickStats(ctx *fasthttp.RequestCtx) {
	hours, ok := parseHours(ctx)
	if !ok {
		return
	}
	jsonResponse(ctx, h.builder.QuickStats(ctx, hours))
}

// LatestReport returns the most recently persisted scheduled report.
func (h *Handlers) LatestReport(ctx *fasthttp.RequestCtx) {
	if h.reports == nil {
		errResponse(ctx, fasthttp.StatusNotFound, "report persistence is disabled")
		return
	}

	latest, err := h.reports.Latest(ctx)
	if err != nil {
		if errors.Is(err, reportstore.ErrNoReport) {
			errResponse(ctx, fasthttp.StatusNotFound, "no report persisted yet")
			return
		}
		h.logger.Error("latest report lookup failed", utils.ErrAttr(err))
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load latest report")
		return
	}
	jsonResponse(ctx, latest)
}

// parseHours reads the look-back window from the query string. Absent means
// "use the default"; present but malformed is a client error.
func parseHours(ctx *fasthttp.RequestCtx) (int, bool) {
	raw := string(ctx.QueryArgs().Peek("hours"))
	if raw == "" {
		return 0, true
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		errResponse(ctx, fasthttp.StatusBadRequest, "hours must be a positive integer")
		return 0, false
	}
	return hours, true
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetBody(body)
}

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/supportstack/failwatch/internal/models"
)

// StatsText renders the deterministic plain-text statistics block handed to
// the summarizer. Window, total, breakdowns, peak hours, and the top three
// repeated patterns; nothing the summarizer could not restate.
func StatsText(report *models.RCAReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Failure statistics for the last %d hours (%s to %s)\n",
		report.TimeWindow.Hours,
		report.TimeWindow.From.UTC().Format(time.RFC3339),
		report.TimeWindow.To.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Total failures: %d\n", report.Summary.TotalFailures)

	writeGroups(&sb, "By type", report.Summary.ByType)
	writeGroups(&sb, "By agent", report.Summary.ByAgent)
	writeGroups(&sb, "By gateway", report.Summary.ByGateway)

	if len(report.TimeAnalysis.PeakHours) > 0 {
		parts := make([]string, 0, len(report.TimeAnalysis.PeakHours))
		for _, bucket := range report.TimeAnalysis.PeakHours {
			parts = append(parts, fmt.Sprintf("%02d:00 (%d, %d%%)", bucket.Hour, bucket.Count, bucket.Percentage))
		}
		fmt.Fprintf(&sb, "Peak hours: %s\n", strings.Join(parts, ", "))
	}

	patterns := report.Patterns.RepeatedFailures
	if len(patterns) > 3 {
		patterns = patterns[:3]
	}
	if len(patterns) > 0 {
		parts := make([]string, 0, len(patterns))
		for _, pattern := range patterns {
			parts = append(parts, fmt.Sprintf("%s (%dx)", pattern.Pattern, pattern.Count))
		}
		fmt.Fprintf(&sb, "Top repeated failures: %s\n", strings.Join(parts, "; "))
	}

	return sb.String()
}

// Render produces the human-readable text form of a report for logs and the
// format=text API response. Derived from the report structure alone.
func Render(report *models.RCAReport) string {
	var sb strings.Builder

	sb.WriteString("=== RCA FAILURE REPORT ===\n")
	fmt.Fprintf(&sb, "Generated: %s\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Window:    %s - %s (%dh)\n",
		report.TimeWindow.From.UTC().Format(time.RFC3339),
		report.TimeWindow.To.UTC().Format(time.RFC3339),
		report.TimeWindow.Hours)
	fmt.Fprintf(&sb, "Total failures: %d\n", report.Summary.TotalFailures)

	renderSection(&sb, "Failures by type", report.Summary.ByType)
	renderSection(&sb, "Failures by agent", report.Summary.ByAgent)
	renderSection(&sb, "Gateway ranking", report.Summary.ByGateway)

	if len(report.TimeAnalysis.HourlyDistribution) > 0 {
		sb.WriteString("\nHourly distribution:\n")
		for _, bucket := range report.TimeAnalysis.HourlyDistribution {
			fmt.Fprintf(&sb, "  - %02d:00  %d (%d%%)\n", bucket.Hour, bucket.Count, bucket.Percentage)
		}
	}

	if len(report.Patterns.RepeatedFailures) > 0 {
		sb.WriteString("\nRepeated failures:\n")
		for _, pattern := range report.Patterns.RepeatedFailures {
			fmt.Fprintf(&sb, "  - %s (%dx)\n", pattern.Pattern, pattern.Count)
		}
	}

	sb.WriteString("\nInsights:\n")
	if agent := report.Insights.MostFailingAgent; agent != nil {
		fmt.Fprintf(&sb, "  - most failing agent: %s (%d, %d%%)\n", agent.Key, agent.Count, agent.Percentage)
	}
	if gateway := report.Insights.MostFailingGateway; gateway != nil {
		fmt.Fprintf(&sb, "  - most failing gateway: %s (%d, %d%%)\n", gateway.Key, gateway.Count, gateway.Percentage)
	}
	if report.Insights.PeakFailureWindow != "" {
		fmt.Fprintf(&sb, "  - peak window: %s\n", report.Insights.PeakFailureWindow)
	}
	if report.Insights.TopPattern != "" {
		fmt.Fprintf(&sb, "  - top pattern: %s\n", report.Insights.TopPattern)
	}
	if report.Insights.MostFailingAgent == nil && report.Insights.MostFailingGateway == nil &&
		report.Insights.PeakFailureWindow == "" && report.Insights.TopPattern == "" {
		sb.WriteString("  - none\n")
	}

	if report.AISummary != "" {
		fmt.Fprintf(&sb, "\nSummary: %q\n", report.AISummary)
	}

	return sb.String()
}

func renderSection(sb *strings.Builder, title string, groups []models.AggregatedGroup) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, group := range groups {
		fmt.Fprintf(sb, "  - %s: %d (%d%%)\n", group.Key, group.Count, group.Percentage)
	}
}

func writeGroups(sb *strings.Builder, label string, groups []models.AggregatedGroup) {
	if len(groups) == 0 {
		return
	}
	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		parts = append(parts, fmt.Sprintf("%s: %d (%d%%)", group.Key, group.Count, group.Percentage))
	}
	fmt.Fprintf(sb, "%s: %s\n", label, strings.Join(parts, ", "))
}

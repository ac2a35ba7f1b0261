package compare

import (
	"context"
	"io"
	"strings"

	"github.com/argodata/argo/reconcile/report"
	"github.com/argodata/argo/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
	recommendationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				PaddingLeft(2)
)

func levelStyle(l report.Level) lipgloss.Style {
	switch l {
	case report.LevelOK:
		return okStyle
	case report.LevelWarning:
		return warnStyle
	}
	return errorStyle
}

func statusStyle(s report.Summary) lipgloss.Style {
	switch s.Status {
	case "PERFECT MATCH":
		return okStyle.Bold(true)
	case "DISCREPANCIES":
		return warnStyle.Bold(true)
	}
	return errorStyle
}

// renderSummary writes the executive summary of r for a terminal.
func renderSummary(w io.Writer, r report.ComparisonReport) error {
	s := report.Summarize(r)
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(s.Title))
	sb.WriteString("\n")
	sb.WriteString(statusStyle(s).Render(s.Status))
	sb.WriteString("\n\n")
	for _, f := range s.Findings {
		sb.WriteString(levelStyle(f.Level).Render(marker(f.Level) + " " + f.Text))
		sb.WriteString("\n")
	}
	if len(s.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range s.Recommendations {
			sb.WriteString(recommendationStyle.Render("- " + rec))
			sb.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func marker(l report.Level) string {
	switch l {
	case report.LevelOK:
		return "OK   "
	case report.LevelWarning:
		return "WARN "
	}
	return "ERROR"
}

// finish prints the summary, stores the report and decides the exit status.
func finish(
	cmd *cobra.Command,
	logger zerolog.Logger,
	st store.Store,
	r report.ComparisonReport,
	failOnDiscrepancy bool,
) error {
	if err := renderSummary(cmd.OutOrStdout(), r); err != nil {
		return err
	}
	if st != nil {
		res, err := report.ExportReport(context.Background(), st, r)
		if err != nil {
			logger.Err(err).Msgf("error exporting report")
		}
		for _, resource := range res {
			logger.Info().Str("location", resource.Location()).Msgf("wrote report")
		}
	}
	return exitError(r, failOnDiscrepancy)
}

func exitError(r report.ComparisonReport, failOnDiscrepancy bool) error {
	if len(r.Errors) > 0 {
		sections := make([]string, len(r.Errors))
		for i, e := range r.Errors {
			sections[i] = e.Section
		}
		return errors.Wrapf(ErrComparisonFailed, "errors in %s", strings.Join(sections, ", "))
	}
	if failOnDiscrepancy && !r.OverallMatch {
		return ErrDiscrepancies
	}
	return nil
}

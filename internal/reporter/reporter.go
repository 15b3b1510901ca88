package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/internal/database"
	"github.com/lockblank/lockblank/internal/models"
	"github.com/lockblank/lockblank/pkg/utils"
)

// Reporter summarises journaled monitor sessions
type Reporter struct {
	repo *database.Repository
	now  func() time.Time
}

// New creates a new reporter
func New(repo *database.Repository) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	now := r.now()
	period, err := PeriodAt(periodType, now)
	if err != nil {
		return nil, err
	}

	sessions, err := r.repo.GetSessionsSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sessions")
	}

	reasons, err := r.repo.GetReasonCountsSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count exit reasons")
	}

	errCount, err := r.repo.CountErrorsSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count errors")
	}

	report := &models.Report{
		Period:        *period,
		Sessions:      sessions,
		Reasons:       reasons,
		TotalSessions: len(sessions),
		Errors:        errCount,
		GeneratedAt:   now,
	}

	for _, s := range sessions {
		report.TotalSeconds += int64(s.Duration(now).Seconds())
		report.TotalBlanks += s.Blanks
		report.TotalActivity += s.Activity
	}

	return report, nil
}

// PeriodAt calculates the time range of periodType containing now
func PeriodAt(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lock Session Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Sessions: %d, monitored %s, %d blanks, %d input events, %d errors\n\n",
		report.TotalSessions,
		utils.FormatRoundedUnit(report.TotalSeconds),
		report.TotalBlanks,
		report.TotalActivity,
		report.Errors)

	if len(report.Sessions) == 0 {
		b.WriteString("No lock sessions recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-17s %8s %8s %8s %8s  %s\n", "Started", "Length", "Idle", "Blanks", "Input", "Exit")
	b.WriteString(strings.Repeat("-", 72) + "\n")

	for _, s := range report.Sessions {
		reason := s.ExitReason
		if reason == "" {
			reason = "running"
		}
		fmt.Fprintf(&b, "%-17s %8s %8s %8d %8d  %s\n",
			s.StartedAt.Format("2006-01-02 15:04"),
			utils.FormatRoundedUnit(int64(s.Duration(report.GeneratedAt).Seconds())),
			utils.FormatRoundedUnit(s.LongestIdle),
			s.Blanks,
			s.Activity,
			reason)
	}

	if len(report.Reasons) > 0 {
		b.WriteString("\nExit reasons:\n")
		for _, rc := range report.Reasons {
			fmt.Fprintf(&b, "  %-18s %d\n", rc.ExitReason, rc.Count)
		}
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

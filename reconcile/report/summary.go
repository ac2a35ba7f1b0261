package report

import (
	"fmt"
	"math"
	"strings"
)

type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelError
)

// Finding is one line of an executive summary.
type Finding struct {
	Level Level
	Text  string
}

type Summary struct {
	Title    string
	Status   string
	Findings []Finding
	// Recommendations are follow-ups suggested by the findings.
	Recommendations []string
}

// technicalColumns are source bookkeeping columns that replicas usually
// drop.
var technicalColumns = map[string]struct{}{
	"BATCH_LAST_RUN": {},
	"BATCH_ID":       {},
}

// summaryListLimit bounds the names listed per finding.
const summaryListLimit = 5

func limited(names []string) []Finding {
	if len(names) <= summaryListLimit {
		return nil
	}
	return []Finding{{Level: LevelWarning, Text: fmt.Sprintf("... and %d more", len(names)-summaryListLimit)}}
}

func head(names []string) string {
	if len(names) > summaryListLimit {
		names = names[:summaryListLimit]
	}
	return strings.Join(names, ", ")
}

// Summarize condenses r into a handful of findings.
func Summarize(r ComparisonReport) Summary {
	method := "unknown"
	if r.Sampling != nil {
		method = r.Sampling.Method
	}
	s := Summary{Title: fmt.Sprintf("%s -> %s (%s)", r.DatasetID, r.Table, method)}

	if len(r.Errors) > 0 {
		s.Status = "COMPARISON FAILED"
		for _, e := range r.Errors {
			s.Findings = append(s.Findings, Finding{Level: LevelError, Text: fmt.Sprintf("%s: %s", e.Section, e.Error)})
		}
		s.Recommendations = append(s.Recommendations, "Check the logs for the failing section and rerun the comparison")
		return s
	}
	if r.OverallMatch {
		s.Status = "PERFECT MATCH"
	} else {
		s.Status = "DISCREPANCIES"
	}

	if d := r.Data; d != nil {
		if d.DuplicateKeys {
			s.Findings = append(s.Findings, Finding{Level: LevelError, Text: "Duplicate keys detected"})
			s.Recommendations = append(s.Recommendations, "Verify the key columns uniquely identify rows")
		} else {
			s.Findings = append(s.Findings, Finding{Level: LevelOK, Text: "Duplicate keys: none found"})
		}
	}

	if rc := r.RowCount; rc != nil {
		level := LevelError
		text := fmt.Sprintf("Rows: source %d vs warehouse %d", rc.SourceCount, rc.WarehouseCount)
		if rc.SourceCount > 0 {
			pct := math.Abs(float64(rc.WarehouseCount-rc.SourceCount)) / float64(rc.SourceCount) * 100
			switch {
			case pct <= 1.0:
				level = LevelOK
			case pct <= 5.0:
				level = LevelWarning
			}
			text += fmt.Sprintf(" (%.2f%% difference)", pct)
		} else if rc.WarehouseCount == 0 {
			level = LevelOK
		}
		s.Findings = append(s.Findings, Finding{Level: level, Text: text})
		if !rc.Acceptable() {
			s.Recommendations = append(s.Recommendations, "Investigate the row count difference; the replica may be stale or filtered")
		}
	}

	if sc := r.Schema; sc != nil {
		onlyTechnical := true
		for _, c := range sc.MissingInWarehouse {
			if _, ok := technicalColumns[c]; !ok {
				onlyTechnical = false
			}
		}
		level := LevelWarning
		if sc.SourceColumns == sc.WarehouseColumns || (len(sc.MissingInWarehouse) <= 2 && onlyTechnical) {
			level = LevelOK
		}
		s.Findings = append(s.Findings, Finding{
			Level: level,
			Text:  fmt.Sprintf("Columns: source %d vs warehouse %d", sc.SourceColumns, sc.WarehouseColumns),
		})
		if len(sc.TypeMismatches) > 0 {
			details := make([]string, 0, len(sc.TypeMismatches))
			for _, m := range sc.TypeMismatches {
				details = append(details, fmt.Sprintf("%s (%s vs %s)", m.Column, m.SourceType, m.WarehouseType))
			}
			s.Findings = append(s.Findings, Finding{
				Level: LevelError,
				Text:  fmt.Sprintf("Data type errors: %d columns: %s", len(details), head(details)),
			})
			s.Findings = append(s.Findings, limited(details)...)
		}
		if len(sc.MissingInWarehouse) > 0 {
			level := LevelError
			if onlyTechnical {
				level = LevelOK
			} else {
				s.Recommendations = append(s.Recommendations, "Add the missing columns to the warehouse table")
			}
			s.Findings = append(s.Findings, Finding{
				Level: level,
				Text:  "Missing columns in warehouse: " + head(sc.MissingInWarehouse),
			})
			s.Findings = append(s.Findings, limited(sc.MissingInWarehouse)...)
		}
		if len(sc.ExtraInWarehouse) > 0 {
			s.Findings = append(s.Findings, Finding{
				Level: LevelWarning,
				Text:  "Extra columns in warehouse: " + head(sc.ExtraInWarehouse),
			})
			s.Findings = append(s.Findings, limited(sc.ExtraInWarehouse)...)
		}
	}

	if d := r.Data; d != nil {
		if d.MissingInWarehouse > 0 {
			s.Findings = append(s.Findings, Finding{Level: LevelError, Text: fmt.Sprintf("Rows missing in warehouse: %d", d.MissingInWarehouse)})
		}
		if d.ExtraInWarehouse > 0 {
			s.Findings = append(s.Findings, Finding{Level: LevelWarning, Text: fmt.Sprintf("Extra rows in warehouse: %d", d.ExtraInWarehouse)})
		}
		if len(d.ColumnsWithDifferences) == 0 {
			s.Findings = append(s.Findings, Finding{Level: LevelOK, Text: "All values matched"})
		} else {
			s.Findings = append(s.Findings, Finding{
				Level: LevelWarning,
				Text:  "Columns with different values: " + head(d.ColumnsWithDifferences),
			})
			s.Findings = append(s.Findings, limited(d.ColumnsWithDifferences)...)
			s.Recommendations = append(s.Recommendations, "Review the transformation logic for the columns with different values")
		}
	}
	if r.Sampling != nil && r.Sampling.Method != r.Sampling.RequestedMethod {
		s.Recommendations = append(s.Recommendations, "Random sampling failed; results only cover a key-ordered prefix of the data")
	}
	return s
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", s.Status, s.Title)
	for _, f := range s.Findings {
		fmt.Fprintf(&sb, "%s %s\n", f.Level.marker(), f.Text)
	}
	for _, r := range s.Recommendations {
		fmt.Fprintf(&sb, "-> %s\n", r)
	}
	return sb.String()
}

func (l Level) marker() string {
	switch l {
	case LevelOK:
		return "[ok]"
	case LevelWarning:
		return "[warn]"
	}
	return "[error]"
}

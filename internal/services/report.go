package services

import (
	"fmt"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/ports"
	"math"
	"sort"
	"strings"
	"time"
)

// ColumnCompletion is how many rows have a value in one column.
type ColumnCompletion struct {
	Column  string  `json:"column"`
	Filled  int     `json:"filled"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// RepeatedValue is a distance quadruple shared by suspiciously many rows,
// usually the trace of a global fallback.
type RepeatedValue struct {
	Values []string `json:"values"`
	Rows   int      `json:"rows"`
}

// Report describes one pipeline run.
type Report struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Records     int                `json:"records"`
	Rows        int                `json:"rows"`
	DroppedRows int                `json:"dropped_rows"`
	Completion  []ColumnCompletion `json:"completion"`
	FillCounts  FillCounts         `json:"fill_counts"`
	ParseIssues map[string]int     `json:"parse_issues"`
	Repeated    []RepeatedValue    `json:"repeated_values"`
	Warnings    []string           `json:"warnings"`
	Outputs     ports.Outputs      `json:"outputs"`
}

var timestampColumns = []domain.Column{
	domain.CreateDate,
	domain.ClockinTime,
	domain.PlannedDepartureTime,
	domain.DjDepartureTime,
	domain.ArrivalAtCustomer,
	domain.DepartureTimeFromCustomer,
	domain.ArrivalAtDepot,
}

var numericColumns = []domain.Column{
	domain.VolHl,
	domain.BudgetedKms,
	domain.PlannedDistanceToCustomer,
	domain.ActualKm,
	domain.KmDeviation,
	domain.DepartureDeviationMin,
	domain.DaysInRouteDeviation,
	domain.TotalHourRoute,
}

// CountParseIssues counts non-blank cells that do not parse as the type their column holds.
func CountParseIssues(loads []*domain.Load) map[string]int {
	out := map[string]int{}
	for _, l := range loads {
		for _, c := range timestampColumns {
			if l.IsBlank(c) {
				continue
			}
			if _, ok := domain.ParseTimestamp(l.Get(c)); !ok {
				out[c.String()]++
			}
		}
		for _, c := range numericColumns {
			if l.IsBlank(c) {
				continue
			}
			if _, ok := l.Number(c); !ok {
				out[c.String()]++
			}
		}
		if !l.IsBlank(domain.ServiceTimeAtCustomer) {
			if _, ok := parseMinutes(l.Get(domain.ServiceTimeAtCustomer)); !ok {
				out[domain.ServiceTimeAtCustomer.String()]++
			}
		}
	}
	return out
}

// Completion reports per-column fill rates in output column order.
func Completion(loads []*domain.Load) []ColumnCompletion {
	out := make([]ColumnCompletion, 0, domain.NumColumns)
	total := len(loads)
	for _, c := range domain.Columns() {
		filled := 0
		for _, l := range loads {
			if !l.IsBlank(c) {
				filled++
			}
		}
		pct := 0.0
		if total > 0 {
			pct = domain.Round(100*float64(filled)/float64(total), 1)
		}
		out = append(out, ColumnCompletion{Column: c.String(), Filled: filled, Total: total, Percent: pct})
	}
	return out
}

// RepeatedDistances finds distance quadruples shared by more than
// max(MinRows, Share x rows) rows.
func RepeatedDistances(loads []*domain.Load, rs config.RepeatedValueSettings) []RepeatedValue {
	threshold := math.Max(float64(rs.MinRows), rs.Share*float64(len(loads)))

	counts := map[string]int{}
	var order []string
	for _, l := range loads {
		vals := make([]string, 0, len(distanceColumns))
		for _, c := range distanceColumns {
			if l.IsBlank(c) {
				vals = nil
				break
			}
			vals = append(vals, l.Get(c))
		}
		if vals == nil {
			continue
		}
		key := strings.Join(vals, "|")
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	var out []RepeatedValue
	for _, key := range order {
		if float64(counts[key]) > threshold {
			out = append(out, RepeatedValue{Values: strings.Split(key, "|"), Rows: counts[key]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rows > out[j].Rows })
	return out
}

// Summary renders the report for a terminal.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d records -> %d loads (%d dropped without load number)\n",
		r.RunID, r.Records, r.Rows, r.DroppedRows)

	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}

	b.WriteString("completion:\n")
	for _, c := range r.Completion {
		fmt.Fprintf(&b, "  %-30s %6d/%-6d %5.1f%%\n", c.Column, c.Filled, c.Total, c.Percent)
	}

	if len(r.FillCounts) > 0 {
		b.WriteString("filled:\n")
		cols := make([]string, 0, len(r.FillCounts))
		for c := range r.FillCounts {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			strategies := make([]string, 0, len(r.FillCounts[c]))
			for s, n := range r.FillCounts[c] {
				strategies = append(strategies, fmt.Sprintf("%s=%d", s, n))
			}
			sort.Strings(strategies)
			fmt.Fprintf(&b, "  %-30s %s\n", c, strings.Join(strategies, " "))
		}
	}

	if len(r.ParseIssues) > 0 {
		b.WriteString("unparseable values:\n")
		cols := make([]string, 0, len(r.ParseIssues))
		for c := range r.ParseIssues {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			fmt.Fprintf(&b, "  %-30s %d\n", c, r.ParseIssues[c])
		}
	}

	for _, rv := range r.Repeated {
		fmt.Fprintf(&b, "repeated distances %s on %d rows\n", strings.Join(rv.Values, "/"), rv.Rows)
	}

	if r.Outputs.CSV != "" {
		fmt.Fprintf(&b, "csv:   %s\n", r.Outputs.CSV)
	}
	if r.Outputs.XLSX != "" {
		fmt.Fprintf(&b, "excel: %s\n", r.Outputs.XLSX)
	}
	return b.String()
}

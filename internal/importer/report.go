package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Result is the outcome of one import run. Rows written before a failure stay
// written; Result reports the partial success.
type Result struct {
	RunID        uuid.UUID     `json:"run_id"`
	Schema       Schema        `json:"schema"`
	Created      int           `json:"created"`
	Updated      int           `json:"updated"`
	Skipped      []RowIssue    `json:"skipped"`
	Errors       []string      `json:"errors"`
	PendingUnits int           `json:"pending_units"`
	Lines        []ReceiptLine `json:"lines,omitempty"`
	Rows         []RowOutcome  `json:"rows"`
	Message      string        `json:"message"`
}

func newResult(runID uuid.UUID, schema Schema) Result {
	return Result{
		RunID:   runID,
		Schema:  schema,
		Skipped: []RowIssue{},
		Errors:  []string{},
		Rows:    []RowOutcome{},
	}
}

// record tallies the planner outcome of a row.
func (r *Result) record(row Row, d Disposition, created bool, err error) {
	outcome := RowOutcome{Line: row.Line, Name: strings.TrimSpace(row.ItemName)}
	switch d := d.(type) {
	case Matched:
		outcome.ItemID = d.Item.ID
		if created {
			r.Created++
			outcome.Status = StatusCreated
		} else if err == nil {
			r.Updated++
			outcome.Status = StatusMatched
		}
	case Skipped:
		r.Skipped = append(r.Skipped, RowIssue{Line: row.Line, Name: outcome.Name, Reason: d.Reason})
		outcome.Status = StatusSkipped
		outcome.Reason = d.Reason
	}
	if err != nil {
		r.Errors = append(r.Errors, errorLine(row, err))
		if outcome.Status == "" {
			outcome.Status = StatusError
		}
		outcome.Reason = err.Error()
	}
	r.Rows = append(r.Rows, outcome)
}

// addLine keeps a resolved receipt line.
func (r *Result) addLine(line ReceiptLine) {
	if line.NeedsMultiplier {
		r.PendingUnits++
	}
	r.Lines = append(r.Lines, line)
}

// Clean reports whether every row went through without skip, error or pending unit.
func (r Result) Clean() bool {
	return len(r.Skipped) == 0 && len(r.Errors) == 0 && r.PendingUnits == 0
}

// Summary renders the counts for the user.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Created %d, updated %d, skipped %d", r.Created, r.Updated, len(r.Skipped))
	if n := len(r.Errors); n > 0 {
		fmt.Fprintf(&b, ", %d error(s)", n)
	}
	if r.PendingUnits > 0 {
		fmt.Fprintf(&b, "; %d row(s) need a purchase unit multiplier", r.PendingUnits)
	}
	return b.String()
}

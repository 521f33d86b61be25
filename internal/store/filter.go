package store

import (
	"fmt"
	"strings"
)

// FindingFilter selects findings for ListFindings. Zero fields match
// everything; set fields are combined with AND.
type FindingFilter struct {
	RunID       string
	Severity    string
	Invariant   string
	Fingerprint string
	Limit       int // 0 means no limit
}

// findingColumns is the column list shared by every findings query.
const findingColumns = "run_id, seq, fingerprint, body"

// compile converts the filter to a parameterized SELECT.
//
// MANDATORY: every query ends in ORDER BY with a COLLATE BINARY tiebreaker.
// MANDATORY: values are bound as ? parameters, never interpolated.
func (f FindingFilter) compile() (string, []any) {
	var (
		where  []string
		params []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		where = append(where, column+" = ?")
		params = append(params, value)
	}
	add("run_id", f.RunID)
	add("severity", f.Severity)
	add("invariant", f.Invariant)
	add("fingerprint", f.Fingerprint)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM findings", findingColumns)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY run_id COLLATE BINARY ASC, seq ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, f.Limit)
	}
	return b.String(), params
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table writes aligned columns with a styled header.
type Table struct {
	w       *tabwriter.Writer
	columns int
}

// NewTable writes the header row and a rule under it.
func NewTable(out io.Writer, headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0), columns: len(headers)}

	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = HeaderStyle.Render(h)
		rules[i] = strings.Repeat("-", max(len(h), 4))
	}
	fmt.Fprintln(t.w, strings.Join(styled, "\t"))
	fmt.Fprintln(t.w, strings.Join(rules, "\t"))
	return t
}

// Row appends one row. Missing cells are left blank.
func (t *Table) Row(cells ...any) {
	parts := make([]string, t.columns)
	for i := range parts {
		if i < len(cells) {
			parts[i] = fmt.Sprint(cells[i])
		}
	}
	fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

// Flush writes the table out.
func (t *Table) Flush() error {
	return t.w.Flush()
}

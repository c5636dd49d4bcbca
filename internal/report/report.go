// Package report renders sensitivity tables, comparison reports and RSSI
// checks for the console, and exports them as JSON. It only reads the
// structures it is given.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

// Writer renders reports to an output stream. Pass/fail cells are colored
// when Color is set, which NewWriter does for terminals.
type Writer struct {
	out   io.Writer
	Color bool
}

// NewWriter returns a Writer for out, with color enabled when out is a
// terminal.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out, Color: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// status of a rendered cell
type status int

const (
	plain status = iota
	good
	bad
)

var statusColors = map[status]tablewriter.Colors{
	plain: {},
	good:  {tablewriter.FgGreenColor},
	bad:   {tablewriter.Bold, tablewriter.FgRedColor},
}

// table wraps a tablewriter table with per-cell status coloring.
type table struct {
	tw    *tablewriter.Table
	color bool
}

func (w *Writer) newTable(header ...string) *table {
	tw := tablewriter.NewWriter(w.out)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	return &table{tw: tw, color: w.Color}
}

// row appends cells; statuses are matched to cells by position and missing
// statuses mean plain.
func (t *table) row(cells []string, statuses ...status) {
	if !t.color || len(statuses) == 0 {
		t.tw.Append(cells)
		return
	}
	colors := make([]tablewriter.Colors, len(cells))
	for i := range cells {
		if i < len(statuses) {
			colors[i] = statusColors[statuses[i]]
		}
	}
	t.tw.Rich(cells, colors)
}

func (t *table) render() { t.tw.Render() }

func (w *Writer) heading(format string, args ...interface{}) {
	fmt.Fprintln(w.out, strings.Repeat("_", 27))
	fmt.Fprintf(w.out, format+"\n", args...)
}

func passFail(ok bool) (string, status) {
	if ok {
		return "pass", good
	}
	return "FAIL", bad
}

func dbm(v float64) string { return fmt.Sprintf("%.2f", v) }

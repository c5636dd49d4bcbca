package report

import (
	"fmt"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/sensitivity"
)

// SensitivityTable lists the 1e-3 and 1e-4 sensitivity of every mode in t,
// restricted to conds (the full grid when empty). Absent 1e-4 figures show
// as "---".
func (w *Writer) SensitivityTable(label string, t *sensitivity.Table, conds []berlog.ConditionKey) {
	if len(conds) == 0 {
		conds = berlog.StandardGrid()
	}
	if label != "" {
		fmt.Fprintf(w.out, "Sensitivity: %s\n", label)
	}
	for _, mode := range t.SortedModes() {
		w.heading("RF mode: %d", mode)
		tbl := w.newTable("T1", "BLF", "1e-3 (dBm)", "1e-4 (dBm)", "Monotonic")
		rows := 0
		for _, key := range conds {
			r, ok := t.Lookup(mode, key)
			if !ok {
				continue
			}
			mono, st := "yes", plain
			if !r.Monotonic {
				mono, st = "no", bad
			}
			tbl.row([]string{key.T1.String(), key.BLF.String(), dbm(r.E3), r.E4.String(), mono},
				plain, plain, plain, plain, st)
			rows++
		}
		if rows == 0 {
			fmt.Fprintln(w.out, "no requested conditions")
			continue
		}
		tbl.render()
	}
	w.warnings(t.Warnings)
}

func (w *Writer) warnings(ws []sensitivity.MonotonicityWarning) {
	if len(ws) == 0 {
		return
	}
	fmt.Fprintf(w.out, "\n%d curve(s) not monotonic:\n", len(ws))
	for _, warn := range ws {
		fmt.Fprintf(w.out, "  %s\n", warn)
	}
}

// Failures lists extraction or load failures under a heading.
func (w *Writer) Failures(title string, errs []error) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w.out, "\n%s (%d):\n", title, len(errs))
	for _, err := range errs {
		fmt.Fprintf(w.out, "  %v\n", err)
	}
}

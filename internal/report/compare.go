package report

import (
	"fmt"

	"github.com/banshee-data/rxsens/internal/sensitivity"
)

// Comparison renders a comparison report: per mode, the baseline, candidate
// and delta rows of every compared condition. Delta cells beyond the
// tolerance are flagged.
func (w *Writer) Comparison(rep *sensitivity.Report) {
	fmt.Fprintf(w.out, "Comparing %s (baseline) against %s, tolerance %.2f dB\n",
		rep.BaselineLabel, rep.CandidateLabel, rep.ToleranceDB)

	for _, mode := range rep.AllModes {
		entries := rep.Entries(mode)
		if len(entries) == 0 {
			w.heading("RF mode: %d (no conditions in both runs)", mode)
			continue
		}
		result, _ := passFail(!rep.ModeFailed(mode))
		w.heading("RF mode: %d [%s]", mode, result)

		tbl := w.newTable("T1", "BLF", "Run", "1e-3 (dBm)", "1e-4 (dBm)", "Result")
		for _, c := range entries {
			t1, blf := c.Condition.T1.String(), c.Condition.BLF.String()
			tbl.row([]string{t1, blf, rep.BaselineLabel, dbm(c.Baseline.E3), c.Baseline.E4.String(), ""})
			tbl.row([]string{t1, blf, rep.CandidateLabel, dbm(c.Candidate.E3), c.Candidate.E4.String(), ""})

			e3st, e4st := good, good
			if c.E3Regression {
				e3st = bad
			}
			if c.E4Regression {
				e4st = bad
			}
			if !c.Delta.E4.Valid() {
				e4st = plain
			}
			res := "ok"
			if c.Regressed() {
				res = "REGRESSION"
			}
			_, resst := passFail(!c.Regressed())
			tbl.row([]string{t1, blf, "delta", dbm(c.Delta.E3), c.Delta.E4.String(), res},
				plain, plain, plain, e3st, e4st, resst)
		}
		tbl.render()
	}

	regs := rep.Regressions()
	fmt.Fprintf(w.out, "\n%d of %d compared conditions regressed\n", len(regs), rep.Len())
	for _, r := range regs {
		c := r.Comparison
		fmt.Fprintf(w.out, "  mode %d %s: delta 1e-3 %s dB, 1e-4 %s dB\n",
			r.Mode, c.Condition, dbm(c.Delta.E3), c.Delta.E4)
	}
}

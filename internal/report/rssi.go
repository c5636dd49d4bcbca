package report

import (
	"fmt"

	"github.com/banshee-data/rxsens/internal/rssi"
)

// RSSIDetail renders every level of every check: residual against the
// fitted line and pre minus post detection RSSI, followed by the trend.
func (w *Writer) RSSIDetail(modes []rssi.ModeChecks) {
	for _, mc := range modes {
		w.heading("RF mode: %d", mc.Mode)
		for _, c := range mc.Checks {
			fmt.Fprintf(w.out, "T1: %s, BLF: %s (%s)\n", c.Condition.T1, c.Condition.BLF, c.Source)
			tbl := w.newTable("Pow (dBm)", "Pre mean", "Pre sd", "Post mean", "Post sd", "Residual", "Pre-post")
			for _, l := range c.Levels {
				resSt, ppSt := good, good
				if l.ResidualFail {
					resSt = bad
				}
				if l.PrePostFail {
					ppSt = bad
				}
				tbl.row([]string{
					dbm(l.PowerDBm),
					dbm(l.PreMean), dbm(l.PreStdDev),
					dbm(l.PostMean), dbm(l.PostStdDev),
					dbm(l.Residual), dbm(l.PreMinusPost),
				}, plain, plain, plain, plain, plain, resSt, ppSt)
			}
			tbl.render()
			trend, _ := passFail(!c.TrendFail)
			fmt.Fprintf(w.out, "trend: %.2f (tolerance %.2f) %s\n\n", c.Trend, c.Tolerance, trend)
		}
	}
}

// RSSIBrief renders one pass/fail line per check, grouped by mode.
func (w *Writer) RSSIBrief(modes []rssi.ModeChecks) {
	for _, mc := range modes {
		overall, _ := passFail(mc.Pass())
		w.heading("RF mode: %d [%s]", mc.Mode, overall)
		tbl := w.newTable("T1", "BLF", "Residual", "Pre-post", "Trend", "Result")
		for _, c := range mc.Checks {
			res, resSt := passFail(!c.ResidualFail)
			pp, ppSt := passFail(!c.PrePostFail)
			_, trSt := passFail(!c.TrendFail)
			all, allSt := passFail(c.Pass())
			tbl.row([]string{c.Condition.T1.String(), c.Condition.BLF.String(), res, pp, dbm(c.Trend), all},
				plain, plain, resSt, ppSt, trSt, allSt)
		}
		tbl.render()
	}
}

// Package rssi checks that the pre-detection RSSI of a sweep behaves like a
// noise floor: flat across input power and never above the post-detection
// reading at the same level.
package rssi

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rxsens/internal/berlog"
)

// DefaultTolerance is the allowed residual and trend, in raw RSSI counts.
const DefaultTolerance = 50.0

var (
	// ErrTooFewLevels is returned for sweeps too short to fit a line.
	ErrTooFewLevels = errors.New("rssi check needs at least two power levels")
	// ErrNoSamples is returned when a power level has no RSSI readings.
	ErrNoSamples = errors.New("power level has no RSSI readings")
)

// LevelStats is the per power level part of a check, in ascending power
// order.
type LevelStats struct {
	PowerDBm     float64 `json:"power_dbm"`
	PreMean      float64 `json:"pre_mean"`
	PreStdDev    float64 `json:"pre_stddev"`
	PostMean     float64 `json:"post_mean"`
	PostStdDev   float64 `json:"post_stddev"`
	Fitted       float64 `json:"fitted"`
	Residual     float64 `json:"residual"`       // PreMean - Fitted
	PreMinusPost float64 `json:"pre_minus_post"` // must not be positive
	ResidualFail bool    `json:"residual_fail"`
	PrePostFail  bool    `json:"pre_post_fail"`
}

// Check is the outcome for one condition record. The line is fitted to the
// pre-detection means against the level index 0..N-1, not the power value.
type Check struct {
	Source       string              `json:"source"`
	Mode         berlog.RFMode       `json:"rf_mode"`
	Condition    berlog.ConditionKey `json:"condition"`
	Tolerance    float64             `json:"tolerance"`
	Intercept    float64             `json:"intercept"`
	Slope        float64             `json:"slope"`
	Trend        float64             `json:"trend"` // Slope * (N-1)
	MaxResidual  float64             `json:"max_abs_residual"`
	Levels       []LevelStats        `json:"levels"`
	ResidualFail bool                `json:"residual_fail"`
	TrendFail    bool                `json:"trend_fail"`
	PrePostFail  bool                `json:"pre_post_fail"`
}

// Pass reports whether none of the three checks failed.
func (c *Check) Pass() bool {
	return !c.ResidualFail && !c.TrendFail && !c.PrePostFail
}

func meanStdDev(samples []int) (float64, float64) {
	x := make([]float64, len(samples))
	for i, v := range samples {
		x[i] = float64(v)
	}
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// CheckRecord runs the RSSI check on one record with the given tolerance.
func CheckRecord(rec *berlog.ConditionRecord, tolerance float64) (*Check, error) {
	levels := rec.LevelsByPower()
	n := len(levels)
	if n < 2 {
		return nil, fmt.Errorf("%s: %w (have %d)", rec.Name, ErrTooFewLevels, n)
	}

	c := &Check{
		Source:    rec.Name,
		Mode:      rec.RFMode,
		Condition: rec.Key(),
		Tolerance: tolerance,
		Levels:    make([]LevelStats, n),
	}

	idx := make([]float64, n)
	pre := make([]float64, n)
	post := make([]float64, n)
	for i, l := range levels {
		if len(l.PreRSSI) == 0 || len(l.RSSI) == 0 {
			return nil, fmt.Errorf("%s: %.2f dBm: %w", rec.Name, l.PowerDBm, ErrNoSamples)
		}
		ls := &c.Levels[i]
		ls.PowerDBm = l.PowerDBm
		ls.PreMean, ls.PreStdDev = meanStdDev(l.PreRSSI)
		ls.PostMean, ls.PostStdDev = meanStdDev(l.RSSI)
		idx[i] = float64(i)
		pre[i] = ls.PreMean
		post[i] = ls.PostMean
	}

	c.Intercept, c.Slope = stat.LinearRegression(idx, pre, nil, false)
	c.Trend = c.Slope * float64(n-1)

	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = c.Intercept + c.Slope*idx[i]
	}
	residual := floats.SubTo(make([]float64, n), pre, fitted)
	preMinusPost := floats.SubTo(make([]float64, n), pre, post)

	abs := make([]float64, n)
	for i := range c.Levels {
		ls := &c.Levels[i]
		ls.Fitted = fitted[i]
		ls.Residual = residual[i]
		ls.PreMinusPost = preMinusPost[i]
		ls.ResidualFail = math.Abs(residual[i]) > tolerance
		ls.PrePostFail = preMinusPost[i] > 0
		abs[i] = math.Abs(residual[i])
		c.ResidualFail = c.ResidualFail || ls.ResidualFail
		c.PrePostFail = c.PrePostFail || ls.PrePostFail
	}
	c.MaxResidual = floats.Max(abs)
	c.TrendFail = math.Abs(c.Trend) > tolerance
	return c, nil
}

// ModeChecks holds the checks of one RF mode in record order.
type ModeChecks struct {
	Mode   berlog.RFMode `json:"rf_mode"`
	Checks []*Check      `json:"checks"`
}

// Pass reports whether every check of the mode passed.
func (m ModeChecks) Pass() bool {
	for _, c := range m.Checks {
		if !c.Pass() {
			return false
		}
	}
	return true
}

// CheckRun checks every record whose condition is in conds (all conditions
// when conds is empty), grouped by RF mode. Records that cannot be checked
// are left out and their errors joined into the returned error.
func CheckRun(records []*berlog.ConditionRecord, tolerance float64, conds []berlog.ConditionKey) ([]ModeChecks, error) {
	want := make(map[berlog.ConditionKey]bool, len(conds))
	for _, k := range conds {
		want[k] = true
	}

	modes, groups := berlog.GroupByMode(records)
	var out []ModeChecks
	var errs []error
	for _, mode := range modes {
		mc := ModeChecks{Mode: mode}
		for _, rec := range groups[mode] {
			if len(want) > 0 && !want[rec.Key()] {
				continue
			}
			c, err := CheckRecord(rec, tolerance)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			mc.Checks = append(mc.Checks, c)
		}
		if len(mc.Checks) > 0 {
			out = append(out, mc)
		}
	}
	return out, errors.Join(errs...)
}

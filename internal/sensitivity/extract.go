// Package sensitivity derives receiver sensitivity figures from BER curves,
// groups them per RF mode and test condition, and compares two runs.
//
// Sensitivity is the input power at which the BER crosses a threshold: 1e-3
// is mandatory, 1e-4 is reported when the curve gets that low. Lower is
// better, so a candidate whose figure is higher than the baseline's by more
// than the tolerance is a regression.
package sensitivity

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/monitoring"
)

// BER thresholds for the two sensitivity figures.
const (
	ThresholdE3 = 1e-3
	ThresholdE4 = 1e-4
)

// Result holds the sensitivity figures of one condition record.
type Result struct {
	E3        float64  `json:"e3_dbm"`
	E4        Optional `json:"e4_dbm"`
	Monotonic bool     `json:"monotonic"`
}

// Method selects the interpolation used for the threshold crossings.
type Method int

const (
	// Global interpolates over the whole descending-power curve. This is the
	// authoritative calculation.
	Global Method = iota
	// FirstCrossing uses the first crossing from the low-power side with a
	// one-point lookback, for curves known to be non-monotonic.
	FirstCrossing
)

func (m Method) String() string {
	switch m {
	case Global:
		return "global"
	case FirstCrossing:
		return "first_crossing"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses "global" or "first_crossing".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return Global, nil
	case "first_crossing", "first-crossing":
		return FirstCrossing, nil
	}
	return 0, fmt.Errorf("unknown interpolation method %q", s)
}

// Extractor computes sensitivity results from condition records.
type Extractor struct {
	Method Method
}

// ExtractCurve computes the sensitivity of a power to BER mapping with the
// Global method. Monotonicity problems are reported in Result.Monotonic
// only; use Extractor.Extract to have them logged.
func ExtractCurve(ber map[float64]float64) (Result, error) {
	res, _, err := Extractor{}.extract(ber)
	return res, err
}

// Extract computes the sensitivity of one record. A curve whose best point
// never reaches 1e-3 fails with an *InsufficientDataError. A
// non-monotonic curve is logged and returned with its warning.
func (x Extractor) Extract(rec *berlog.ConditionRecord) (Result, *MonotonicityWarning, error) {
	res, badPower, err := x.extract(rec.BER())
	if err != nil {
		var ide *InsufficientDataError
		if errors.As(err, &ide) {
			ide.Source = rec.Name
			ide.Mode = rec.RFMode
			ide.Condition = rec.Key()
		}
		return Result{}, nil, err
	}
	if res.Monotonic {
		return res, nil, nil
	}
	w := &MonotonicityWarning{
		Source:    rec.Name,
		Mode:      rec.RFMode,
		Condition: rec.Key(),
		PowerDBm:  badPower,
	}
	monitoring.Warnf("%s", w)
	return res, w, nil
}

// extract returns the result and, for a non-monotonic curve, the power of
// the first offending level.
func (x Extractor) extract(ber map[float64]float64) (Result, float64, error) {
	pts := NewCurve(ber)
	for _, p := range pts {
		if !(p.BER > 0 && p.BER <= 1) {
			return Result{}, 0, fmt.Errorf("%w: %g at %.2f dBm", ErrInvalidBER, p.BER, p.PowerDBm)
		}
	}
	if len(pts) == 0 {
		return Result{}, 0, &InsufficientDataError{Threshold: ThresholdE3}
	}

	var badPower float64
	monotonic := true
	if i := firstNonMonotonic(pts); i >= 0 {
		monotonic = false
		badPower = pts[i].PowerDBm
	}

	bers := make([]float64, len(pts))
	for i, p := range pts {
		bers[i] = p.BER
	}
	best := floats.Min(bers)
	if best > ThresholdE3 {
		return Result{}, 0, &InsufficientDataError{
			Threshold: ThresholdE3,
			BestBER:   best,
			Points:    len(pts),
		}
	}

	interp := InterpolateLog
	if x.Method == FirstCrossing {
		interp = InterpolateFirstCrossing
	}

	e3, err := interp(pts, ThresholdE3)
	if err != nil {
		return Result{}, 0, fmt.Errorf("1e-3 crossing: %w", err)
	}
	res := Result{E3: e3, E4: None(), Monotonic: monotonic}
	if best <= ThresholdE4 {
		e4, err := interp(pts, ThresholdE4)
		if err != nil {
			return Result{}, 0, fmt.Errorf("1e-4 crossing: %w", err)
		}
		res.E4 = Some(e4)
	}
	return res, badPower, nil
}

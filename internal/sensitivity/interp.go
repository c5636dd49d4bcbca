package sensitivity

import (
	"sort"

	"github.com/banshee-data/rxsens/internal/units"
)

// Point is one level of a BER curve.
type Point struct {
	PowerDBm float64
	BER      float64
}

// NewCurve drops the error-free levels (BER 0 has no logarithm) and sorts
// the rest by descending power, best level first.
func NewCurve(ber map[float64]float64) []Point {
	pts := make([]Point, 0, len(ber))
	for p, b := range ber {
		if b == 0 {
			continue
		}
		pts = append(pts, Point{PowerDBm: p, BER: b})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].PowerDBm > pts[j].PowerDBm })
	return pts
}

// firstNonMonotonic returns the index of the first point whose BER does not
// exceed that of the next-higher power level, or -1 if BER strictly rises
// as power falls. pts must be sorted by descending power.
func firstNonMonotonic(pts []Point) int {
	for i := 1; i < len(pts); i++ {
		if pts[i].BER <= pts[i-1].BER {
			return i
		}
	}
	return -1
}

// lerpLog returns the power at which the straight line through a and b in
// (power, log10 BER) space reaches target.
func lerpLog(a, b Point, target float64) float64 {
	ya, yb := units.Log10BER(a.BER), units.Log10BER(b.BER)
	return a.PowerDBm + (units.Log10BER(target)-ya)*(b.PowerDBm-a.PowerDBm)/(yb-ya)
}

// InterpolateLog finds the power at which the piecewise-linear log10(BER)
// curve crosses target. pts must be sorted by descending power with no zero
// BER. Crossings are searched from the high-power end, so on a noisy curve
// the highest-power (most conservative) crossing wins. A point that sits
// exactly on target is returned as is. If every point is already below
// target the lowest measured power is returned; the result never leaves the
// measured range.
func InterpolateLog(pts []Point, target float64) (float64, error) {
	reached := false
	for i, p := range pts {
		if p.BER <= target {
			reached = true
		}
		if i > 0 {
			prev := pts[i-1]
			if (prev.BER < target && p.BER > target) || (prev.BER > target && p.BER < target) {
				return lerpLog(prev, p, target), nil
			}
		}
		if p.BER == target {
			return p.PowerDBm, nil
		}
	}
	if !reached {
		return 0, ErrNoCrossing
	}
	return pts[len(pts)-1].PowerDBm, nil
}

// InterpolateFirstCrossing walks the curve from the lowest power upwards,
// stops at the first point whose BER is at or below target and interpolates
// in log10(BER) between that point and the one just below it in power. It
// only needs the first crossing from the noisy low-power side, so it
// tolerates curves that are not monotonic at low BER. pts may be in any
// order; zero-BER points are ignored. When the lowest-power point already
// meets target there is nothing to interpolate against and its power is
// returned.
func InterpolateFirstCrossing(pts []Point, target float64) (float64, error) {
	asc := make([]Point, 0, len(pts))
	for _, p := range pts {
		if p.BER > 0 {
			asc = append(asc, p)
		}
	}
	sort.Slice(asc, func(i, j int) bool { return asc[i].PowerDBm < asc[j].PowerDBm })

	for i, p := range asc {
		if p.BER > target {
			continue
		}
		if p.BER == target || i == 0 {
			return p.PowerDBm, nil
		}
		return lerpLog(asc[i-1], p, target), nil
	}
	return 0, ErrNoCrossing
}

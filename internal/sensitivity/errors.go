package sensitivity

import (
	"errors"
	"fmt"

	"github.com/banshee-data/rxsens/internal/berlog"
)

var (
	// ErrInsufficientData matches every InsufficientDataError via errors.Is.
	ErrInsufficientData = errors.New("insufficient BER data")
	// ErrNoCrossing is returned by the interpolators when no point of the
	// curve reaches the target BER.
	ErrNoCrossing = errors.New("BER curve never reaches target")
	// ErrInvalidBER is returned for a curve holding a BER outside [0,1].
	ErrInvalidBER = errors.New("BER outside [0,1]")
)

// InsufficientDataError reports a curve whose best point never reaches the
// mandatory 1e-3 threshold, so the sensitivity is undefined.
type InsufficientDataError struct {
	Source    string
	Mode      berlog.RFMode
	Condition berlog.ConditionKey
	Threshold float64
	BestBER   float64 // lowest non-zero BER on the curve; 0 when there is none
	Points    int     // non-zero BER points considered
}

func (e *InsufficientDataError) Error() string {
	if e.Points == 0 {
		return fmt.Sprintf("mode %d %s (%s): no non-zero BER points, %g sensitivity undefined",
			e.Mode, e.Condition, e.Source, e.Threshold)
	}
	return fmt.Sprintf("mode %d %s (%s): best BER %.3g never reaches %g over %d points",
		e.Mode, e.Condition, e.Source, e.BestBER, e.Threshold, e.Points)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// MonotonicityWarning flags a curve whose BER does not strictly rise as
// power falls. Extraction still proceeds on the sorted data.
type MonotonicityWarning struct {
	Source    string              `json:"source"`
	Mode      berlog.RFMode       `json:"rf_mode"`
	Condition berlog.ConditionKey `json:"condition"`
	PowerDBm  float64             `json:"power_dbm"` // first power level where the BER failed to rise
}

func (w MonotonicityWarning) String() string {
	return fmt.Sprintf("mode %d %s (%s): BER not monotonically decreasing with increasing input power (at %.2f dBm)",
		w.Mode, w.Condition, w.Source, w.PowerDBm)
}

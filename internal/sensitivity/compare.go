package sensitivity

import (
	"sort"

	"github.com/banshee-data/rxsens/internal/berlog"
)

// DefaultToleranceDB is the sensitivity change beyond which a comparison is
// flagged.
const DefaultToleranceDB = 0.5

// Options controls a comparison.
type Options struct {
	ToleranceDB    float64
	Conditions     []berlog.ConditionKey // defaults to the full 3x3 grid
	BaselineLabel  string
	CandidateLabel string
}

// DefaultOptions returns the standard comparison settings.
func DefaultOptions() Options {
	return Options{
		ToleranceDB:    DefaultToleranceDB,
		Conditions:     berlog.StandardGrid(),
		BaselineLabel:  "baseline",
		CandidateLabel: "candidate",
	}
}

// Delta is baseline minus candidate for each figure. Negative means the
// candidate needs more power, i.e. is worse.
type Delta struct {
	E3 float64  `json:"e3_db"`
	E4 Optional `json:"e4_db"`
}

// Comparison is one condition present in both tables.
type Comparison struct {
	Condition    berlog.ConditionKey `json:"condition"`
	Baseline     Result              `json:"baseline"`
	Candidate    Result              `json:"candidate"`
	Delta        Delta               `json:"delta"`
	E3Regression bool                `json:"e3_regression"`
	E4Regression bool                `json:"e4_regression"`
}

// Regressed reports whether either figure is flagged.
func (c Comparison) Regressed() bool { return c.E3Regression || c.E4Regression }

// Report is the reconciled comparison of two sensitivity tables. Modes only
// holds conditions found in both tables; AllModes lists every mode seen on
// either side, including modes with nothing to compare.
type Report struct {
	BaselineLabel  string                                               `json:"baseline_label"`
	CandidateLabel string                                               `json:"candidate_label"`
	ToleranceDB    float64                                              `json:"tolerance_db"`
	Conditions     []berlog.ConditionKey                                `json:"conditions"`
	AllModes       []berlog.RFMode                                      `json:"all_modes"`
	Modes          map[berlog.RFMode]map[berlog.ConditionKey]Comparison `json:"modes"`
}

// presence says which side of a comparison holds a condition.
type presence int

const (
	neither presence = iota
	baselineOnly
	candidateOnly
	both
)

func lookupPair(a, b *Table, mode berlog.RFMode, key berlog.ConditionKey) (Result, Result, presence) {
	ra, inA := a.Lookup(mode, key)
	rb, inB := b.Lookup(mode, key)
	switch {
	case inA && inB:
		return ra, rb, both
	case inA:
		return ra, rb, baselineOnly
	case inB:
		return ra, rb, candidateOnly
	}
	return ra, rb, neither
}

// Compare reconciles baseline a against candidate b for every mode in
// either table and every requested condition. Conditions missing from
// either side are skipped without error. A figure regresses when its delta
// is below -ToleranceDB; e4 is compared only when both sides have it.
func Compare(a, b *Table, opts Options) *Report {
	conds := opts.Conditions
	if len(conds) == 0 {
		conds = berlog.StandardGrid()
	}
	rep := &Report{
		BaselineLabel:  opts.BaselineLabel,
		CandidateLabel: opts.CandidateLabel,
		ToleranceDB:    opts.ToleranceDB,
		Conditions:     conds,
		AllModes:       unionModes(a, b),
		Modes:          make(map[berlog.RFMode]map[berlog.ConditionKey]Comparison),
	}

	for _, mode := range rep.AllModes {
		for _, key := range conds {
			ra, rb, p := lookupPair(a, b, mode, key)
			if p != both {
				continue
			}
			c := compareResults(key, ra, rb, opts.ToleranceDB)
			inner, ok := rep.Modes[mode]
			if !ok {
				inner = make(map[berlog.ConditionKey]Comparison)
				rep.Modes[mode] = inner
			}
			inner[key] = c
		}
	}
	return rep
}

func compareResults(key berlog.ConditionKey, base, cand Result, tol float64) Comparison {
	d := Delta{E3: base.E3 - cand.E3, E4: base.E4.Sub(cand.E4)}
	c := Comparison{
		Condition:    key,
		Baseline:     base,
		Candidate:    cand,
		Delta:        d,
		E3Regression: d.E3 < -tol,
	}
	if e4, ok := d.E4.Get(); ok {
		c.E4Regression = e4 < -tol
	}
	return c
}

func unionModes(a, b *Table) []berlog.RFMode {
	seen := make(map[berlog.RFMode]bool)
	for _, t := range []*Table{a, b} {
		if t == nil {
			continue
		}
		for m := range t.Modes {
			seen[m] = true
		}
	}
	modes := make([]berlog.RFMode, 0, len(seen))
	for m := range seen {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Entries returns the comparisons of one mode in requested-condition order.
func (r *Report) Entries(mode berlog.RFMode) []Comparison {
	inner := r.Modes[mode]
	out := make([]Comparison, 0, len(inner))
	for _, key := range r.Conditions {
		if c, ok := inner[key]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ModeFailed reports whether any condition of a mode has an e3 regression.
func (r *Report) ModeFailed(mode berlog.RFMode) bool {
	for _, c := range r.Modes[mode] {
		if c.E3Regression {
			return true
		}
	}
	return false
}

// RegressionRef locates a flagged comparison.
type RegressionRef struct {
	Mode       berlog.RFMode
	Comparison Comparison
}

// Regressions lists every flagged comparison, by mode then condition order.
func (r *Report) Regressions() []RegressionRef {
	var out []RegressionRef
	for _, mode := range r.AllModes {
		for _, c := range r.Entries(mode) {
			if c.Regressed() {
				out = append(out, RegressionRef{Mode: mode, Comparison: c})
			}
		}
	}
	return out
}

// HasRegression reports whether any comparison is flagged.
func (r *Report) HasRegression() bool {
	return len(r.Regressions()) > 0
}

// Len returns the number of compared conditions across all modes.
func (r *Report) Len() int {
	n := 0
	for _, inner := range r.Modes {
		n += len(inner)
	}
	return n
}

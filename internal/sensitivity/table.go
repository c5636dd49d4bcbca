package sensitivity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/monitoring"
)

// Table maps RF mode and (T1, BLF) condition to a sensitivity result.
type Table struct {
	Modes    map[berlog.RFMode]map[berlog.ConditionKey]Result `json:"modes"`
	Warnings []MonotonicityWarning                            `json:"warnings,omitempty"`
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{Modes: make(map[berlog.RFMode]map[berlog.ConditionKey]Result)}
}

// Set stores a result and reports whether it replaced an existing one.
func (t *Table) Set(mode berlog.RFMode, key berlog.ConditionKey, r Result) bool {
	inner, ok := t.Modes[mode]
	if !ok {
		inner = make(map[berlog.ConditionKey]Result)
		t.Modes[mode] = inner
	}
	_, replaced := inner[key]
	inner[key] = r
	return replaced
}

// Lookup returns the result for a mode and condition.
func (t *Table) Lookup(mode berlog.RFMode, key berlog.ConditionKey) (Result, bool) {
	if t == nil {
		return Result{}, false
	}
	r, ok := t.Modes[mode][key]
	return r, ok
}

// SortedModes returns the table's RF modes in ascending order.
func (t *Table) SortedModes() []berlog.RFMode {
	modes := make([]berlog.RFMode, 0, len(t.Modes))
	for m := range t.Modes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Len returns the number of results in the table.
func (t *Table) Len() int {
	n := 0
	for _, inner := range t.Modes {
		n += len(inner)
	}
	return n
}

// Aggregate extracts every record with the Global method. See
// Extractor.Aggregate.
func Aggregate(records []*berlog.ConditionRecord) (*Table, error) {
	return Extractor{}.Aggregate(records)
}

// Aggregate extracts the sensitivity of each record and files it under
// (rf_mode, t1_blf). Two records with the same key overwrite one another in
// input order; the overwrite is logged and is not an error. Records whose
// extraction fails are left out of the table and their errors are joined
// into the returned error, so the caller gets both the partial table and
// every failure.
func (x Extractor) Aggregate(records []*berlog.ConditionRecord) (*Table, error) {
	t := NewTable()
	var errs []error
	for _, rec := range records {
		res, warn, err := x.Extract(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
			continue
		}
		if warn != nil {
			t.Warnings = append(t.Warnings, *warn)
		}
		if t.Set(rec.RFMode, rec.Key(), res) {
			monitoring.Logf("mode %d %s: %s replaces an earlier record with the same condition",
				rec.RFMode, rec.Key(), rec.Name)
		}
	}
	return t, errors.Join(errs...)
}

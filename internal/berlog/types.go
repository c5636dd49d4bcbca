// Package berlog turns per-packet BER test logs into condition records: one
// record per log file, holding the link metadata and the per-attenuation
// BER, PER and RSSI aggregates for the sweep.
package berlog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RFMode is the integer RF mode code the receiver was configured with.
type RFMode int

// T1Time is the T1 sync timing setting of a test condition.
type T1Time int

const (
	T1Min T1Time = iota
	T1Nom
	T1Max
)

// AllT1Times lists the T1 settings in display order.
var AllT1Times = []T1Time{T1Min, T1Nom, T1Max}

func (t T1Time) String() string {
	switch t {
	case T1Min:
		return "min"
	case T1Nom:
		return "nom"
	case T1Max:
		return "max"
	default:
		return "T1Time(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseT1Time parses "min", "nom" or "max".
func ParseT1Time(s string) (T1Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min":
		return T1Min, nil
	case "nom":
		return T1Nom, nil
	case "max":
		return T1Max, nil
	}
	return 0, fmt.Errorf("invalid t1_time %q (want min, nom or max)", s)
}

// MarshalText encodes the setting as its log-file spelling.
func (t T1Time) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes the log-file spelling.
func (t *T1Time) UnmarshalText(b []byte) error {
	v, err := ParseT1Time(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// BLFErr is the backscatter link frequency error setting of a test condition.
type BLFErr int

const (
	BLFNeg BLFErr = iota
	BLFNom
	BLFPos
)

// AllBLFErrs lists the BLF error settings in display order.
var AllBLFErrs = []BLFErr{BLFNeg, BLFNom, BLFPos}

func (b BLFErr) String() string {
	switch b {
	case BLFNeg:
		return "neg"
	case BLFNom:
		return "nom"
	case BLFPos:
		return "pos"
	default:
		return "BLFErr(" + strconv.Itoa(int(b)) + ")"
	}
}

// ParseBLFErr parses "neg", "nom" or "pos".
func ParseBLFErr(s string) (BLFErr, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "neg":
		return BLFNeg, nil
	case "nom":
		return BLFNom, nil
	case "pos":
		return BLFPos, nil
	}
	return 0, fmt.Errorf("invalid blf_err %q (want neg, nom or pos)", s)
}

// MarshalText encodes the setting as its log-file spelling.
func (b BLFErr) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText decodes the log-file spelling.
func (b *BLFErr) UnmarshalText(text []byte) error {
	v, err := ParseBLFErr(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ConditionKey identifies a (T1, BLF error) combination within an RF mode.
type ConditionKey struct {
	T1  T1Time
	BLF BLFErr
}

// String renders the key the way test logs and reports name it, e.g. "nom_neg".
func (k ConditionKey) String() string {
	return k.T1.String() + "_" + k.BLF.String()
}

// MarshalText lets ConditionKey be used as a JSON object key.
func (k ConditionKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses "t1_blf".
func (k *ConditionKey) UnmarshalText(b []byte) error {
	t1, blf, ok := strings.Cut(string(b), "_")
	if !ok {
		return fmt.Errorf("invalid condition key %q", b)
	}
	var err error
	if k.T1, err = ParseT1Time(t1); err != nil {
		return err
	}
	k.BLF, err = ParseBLFErr(blf)
	return err
}

// ConditionGrid returns every combination of the given settings, T1 major.
func ConditionGrid(t1s []T1Time, blfs []BLFErr) []ConditionKey {
	out := make([]ConditionKey, 0, len(t1s)*len(blfs))
	for _, t1 := range t1s {
		for _, blf := range blfs {
			out = append(out, ConditionKey{T1: t1, BLF: blf})
		}
	}
	return out
}

// StandardGrid is the full 3x3 grid of T1 and BLF error settings.
func StandardGrid() []ConditionKey {
	return ConditionGrid(AllT1Times, AllBLFErrs)
}

// ParseT1List parses a comma-separated list of T1 settings.
// Returns nil, nil for empty input strings.
func ParseT1List(s string) ([]T1Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []T1Time
	for _, p := range strings.Split(s, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		v, err := ParseT1Time(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseBLFList parses a comma-separated list of BLF error settings.
// Returns nil, nil for empty input strings.
func ParseBLFList(s string) ([]BLFErr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []BLFErr
	for _, p := range strings.Split(s, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		v, err := ParseBLFErr(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// PowerLevel aggregates all packets captured at one attenuator setting.
type PowerLevel struct {
	AttenuationDB float64
	PowerDBm      float64 // receive power at the antenna input
	BitErrors     int64
	Bits          int64
	Packets       int
	ErrPackets    int // packets with at least one bit error
	BER           float64
	PER           float64
	RSSI          []int // post-detection readings, in log order
	PreRSSI       []int // pre-detection (noise only) readings, in log order
}

// ConditionRecord is one test log reduced to its sweep. Levels keep the
// order in which attenuations first appear in the log. Records are built
// once by the reader and treated as read-only afterwards.
type ConditionRecord struct {
	Name           string
	RFMode         RFMode
	T1             T1Time
	BLF            BLFErr
	FreqMHz        float64
	TxPowerDBm     float64
	Region         string
	EndToEndLossDB float64
	Levels         []PowerLevel
}

// Key returns the record's (T1, BLF) condition.
func (r *ConditionRecord) Key() ConditionKey {
	return ConditionKey{T1: r.T1, BLF: r.BLF}
}

// BER returns the power to BER mapping of the sweep.
func (r *ConditionRecord) BER() map[float64]float64 {
	out := make(map[float64]float64, len(r.Levels))
	for _, l := range r.Levels {
		out[l.PowerDBm] = l.BER
	}
	return out
}

// PER returns the power to packet error rate mapping of the sweep.
func (r *ConditionRecord) PER() map[float64]float64 {
	out := make(map[float64]float64, len(r.Levels))
	for _, l := range r.Levels {
		out[l.PowerDBm] = l.PER
	}
	return out
}

// RSSISamples returns the power to post-detection readings mapping.
func (r *ConditionRecord) RSSISamples() map[float64][]int {
	out := make(map[float64][]int, len(r.Levels))
	for _, l := range r.Levels {
		out[l.PowerDBm] = l.RSSI
	}
	return out
}

// PreRSSISamples returns the power to pre-detection readings mapping.
func (r *ConditionRecord) PreRSSISamples() map[float64][]int {
	out := make(map[float64][]int, len(r.Levels))
	for _, l := range r.Levels {
		out[l.PowerDBm] = l.PreRSSI
	}
	return out
}

// LevelsByPower returns a copy of the levels sorted by ascending power.
func (r *ConditionRecord) LevelsByPower() []PowerLevel {
	out := make([]PowerLevel, len(r.Levels))
	copy(out, r.Levels)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PowerDBm < out[j].PowerDBm })
	return out
}

// GroupByMode groups records by RF mode, preserving input order within each
// mode. The returned mode list is sorted.
func GroupByMode(records []*ConditionRecord) ([]RFMode, map[RFMode][]*ConditionRecord) {
	groups := make(map[RFMode][]*ConditionRecord)
	for _, r := range records {
		groups[r.RFMode] = append(groups[r.RFMode], r)
	}
	modes := make([]RFMode, 0, len(groups))
	for m := range groups {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes, groups
}

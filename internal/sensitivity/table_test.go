package sensitivity

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/monitoring"
)

var (
	minNeg = berlog.ConditionKey{T1: berlog.T1Min, BLF: berlog.BLFNeg}
	nomNeg = berlog.ConditionKey{T1: berlog.T1Nom, BLF: berlog.BLFNeg}
	nomNom = berlog.ConditionKey{T1: berlog.T1Nom, BLF: berlog.BLFNom}
	maxPos = berlog.ConditionKey{T1: berlog.T1Max, BLF: berlog.BLFPos}
)

func sampleRecords() []*berlog.ConditionRecord {
	return []*berlog.ConditionRecord{
		record("m11_nom_neg.csv", 11, berlog.T1Nom, berlog.BLFNeg, map[float64]float64{-66: 1e-4, -70: 1e-2}),
		record("m11_max_pos.csv", 11, berlog.T1Max, berlog.BLFPos, map[float64]float64{-66: 5e-4, -70: 1e-2}),
		record("m13_nom_neg.csv", 13, berlog.T1Nom, berlog.BLFNeg, map[float64]float64{-70: 1e-5, -74: 1e-3, -78: 1e-1}),
	}
}

func TestAggregate(t *testing.T) {
	muteLogs(t)

	table, err := Aggregate(sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, []berlog.RFMode{11, 13}, table.SortedModes())
	assert.Equal(t, 3, table.Len())
	assert.Empty(t, table.Warnings)

	r, ok := table.Lookup(11, nomNeg)
	require.True(t, ok)
	assert.InDelta(t, -68, r.E3, 1e-9)
	assert.True(t, r.E4.Equal(Some(-66)))

	r, ok = table.Lookup(11, maxPos)
	require.True(t, ok)
	assert.False(t, r.E4.Valid())

	r, ok = table.Lookup(13, nomNeg)
	require.True(t, ok)
	assert.Equal(t, -74.0, r.E3)

	_, ok = table.Lookup(13, maxPos)
	assert.False(t, ok)
	_, ok = table.Lookup(99, nomNeg)
	assert.False(t, ok)
}

func TestAggregate_Idempotent(t *testing.T) {
	muteLogs(t)
	recs := sampleRecords()
	recs = append(recs, record("noisy.csv", 13, berlog.T1Min, berlog.BLFNeg,
		map[float64]float64{-64: 1e-5, -68: 2e-3, -72: 1e-4, -76: 1e-2}))

	first, err := Aggregate(recs)
	require.NoError(t, err)
	second, err := Aggregate(recs)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Aggregate not idempotent (-first +second):\n%s", diff)
	}
	require.Len(t, first.Warnings, 1)
	assert.Equal(t, "noisy.csv", first.Warnings[0].Source)
}

func TestAggregate_LastWriteWins(t *testing.T) {
	var logged int
	original := monitoring.Logf
	monitoring.SetLogger(func(string, ...interface{}) { logged++ })
	t.Cleanup(func() { monitoring.Logf = original })

	recs := []*berlog.ConditionRecord{
		record("first.csv", 11, berlog.T1Nom, berlog.BLFNom, map[float64]float64{-66: 1e-4, -70: 1e-2}),
		record("second.csv", 11, berlog.T1Nom, berlog.BLFNom, map[float64]float64{-60: 1e-4, -64: 1e-2}),
	}
	table, err := Aggregate(recs)
	require.NoError(t, err)

	r, ok := table.Lookup(11, nomNom)
	require.True(t, ok)
	assert.InDelta(t, -62, r.E3, 1e-9)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, logged)
}

func TestAggregate_PropagatesExtractionFailures(t *testing.T) {
	muteLogs(t)
	recs := append(sampleRecords(),
		record("dead1.csv", 13, berlog.T1Min, berlog.BLFNeg, map[float64]float64{-70: 1e-2}),
		record("dead2.csv", 11, berlog.T1Min, berlog.BLFNeg, map[float64]float64{-70: 0}),
	)

	table, err := Aggregate(recs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), "dead1.csv")
	assert.Contains(t, err.Error(), "dead2.csv")

	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, berlog.RFMode(13), ide.Mode)
	assert.Equal(t, minNeg, ide.Condition)

	// records that did extract are still there
	assert.Equal(t, 3, table.Len())
	_, ok := table.Lookup(13, minNeg)
	assert.False(t, ok)
}

func TestTable_Set(t *testing.T) {
	table := NewTable()
	assert.False(t, table.Set(11, nomNeg, Result{E3: -70, E4: None()}))
	assert.True(t, table.Set(11, nomNeg, Result{E3: -71, E4: None()}))
	r, _ := table.Lookup(11, nomNeg)
	assert.Equal(t, -71.0, r.E3)

	var nilTable *Table
	_, ok := nilTable.Lookup(11, nomNeg)
	assert.False(t, ok)
}

package sensitivity

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rxsens/internal/berlog"
)

func tableOf(entries map[berlog.RFMode]map[berlog.ConditionKey]Result) *Table {
	t := NewTable()
	for mode, inner := range entries {
		for key, r := range inner {
			t.Set(mode, key, r)
		}
	}
	return t
}

func TestCompare_Regression(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -70, E4: Some(-80)}},
	})
	b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -69, E4: Some(-80)}},
	})

	rep := Compare(a, b, DefaultOptions())
	require.Equal(t, 1, rep.Len())

	c, ok := rep.Modes[11][nomNeg]
	require.True(t, ok)
	assert.Equal(t, -1.0, c.Delta.E3)
	assert.True(t, c.E3Regression)
	e4, ok := c.Delta.E4.Get()
	require.True(t, ok)
	assert.Equal(t, 0.0, e4)
	assert.False(t, c.E4Regression)

	assert.True(t, rep.ModeFailed(11))
	assert.True(t, rep.HasRegression())
	regs := rep.Regressions()
	require.Len(t, regs, 1)
	assert.Equal(t, berlog.RFMode(11), regs[0].Mode)
	assert.Equal(t, nomNeg, regs[0].Comparison.Condition)
}

func TestCompare_ToleranceBoundary(t *testing.T) {
	tests := []struct {
		name    string
		a, b    float64
		regress bool
	}{
		{"improvement", -70, -71, false},
		{"equal", -70, -70, false},
		{"within tolerance", -70, -69.6, false},
		{"exactly at tolerance", -70, -69.5, false},
		{"beyond tolerance", -70, -69.4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{1: {nomNom: {E3: tt.a}}})
			b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{1: {nomNom: {E3: tt.b}}})
			rep := Compare(a, b, DefaultOptions())
			assert.Equal(t, tt.regress, rep.Modes[1][nomNom].E3Regression)
			assert.Equal(t, tt.regress, rep.ModeFailed(1))
		})
	}
}

func TestCompare_E4OnlyWhenBothPresent(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -70, E4: Some(-66)}, maxPos: {E3: -70, E4: None()}},
	})
	b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -70, E4: None()}, maxPos: {E3: -70, E4: Some(-60)}},
	})

	rep := Compare(a, b, DefaultOptions())
	for _, key := range []berlog.ConditionKey{nomNeg, maxPos} {
		c := rep.Modes[11][key]
		assert.False(t, c.Delta.E4.Valid(), key.String())
		assert.False(t, c.E4Regression, key.String())
		assert.False(t, c.Regressed(), key.String())
	}
	assert.False(t, rep.HasRegression())
}

func TestCompare_E4RegressionDoesNotFailMode(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{2: {nomNom: {E3: -70, E4: Some(-68)}}})
	b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{2: {nomNom: {E3: -70, E4: Some(-66)}}})

	rep := Compare(a, b, DefaultOptions())
	c := rep.Modes[2][nomNom]
	assert.True(t, c.E4Regression)
	assert.False(t, c.E3Regression)
	assert.True(t, rep.HasRegression())
	assert.False(t, rep.ModeFailed(2))
}

func TestCompare_MissingConditionsSkipped(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -70}, minNeg: {E3: -71}},
		13: {nomNeg: {E3: -72}},
	})
	b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -70}, maxPos: {E3: -69}},
		15: {nomNeg: {E3: -72}},
	})

	rep := Compare(a, b, DefaultOptions())
	assert.Equal(t, []berlog.RFMode{11, 13, 15}, rep.AllModes)
	assert.Equal(t, 1, rep.Len())
	assert.Contains(t, rep.Modes, berlog.RFMode(11))
	assert.NotContains(t, rep.Modes, berlog.RFMode(13))
	assert.NotContains(t, rep.Modes, berlog.RFMode(15))
	assert.Empty(t, rep.Entries(13))
	assert.False(t, rep.ModeFailed(15))
}

func TestCompare_ConditionSubset(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -70}, nomNom: {E3: -70}, maxPos: {E3: -70}},
	})
	b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{
		11: {nomNeg: {E3: -60}, nomNom: {E3: -70}, maxPos: {E3: -70}},
	})

	opts := DefaultOptions()
	opts.Conditions = []berlog.ConditionKey{maxPos, nomNom}
	rep := Compare(a, b, opts)

	entries := rep.Entries(11)
	require.Len(t, entries, 2)
	assert.Equal(t, maxPos, entries[0].Condition)
	assert.Equal(t, nomNom, entries[1].Condition)
	assert.False(t, rep.HasRegression())
}

func TestCompare_EmptyConditionsMeansFullGrid(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{11: {maxPos: {E3: -70}}})
	rep := Compare(a, a, Options{ToleranceDB: 0.5})
	assert.Len(t, rep.Conditions, 9)
	assert.Equal(t, 1, rep.Len())
}

func TestCompare_NilTables(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{11: {maxPos: {E3: -70}}})
	rep := Compare(a, nil, DefaultOptions())
	assert.Equal(t, []berlog.RFMode{11}, rep.AllModes)
	assert.Zero(t, rep.Len())
}

func randomTable(rng *rand.Rand) *Table {
	t := NewTable()
	grid := berlog.StandardGrid()
	for _, mode := range []berlog.RFMode{1, 3, 11, 13} {
		for _, key := range grid {
			if rng.Intn(3) == 0 {
				continue
			}
			r := Result{E3: -75 + rng.Float64()*10, E4: None()}
			if rng.Intn(2) == 0 {
				r.E4 = Some(r.E3 + rng.Float64()*4)
			}
			t.Set(mode, key, r)
		}
	}
	return t
}

func TestCompare_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 50; n++ {
		a, b := randomTable(rng), randomTable(rng)
		ab := Compare(a, b, DefaultOptions())
		ba := Compare(b, a, DefaultOptions())

		// every condition present in both tables is compared, and nothing else
		want := 0
		for mode, inner := range a.Modes {
			for key := range inner {
				if _, ok := b.Lookup(mode, key); ok {
					want++
				}
			}
		}
		require.Equal(t, want, ab.Len(), "iteration %d", n)

		for mode, inner := range ab.Modes {
			for key, c := range inner {
				r := ba.Modes[mode][key]
				assert.Equal(t, -c.Delta.E3, r.Delta.E3)
				assert.True(t, c.Delta.E4.Valid() == r.Delta.E4.Valid())
				if c.E3Regression {
					assert.False(t, r.E3Regression, "both directions cannot regress")
				}
			}
		}
		assert.Equal(t, ab.AllModes, ba.AllModes)
	}
}

func TestReport_JSON(t *testing.T) {
	a := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{11: {nomNeg: {E3: -70, E4: None()}}})
	b := tableOf(map[berlog.RFMode]map[berlog.ConditionKey]Result{11: {nomNeg: {E3: -69.25, E4: Some(-65)}}})
	rep := Compare(a, b, DefaultOptions())

	out, err := json.Marshal(rep)
	require.NoError(t, err)

	var decoded struct {
		Modes map[string]map[string]struct {
			Delta struct {
				E3 float64  `json:"e3_db"`
				E4 *float64 `json:"e4_db"`
			} `json:"delta"`
			E3Regression bool `json:"e3_regression"`
		} `json:"modes"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	c, ok := decoded.Modes["11"]["nom_neg"]
	require.True(t, ok, string(out))
	assert.Equal(t, -0.75, c.Delta.E3)
	assert.Nil(t, c.Delta.E4)
	assert.True(t, c.E3Regression)
}

func TestOptional(t *testing.T) {
	assert.Equal(t, "---", None().String())
	assert.Equal(t, "-70.50", Some(-70.5).String())
	assert.Equal(t, "-70.5", Some(-70.5).Text("%.1f"))
	assert.True(t, None().Equal(None()))
	assert.False(t, None().Equal(Some(0)))
	assert.False(t, Some(1).Sub(None()).Valid())
	assert.True(t, Some(3).Sub(Some(1)).Equal(Some(2)))

	var o Optional
	require.NoError(t, json.Unmarshal([]byte("-66.5"), &o))
	assert.True(t, o.Equal(Some(-66.5)))
	require.NoError(t, json.Unmarshal([]byte(" null"), &o))
	assert.False(t, o.Valid())
}

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/fsutil"
	"github.com/banshee-data/rxsens/internal/rssi"
	"github.com/banshee-data/rxsens/internal/sensitivity"
)

var (
	nomNeg = berlog.ConditionKey{T1: berlog.T1Nom, BLF: berlog.BLFNeg}
	maxPos = berlog.ConditionKey{T1: berlog.T1Max, BLF: berlog.BLFPos}
)

func sampleTable() *sensitivity.Table {
	t := sensitivity.NewTable()
	t.Set(11, nomNeg, sensitivity.Result{E3: -70, E4: sensitivity.Some(-68.25), Monotonic: true})
	t.Set(11, maxPos, sensitivity.Result{E3: -71.5, E4: sensitivity.None(), Monotonic: false})
	t.Set(13, nomNeg, sensitivity.Result{E3: -74, E4: sensitivity.None(), Monotonic: true})
	t.Warnings = []sensitivity.MonotonicityWarning{{Source: "m11_max_pos.csv", Mode: 11, Condition: maxPos, PowerDBm: -72}}
	return t
}

func TestNewWriter_NoColorForBuffers(t *testing.T) {
	assert.False(t, NewWriter(&bytes.Buffer{}).Color)

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, NewWriter(f).Color)
}

func TestSensitivityTable(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).SensitivityTable("main", sampleTable(), nil)
	out := buf.String()

	assert.Contains(t, out, "Sensitivity: main")
	assert.Contains(t, out, "RF mode: 11")
	assert.Contains(t, out, "RF mode: 13")
	assert.Contains(t, out, "-68.25")
	assert.Contains(t, out, "-71.50")
	assert.Contains(t, out, "---")
	assert.Contains(t, out, "1 curve(s) not monotonic")
	assert.Contains(t, out, "m11_max_pos.csv")
	assert.Less(t, strings.Index(out, "RF mode: 11"), strings.Index(out, "RF mode: 13"))
	assert.NotContains(t, out, "\x1b[")
}

func TestSensitivityTable_FilteredConditions(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).SensitivityTable("", sampleTable(), []berlog.ConditionKey{maxPos})
	out := buf.String()

	assert.NotContains(t, out, "Sensitivity:")
	assert.Contains(t, out, "-71.50")
	assert.NotContains(t, out, "-68.25")
	assert.Contains(t, out, "no requested conditions") // mode 13 has no max_pos
}

func TestComparison(t *testing.T) {
	a := sampleTable()
	b := sensitivity.NewTable()
	b.Set(11, nomNeg, sensitivity.Result{E3: -69, E4: sensitivity.Some(-68.25)})
	b.Set(11, maxPos, sensitivity.Result{E3: -71.5, E4: sensitivity.Some(-70)})
	b.Set(15, nomNeg, sensitivity.Result{E3: -60})

	opts := sensitivity.DefaultOptions()
	opts.BaselineLabel, opts.CandidateLabel = "main", "feature"
	rep := sensitivity.Compare(a, b, opts)

	var buf bytes.Buffer
	NewWriter(&buf).Comparison(rep)
	out := buf.String()

	assert.Contains(t, out, "Comparing main (baseline) against feature, tolerance 0.50 dB")
	assert.Contains(t, out, "RF mode: 11 [FAIL]")
	assert.Contains(t, out, "RF mode: 13 (no conditions in both runs)")
	assert.Contains(t, out, "RF mode: 15 (no conditions in both runs)")
	assert.Contains(t, out, "REGRESSION")
	assert.Contains(t, out, "-1.00")
	assert.Contains(t, out, "1 of 2 compared conditions regressed")
	assert.Contains(t, out, "mode 11 nom_neg: delta 1e-3 -1.00 dB, 1e-4 0.00 dB")
}

func TestComparison_Color(t *testing.T) {
	a := sampleTable()
	b := sensitivity.NewTable()
	b.Set(11, nomNeg, sensitivity.Result{E3: -69})
	rep := sensitivity.Compare(a, b, sensitivity.DefaultOptions())

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Color = true
	w.Comparison(rep)
	assert.Contains(t, buf.String(), "\x1b[")
}

func rssiChecks(t *testing.T) []rssi.ModeChecks {
	t.Helper()
	good := &berlog.ConditionRecord{Name: "good.csv", RFMode: 3, T1: berlog.T1Nom, BLF: berlog.BLFNeg,
		Levels: []berlog.PowerLevel{
			{PowerDBm: -70, PreRSSI: []int{100}, RSSI: []int{300}},
			{PowerDBm: -72, PreRSSI: []int{100}, RSSI: []int{250}},
		}}
	bad := &berlog.ConditionRecord{Name: "bad.csv", RFMode: 3, T1: berlog.T1Max, BLF: berlog.BLFPos,
		Levels: []berlog.PowerLevel{
			{PowerDBm: -70, PreRSSI: []int{400}, RSSI: []int{300}},
			{PowerDBm: -72, PreRSSI: []int{100}, RSSI: []int{250}},
		}}
	checks, err := rssi.CheckRun([]*berlog.ConditionRecord{good, bad}, rssi.DefaultTolerance, nil)
	require.NoError(t, err)
	return checks
}

func TestRSSIDetail(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).RSSIDetail(rssiChecks(t))
	out := buf.String()

	assert.Contains(t, out, "RF mode: 3")
	assert.Contains(t, out, "T1: nom, BLF: neg (good.csv)")
	assert.Contains(t, out, "T1: max, BLF: pos (bad.csv)")
	assert.Contains(t, out, "trend: 0.00 (tolerance 50.00) pass")
	assert.Contains(t, out, "trend: 300.00 (tolerance 50.00) FAIL")
	assert.Contains(t, out, "100.00") // pre minus post at -70 dBm for bad.csv
}

func TestRSSIBrief(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).RSSIBrief(rssiChecks(t))
	out := buf.String()

	assert.Contains(t, out, "RF mode: 3 [FAIL]")
	assert.Equal(t, 1, strings.Count(out, "RF mode"))
	assert.Contains(t, out, "pass")
	assert.Contains(t, out, "FAIL")
}

func TestFailures(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Failures("Extraction failures", nil)
	assert.Empty(t, buf.String())

	w.Failures("Extraction failures", []error{errors.New("m11.csv: insufficient BER data")})
	assert.Contains(t, buf.String(), "Extraction failures (1):")
	assert.Contains(t, buf.String(), "m11.csv")
}

func TestExportJSON(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	run := &berlog.Run{ID: "run-1", Dir: "logs/main", Records: make([]*berlog.ConditionRecord, 3),
		Failures: []*berlog.FileError{{Path: "logs/main/bad.csv", Err: berlog.ErrEmptyLog}}}

	doc := SensitivityExport{Run: NewRunInfo(run, "main"), Method: "global", Table: sampleTable()}
	require.NoError(t, ExportJSON(fsys, "out/show.json", doc))

	data, err := fsys.ReadFile("out/show.json")
	require.NoError(t, err)

	var decoded struct {
		Run struct {
			ID       string   `json:"id"`
			Records  int      `json:"records"`
			Failures []string `json:"failures"`
		} `json:"run"`
		Table struct {
			Modes map[string]map[string]struct {
				E3 float64  `json:"e3_dbm"`
				E4 *float64 `json:"e4_dbm"`
			} `json:"modes"`
		} `json:"table"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.Run.ID)
	assert.Equal(t, 3, decoded.Run.Records)
	require.Len(t, decoded.Run.Failures, 1)
	assert.Contains(t, decoded.Run.Failures[0], "bad.csv")

	r := decoded.Table.Modes["11"]["nom_neg"]
	assert.Equal(t, -70.0, r.E3)
	require.NotNil(t, r.E4)
	assert.Equal(t, -68.25, *r.E4)
	assert.Nil(t, decoded.Table.Modes["11"]["max_pos"].E4)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, RSSIExport{Tolerance: 50, Modes: rssiChecks(t)}))
	assert.Contains(t, buf.String(), `"tolerance": 50`)
	assert.Contains(t, buf.String(), `"condition": "max_pos"`)
}

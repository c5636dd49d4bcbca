// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertNear checks that got is within tol of want.
func AssertNear(t testing.TB, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("got %g, want %g (±%g)", got, want, tol)
	}
}

// LogHeader is the column layout written by LogBuilder. It mirrors the
// capture tool's output, including columns the reader ignores.
var LogHeader = []string{
	"test_comment", "rf_mode", "freq_mhz", "t1_time", "blf_err", "tx_power_dbm",
	"region", "bits/packet", "end_to_end_loss", "attenuation", "packet_num",
	"rssi", "n_bit_err", "t1_rssi",
}

// LogBuilder assembles a synthetic per-packet BER log in CSV form.
type LogBuilder struct {
	RFMode       string
	FreqMHz      float64
	T1           string
	BLF          string
	TxPowerDBm   float64
	Region       string
	EndToEndLoss float64
	BitsPerPkt   int

	rows   []string
	packet int
}

// NewLogBuilder returns a builder with the capture tool's usual defaults:
// mode 11, nom/neg, 30 dBm, 78.18 dB end-to-end loss, 128 bits per packet.
func NewLogBuilder() *LogBuilder {
	return &LogBuilder{
		RFMode:       "11",
		FreqMHz:      902.75,
		T1:           "nom",
		BLF:          "neg",
		TxPowerDBm:   30,
		Region:       "fcc",
		EndToEndLoss: 78.18,
		BitsPerPkt:   128,
	}
}

// Packet appends one packet row.
func (b *LogBuilder) Packet(attenDB float64, bitErrors, rssi, preRSSI int) *LogBuilder {
	b.rows = append(b.rows, fmt.Sprintf("test,%s,%g,%s,%s,%g,%s,%d,%g,%g,%d,%d,%d,%d",
		b.RFMode, b.FreqMHz, b.T1, b.BLF, b.TxPowerDBm, b.Region, b.BitsPerPkt,
		b.EndToEndLoss, attenDB, b.packet, rssi, bitErrors, preRSSI))
	b.packet++
	return b
}

// Level appends n packets at one attenuation, distributing totalErrors over
// the first packets one bit at a time.
func (b *LogBuilder) Level(attenDB float64, n, totalErrors, rssi, preRSSI int) *LogBuilder {
	for i := 0; i < n; i++ {
		e := totalErrors / n
		if i < totalErrors%n {
			e++
		}
		b.Packet(attenDB, e, rssi, preRSSI)
	}
	return b
}

// String renders the log including the header row.
func (b *LogBuilder) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(LogHeader, ","))
	sb.WriteString("\n")
	for _, r := range b.rows {
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Bytes renders the log as bytes.
func (b *LogBuilder) Bytes() []byte { return []byte(b.String()) }

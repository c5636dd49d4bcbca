package berlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/rxsens/internal/units"
)

// Column names read from a per-packet BER log. Any other columns are ignored.
const (
	ColAttenuation   = "attenuation"
	ColBitErrors     = "n_bit_err"
	ColBitsPerPacket = "bits/packet"
	ColRSSI          = "rssi"
	ColPreRSSI       = "t1_rssi"
	ColRFMode        = "rf_mode"
	ColT1Time        = "t1_time"
	ColBLFErr        = "blf_err"
	ColFreqMHz       = "freq_mhz"
	ColTxPowerDBm    = "tx_power_dbm"
	ColRegion        = "region"
	ColEndToEndLoss  = "end_to_end_loss"
)

// RequiredColumns lists the columns every log must carry.
var RequiredColumns = []string{
	ColAttenuation, ColBitErrors, ColBitsPerPacket, ColRSSI, ColPreRSSI,
	ColRFMode, ColT1Time, ColBLFErr, ColFreqMHz, ColTxPowerDBm, ColRegion, ColEndToEndLoss,
}

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyLog is returned for a log with a header but no packet rows.
	ErrEmptyLog = errors.New("log has no packet rows")
	// ErrInvalidBitCount is returned for a packet row whose bit counts cannot
	// describe a BER in [0,1].
	ErrInvalidBitCount = errors.New("invalid bit count")
)

// levelAccumulator gathers the packets of one attenuation setting.
type levelAccumulator struct {
	atten      float64
	bitErrors  int64
	bits       int64
	packets    int
	errPackets int
	rssi       []int
	preRSSI    []int
}

// ReadLog parses a per-packet CSV log into a ConditionRecord. The first row
// must be the header. Metadata columns are taken from the first packet row
// and assumed constant for the file.
func ReadLog(r io.Reader, name string) (*ConditionRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyLog
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	rec := &ConditionRecord{Name: name}
	var levels []*levelAccumulator
	byAtten := make(map[float64]*levelAccumulator)
	rows := 0

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rows+2, err)
		}
		line := rows + 2
		get := func(col string) string { return strings.TrimSpace(row[cols[col]]) }

		if rows == 0 {
			if err := readMetadata(rec, get); err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
		}
		rows++

		atten, err := strconv.ParseFloat(get(ColAttenuation), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, ColAttenuation, err)
		}
		nErr, err := parseInt(get(ColBitErrors))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, ColBitErrors, err)
		}
		bits, err := parseInt(get(ColBitsPerPacket))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, ColBitsPerPacket, err)
		}
		switch {
		case bits <= 0:
			return nil, fmt.Errorf("row %d: %w: %s %d", line, ErrInvalidBitCount, ColBitsPerPacket, bits)
		case nErr < 0 || nErr > bits:
			return nil, fmt.Errorf("row %d: %w: %s %d of %d bits", line, ErrInvalidBitCount, ColBitErrors, nErr, bits)
		}
		rssi, err := parseInt(get(ColRSSI))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, ColRSSI, err)
		}
		preRSSI, err := parseInt(get(ColPreRSSI))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, ColPreRSSI, err)
		}

		acc, ok := byAtten[atten]
		if !ok {
			acc = &levelAccumulator{atten: atten}
			byAtten[atten] = acc
			levels = append(levels, acc)
		}
		acc.bitErrors += nErr
		acc.bits += bits
		acc.packets++
		if nErr > 0 {
			acc.errPackets++
		}
		acc.rssi = append(acc.rssi, int(rssi))
		acc.preRSSI = append(acc.preRSSI, int(preRSSI))
	}

	if rows == 0 {
		return nil, ErrEmptyLog
	}

	rec.Levels = make([]PowerLevel, 0, len(levels))
	for _, acc := range levels {
		rec.Levels = append(rec.Levels, PowerLevel{
			AttenuationDB: acc.atten,
			PowerDBm:      units.RxPowerDBm(rec.TxPowerDBm, rec.EndToEndLossDB, acc.atten),
			BitErrors:     acc.bitErrors,
			Bits:          acc.bits,
			Packets:       acc.packets,
			ErrPackets:    acc.errPackets,
			BER:           float64(acc.bitErrors) / float64(acc.bits),
			PER:           float64(acc.errPackets) / float64(acc.packets),
			RSSI:          acc.rssi,
			PreRSSI:       acc.preRSSI,
		})
	}
	return rec, nil
}

func readMetadata(rec *ConditionRecord, get func(string) string) error {
	mode, err := strconv.ParseFloat(get(ColRFMode), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", ColRFMode, err)
	}
	rec.RFMode = RFMode(int(mode))

	if rec.T1, err = ParseT1Time(get(ColT1Time)); err != nil {
		return err
	}
	if rec.BLF, err = ParseBLFErr(get(ColBLFErr)); err != nil {
		return err
	}
	if rec.FreqMHz, err = strconv.ParseFloat(get(ColFreqMHz), 64); err != nil {
		return fmt.Errorf("invalid %s: %w", ColFreqMHz, err)
	}
	if rec.TxPowerDBm, err = strconv.ParseFloat(get(ColTxPowerDBm), 64); err != nil {
		return fmt.Errorf("invalid %s: %w", ColTxPowerDBm, err)
	}
	if rec.EndToEndLossDB, err = strconv.ParseFloat(get(ColEndToEndLoss), 64); err != nil {
		return fmt.Errorf("invalid %s: %w", ColEndToEndLoss, err)
	}
	rec.Region = get(ColRegion)
	return nil
}

// parseInt accepts plain integers and integral floats ("12" or "12.0").
func parseInt(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int64(f), nil
}

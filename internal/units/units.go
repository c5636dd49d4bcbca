// Package units provides shared link-budget conversions for BER test logs.
package units

import "math"

// RoundTrips is the number of times the inserted attenuation is applied to
// the backscatter link (reader to tag and back).
const RoundTrips = 2

// RxPowerDBm returns the power at the antenna input for a given attenuator
// setting. The attenuation is applied on both legs of the round trip.
func RxPowerDBm(txPowerDBm, endToEndLossDB, attenuationDB float64) float64 {
	return txPowerDBm - endToEndLossDB - attenuationDB*RoundTrips
}

// Log10BER converts a linear bit error rate to log10 scale.
// A zero BER maps to -Inf.
func Log10BER(ber float64) float64 {
	return math.Log10(ber)
}

// BERFromLog10 converts a log10 BER back to a linear fraction.
func BERFromLog10(logBER float64) float64 {
	return math.Pow(10, logBER)
}

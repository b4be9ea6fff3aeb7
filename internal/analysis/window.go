// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the FFT window function applied before the transform
// to reduce spectral leakage.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	Nuttall
	Lanczos
	BartlettHann
)

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Returns Hann and an error for unknown names.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "nuttall":
		return Nuttall, nil
	case "lanczos":
		return Lanczos, nil
	case "bartletthann":
		return BartlettHann, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: %q", name)
	}
}

// windowCoefficients returns the coefficient table for the given window
// type. Unknown types fall back to Hann.
func windowCoefficients(size int, windowType WindowFunc) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0 // window funcs multiply in place
	}
	switch windowType {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// SPDX-License-Identifier: MIT
/*
Package analysis turns raw audio chunks into normalized bar spectra.

Pipeline per chunk: window -> real FFT -> magnitude -> logarithmic bin
grouping into barCount bars -> running-max normalization into [0,1] ->
exponential smoothing against the previous frame.

The smoothing state is owned exclusively by the Analyzer and mutated in
place each cycle; published frames are always fresh copies. The smoothing
contract is exact: newValue = smoothing*prevValue + (1-smoothing)*rawValue.
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mrcool7387/BarScreenSaver/internal/audio"
	"github.com/mrcool7387/BarScreenSaver/pkg/bitint"
)

const (
	// int32Norm scales int32 samples into [-1.0, 1.0).
	int32Norm = 1.0 / float64(1<<31)

	// refFloor is the smallest allowed normalization reference, guarding
	// the divide during sustained silence.
	refFloor = 1e-9

	// refRelease is the per-frame decay of the running reference maximum,
	// so the display recovers after a loud passage.
	refRelease = 0.995
)

// workspace holds the pre-allocated buffers for one analyzer. Nothing in
// Analyze allocates after construction.
type workspace struct {
	input     []float64    // windowed, scaled input samples
	coeffs    []complex128 // FFT complex output
	magnitude []float64    // per-bin magnitudes
	window    []float64    // window coefficients
}

// Analyzer converts audio chunks into bar spectra. Not safe for
// concurrent use: exactly one goroutine drives it, per the thread-owned
// smoothing state model.
type Analyzer struct {
	fftSize    int
	sampleRate float64
	barCount   int
	smoothing  float64

	fft *fourier.FFT
	ws  workspace

	// Per-bar FFT bin ranges [barLo[i], barHi[i]), precomputed once.
	barLo []int
	barHi []int

	raw    []float64 // scratch for this cycle's raw normalized bars
	prev   []float64 // smoothing state: the previous frame
	refMax float64   // running normalization reference
}

// NewAnalyzer validates the configuration and pre-computes the window
// coefficients and the logarithmic bin-to-bar mapping.
//
// The mapping is logarithmic by design: bar i covers FFT bins
// [maxBin^(i/barCount), maxBin^((i+1)/barCount)), which matches
// perceptual loudness better than linear grouping. The DC bin and the
// Nyquist bin are excluded.
func NewAnalyzer(fftSize int, sampleRate float64, barCount int, smoothing float64, windowType WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if barCount < 1 {
		return nil, fmt.Errorf("bar count must be at least 1, got %d", barCount)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0,1), got %f", smoothing)
	}

	maxBin := fftSize / 2
	if maxBin < 2 {
		return nil, fmt.Errorf("fft size %d too small for binning", fftSize)
	}
	if barCount > maxBin-1 {
		return nil, fmt.Errorf("bar count %d exceeds the %d usable FFT bins", barCount, maxBin-1)
	}

	// The pure logarithmic edges collide at the low end (several bars
	// would map to bin 1), so the ranges are made strictly monotonic:
	// each bar starts where the previous one ended and gets at least one
	// bin, with headroom reserved so the remaining bars do too.
	barLo := make([]int, barCount)
	barHi := make([]int, barCount)
	prevHi := 1 // bin 0 (DC) is excluded
	for b := range barCount {
		lo := int(math.Pow(float64(maxBin), float64(b)/float64(barCount)))
		if lo < prevHi {
			lo = prevHi
		}
		hi := int(math.Pow(float64(maxBin), float64(b+1)/float64(barCount)))
		if hi <= lo {
			hi = lo + 1
		}
		if remaining := barCount - b - 1; hi > maxBin-remaining {
			hi = maxBin - remaining
		}
		if hi <= lo {
			hi = lo + 1
		}
		barLo[b] = lo
		barHi[b] = hi
		prevHi = hi
	}

	outputSize := fftSize/2 + 1

	return &Analyzer{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		barCount:   barCount,
		smoothing:  smoothing,
		fft:        fourier.NewFFT(fftSize),
		ws: workspace{
			input:     make([]float64, fftSize),
			coeffs:    make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    windowCoefficients(fftSize, windowType),
		},
		barLo:  barLo,
		barHi:  barHi,
		raw:    make([]float64, barCount),
		prev:   make([]float64, barCount),
		refMax: refFloor,
	}, nil
}

// Analyze processes one chunk and returns a fresh frame of barCount
// values in [0,1]. The returned slice is a copy and safe to publish.
func (a *Analyzer) Analyze(chunk *audio.Chunk) []float64 {
	frame := make([]float64, a.barCount)
	a.AnalyzeInto(frame, chunk)
	return frame
}

// AnalyzeInto is the allocation-free variant of Analyze for the hot
// path. dst must have length barCount; anything else is a programming
// contract violation, as is a workspace/FFT size mismatch, and panics.
func (a *Analyzer) AnalyzeInto(dst []float64, chunk *audio.Chunk) {
	if len(dst) != a.barCount {
		panic(fmt.Sprintf("analysis: destination length %d does not match bar count %d", len(dst), a.barCount))
	}

	// 1. Window and scale the input; zero-pad short chunks.
	samples := chunk.Samples
	inputLen := len(samples)
	for i := range a.fftSize {
		if i < inputLen {
			a.ws.input[i] = float64(samples[i]) * int32Norm * a.ws.window[i]
		} else {
			a.ws.input[i] = 0
		}
	}

	// 2. Transform and take magnitudes.
	a.fft.Coefficients(a.ws.coeffs, a.ws.input)
	for i, c := range a.ws.coeffs {
		a.ws.magnitude[i] = cmplx.Abs(c)
	}

	// 3. Group bins into bars (per-bar average magnitude).
	framePeak := 0.0
	for b := range a.barCount {
		sum := 0.0
		for i := a.barLo[b]; i < a.barHi[b]; i++ {
			sum += a.ws.magnitude[i]
		}
		v := sum / float64(a.barHi[b]-a.barLo[b])
		a.raw[b] = v
		if v > framePeak {
			framePeak = v
		}
	}

	// 4. Normalize against the running reference maximum. The floor
	// means a silent chunk can never divide by zero.
	a.refMax *= refRelease
	if framePeak > a.refMax {
		a.refMax = framePeak
	}
	if a.refMax < refFloor {
		a.refMax = refFloor
	}

	// 5. Exponential smoothing, exactly new = s*prev + (1-s)*raw.
	// raw/refMax is in [0,1] by construction, so the output is too.
	s := a.smoothing
	for b := range a.barCount {
		norm := a.raw[b] / a.refMax
		out := s*a.prev[b] + (1-s)*norm
		a.prev[b] = out
		dst[b] = out
	}
}

// BarEdges returns the frequency range [loHz, hiHz) mapped to bar b.
// Out-of-range indices return zeros.
func (a *Analyzer) BarEdges(b int) (loHz, hiHz float64) {
	if b < 0 || b >= a.barCount {
		return 0, 0
	}
	res := a.sampleRate / float64(a.fftSize)
	return float64(a.barLo[b]) * res, float64(a.barHi[b]) * res
}

// BarForFrequency returns the index of the bar whose range contains hz,
// or -1 if the frequency falls outside every bar.
func (a *Analyzer) BarForFrequency(hz float64) int {
	for b := range a.barCount {
		lo, hi := a.BarEdges(b)
		if hz >= lo && hz < hi {
			return b
		}
	}
	return -1
}

// BarCount returns the configured number of bars.
func (a *Analyzer) BarCount() int {
	return a.barCount
}

// SampleRate returns the configured sample rate (Hz).
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

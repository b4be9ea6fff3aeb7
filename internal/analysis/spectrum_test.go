// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"github.com/mrcool7387/BarScreenSaver/internal/audio"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100.0
	testBarCount   = 10
)

func sineChunk(size int, sampleRate, frequency, amplitude float64) *audio.Chunk {
	samples := make([]int32, size)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = int32(math.Sin(2*math.Pi*frequency*t) * math.MaxInt32 * amplitude)
	}
	return &audio.Chunk{Samples: samples, SampleRate: sampleRate}
}

func silentChunk(size int, sampleRate float64) *audio.Chunk {
	return &audio.Chunk{Samples: make([]int32, size), SampleRate: sampleRate}
}

// squareChunk alternates between +max and -max every half period,
// producing a harmonically rich full-scale signal.
func squareChunk(size, period int, sampleRate float64) *audio.Chunk {
	samples := make([]int32, size)
	for i := range samples {
		if (i/(period/2))%2 == 0 {
			samples[i] = math.MaxInt32
		} else {
			samples[i] = -math.MaxInt32
		}
	}
	return &audio.Chunk{Samples: samples, SampleRate: sampleRate}
}

func newTestAnalyzer(t *testing.T, barCount int, smoothing float64) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(testFFTSize, testSampleRate, barCount, smoothing, Hann)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		desc       string
		fftSize    int
		sampleRate float64
		barCount   int
		smoothing  float64
	}{
		{"FFT size not power of two", 1000, testSampleRate, 10, 0.5},
		{"FFT size too small", 2, testSampleRate, 10, 0.5},
		{"Zero sample rate", testFFTSize, 0, 10, 0.5},
		{"Negative sample rate", testFFTSize, -44100, 10, 0.5},
		{"Zero bars", testFFTSize, testSampleRate, 0, 0.5},
		{"Smoothing negative", testFFTSize, testSampleRate, 10, -0.1},
		{"Smoothing at one", testFFTSize, testSampleRate, 10, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if _, err := NewAnalyzer(tt.fftSize, tt.sampleRate, tt.barCount, tt.smoothing, Hann); err == nil {
				t.Error("expected constructor error, got nil")
			}
		})
	}
}

func TestFrameLengthMatchesBarCount(t *testing.T) {
	for _, barCount := range []int{2, 10, 32, 100} {
		a := newTestAnalyzer(t, barCount, 0.5)
		frame := a.Analyze(sineChunk(testFFTSize, testSampleRate, 440, 0.5))
		if len(frame) != barCount {
			t.Errorf("frame length = %d, want %d", len(frame), barCount)
		}
	}
}

func TestValuesBoundedForAllInputs(t *testing.T) {
	chunks := map[string]*audio.Chunk{
		"silence":         silentChunk(testFFTSize, testSampleRate),
		"full-scale sine": sineChunk(testFFTSize, testSampleRate, 1000, 1.0),
		"square wave":     squareChunk(testFFTSize, 16, testSampleRate),
		"quiet sine":      sineChunk(testFFTSize, testSampleRate, 250, 0.001),
	}

	a := newTestAnalyzer(t, testBarCount, 0.6)
	for name, chunk := range chunks {
		// Several passes so the running reference and smoothing state get
		// exercised across loud/quiet transitions.
		for i := 0; i < 5; i++ {
			frame := a.Analyze(chunk)
			for b, v := range frame {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("%s: bar %d = %v outside [0,1]", name, b, v)
				}
			}
		}
	}
}

func TestSilenceDecaysMonotonically(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0.6)

	// Drive the bars up first.
	loud := sineChunk(testFFTSize, testSampleRate, 1000, 0.9)
	for i := 0; i < 3; i++ {
		a.Analyze(loud)
	}

	silence := silentChunk(testFFTSize, testSampleRate)
	prev := a.Analyze(silence)
	for step := 0; step < 50; step++ {
		frame := a.Analyze(silence)
		for b := range frame {
			if frame[b] > prev[b] {
				t.Fatalf("step %d: bar %d increased under silence (%v -> %v)", step, b, prev[b], frame[b])
			}
		}
		prev = frame
	}

	for b, v := range prev {
		if v > 1e-6 {
			t.Errorf("bar %d did not decay toward zero, still %v", b, v)
		}
	}
}

func TestSmoothingLawExact(t *testing.T) {
	const s = 0.7

	smoothed := newTestAnalyzer(t, testBarCount, s)
	reference := newTestAnalyzer(t, testBarCount, 0) // emits raw values

	// Seed a known previous frame in the smoothed analyzer.
	seeded := make([]float64, testBarCount)
	for b := range seeded {
		seeded[b] = 0.05 * float64(b+1)
	}
	copy(smoothed.prev, seeded)

	chunk := sineChunk(testFFTSize, testSampleRate, 1000, 0.8)
	raw := reference.Analyze(chunk)
	got := smoothed.Analyze(chunk)

	for b := range got {
		want := s*seeded[b] + (1-s)*raw[b]
		if math.Abs(got[b]-want) > 1e-12 {
			t.Errorf("bar %d: got %v, want s*prev+(1-s)*raw = %v", b, got[b], want)
		}
	}
}

func TestZeroSmoothingIgnoresPreviousFrame(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0)
	b := newTestAnalyzer(t, testBarCount, 0)

	// Garbage previous state must not influence the output when
	// smoothing is zero.
	for i := range a.prev {
		a.prev[i] = 0.9
	}

	chunk := sineChunk(testFFTSize, testSampleRate, 2000, 0.7)
	frameA := a.Analyze(chunk)
	frameB := b.Analyze(chunk)

	for i := range frameA {
		if math.Abs(frameA[i]-frameB[i]) > 1e-12 {
			t.Errorf("bar %d: %v != %v despite smoothing = 0", i, frameA[i], frameB[i])
		}
	}
}

func TestSineActivatesMappedBar(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0)

	const toneHz = 1000.0
	target := a.BarForFrequency(toneHz)
	if target < 0 {
		t.Fatalf("no bar maps %v Hz", toneHz)
	}

	frame := a.Analyze(sineChunk(testFFTSize, testSampleRate, toneHz, 0.9))

	peakBar := 0
	for b := range frame {
		if frame[b] > frame[peakBar] {
			peakBar = b
		}
	}
	if peakBar != target {
		lo, hi := a.BarEdges(target)
		t.Fatalf("peak at bar %d, want bar %d covering [%.0f, %.0f) Hz", peakBar, target, lo, hi)
	}

	// Clearly above the neighbors.
	for _, n := range []int{target - 1, target + 1} {
		if n < 0 || n >= testBarCount {
			continue
		}
		if frame[target] < 2*frame[n] {
			t.Errorf("bar %d (%v) not clearly above neighbor %d (%v)", target, frame[target], n, frame[n])
		}
	}
}

func TestBarEdgesAreOrderedAndBounded(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0.5)

	nyquist := testSampleRate / 2
	prevHi := 0.0
	for b := range testBarCount {
		lo, hi := a.BarEdges(b)
		if lo >= hi {
			t.Errorf("bar %d: edges not ordered (%v >= %v)", b, lo, hi)
		}
		if lo < prevHi {
			t.Errorf("bar %d: range overlaps previous bar (%v < %v)", b, lo, prevHi)
		}
		if hi > nyquist {
			t.Errorf("bar %d: upper edge %v above Nyquist %v", b, hi, nyquist)
		}
		prevHi = hi
	}

	if lo, hi := a.BarEdges(-1); lo != 0 || hi != 0 {
		t.Error("out-of-range bar index must return zero edges")
	}
}

func TestAnalyzeIntoHotPath(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0.6)
	chunk := sineChunk(testFFTSize, testSampleRate, 440, 0.5)
	dst := make([]float64, testBarCount)

	// Warm-up call for any lazy gonum setup.
	a.AnalyzeInto(dst, chunk)
	allocs := testing.AllocsPerRun(100, func() {
		a.AnalyzeInto(dst, chunk)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in AnalyzeInto hot path, got %.1f", allocs)
	}
}

func TestAnalyzeIntoContractViolation(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0.6)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched destination length")
		}
	}()
	a.AnalyzeInto(make([]float64, testBarCount+1), silentChunk(testFFTSize, testSampleRate))
}

func TestShortChunkZeroPadded(t *testing.T) {
	a := newTestAnalyzer(t, testBarCount, 0)
	short := &audio.Chunk{Samples: make([]int32, testFFTSize/2), SampleRate: testSampleRate}
	for i := range short.Samples {
		short.Samples[i] = int32(math.Sin(2*math.Pi*440*float64(i)/testSampleRate) * math.MaxInt32 * 0.5)
	}
	frame := a.Analyze(short)
	for b, v := range frame {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Errorf("bar %d = %v outside [0,1] for short chunk", b, v)
		}
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name     string
		expected WindowFunc
		wantErr  bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"HAMMING", Hamming, false},
		{"blackman", Blackman, false},
		{"lanczos", Lanczos, false},
		{"triangle", Hann, true}, // unknown name falls back to Hann
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseWindowFunc(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func BenchmarkAnalyzeInto(b *testing.B) {
	a, err := NewAnalyzer(testFFTSize, testSampleRate, 32, 0.6, Hann)
	if err != nil {
		b.Fatal(err)
	}

	// 440Hz fundamental plus harmonics.
	samples := make([]int32, testFFTSize)
	for i := range samples {
		tm := float64(i) / testSampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		samples[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	chunk := &audio.Chunk{Samples: samples, SampleRate: testSampleRate}
	dst := make([]float64, 32)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		a.AnalyzeInto(dst, chunk)
	}
}

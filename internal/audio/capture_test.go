// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMixMonoStereoAverage(t *testing.T) {
	tests := []struct {
		desc     string
		in       []int32
		channels int
		expected []int32
	}{
		{"Mono passthrough", []int32{1, -2, 3, -4}, 1, []int32{1, -2, 3, -4}},
		{"Stereo average", []int32{10, 20, -10, -30}, 2, []int32{15, -20}},
		{"Stereo identical channels", []int32{7, 7, -7, -7}, 2, []int32{7, -7}},
		{"Short input zero pads", []int32{4, 6}, 2, []int32{5, 0, 0}},
		{"Zero channels treated as mono", []int32{5, 6}, 0, []int32{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			dst := make([]int32, len(tt.expected))
			mixMono(dst, tt.in, tt.channels)
			for i := range dst {
				if dst[i] != tt.expected[i] {
					t.Errorf("mixMono()[%d] = %d, want %d", i, dst[i], tt.expected[i])
				}
			}
		})
	}
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		desc     string
		samples  []int32
		expected int32
	}{
		{"Empty", nil, 0},
		{"All zero", []int32{0, 0, 0}, 0},
		{"Positive peak", []int32{1, 100, 3}, 100},
		{"Negative peak", []int32{1, -200, 3}, 200},
		{"Mixed signs", []int32{-50, 40, -30}, 50},
		{"Large values", []int32{2147483646, -2147483646}, 2147483646},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := peakAmplitude(tt.samples); got != tt.expected {
				t.Errorf("peakAmplitude() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestPeakAmplitudeHotPath(t *testing.T) {
	samples := make([]int32, 1024)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = int32(i * 1000)
		} else {
			samples[i] = int32(-i * 1000)
		}
	}

	allocs := testing.AllocsPerRun(100, func() {
		_ = peakAmplitude(samples)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in peak scan, got %.1f", allocs)
	}
}

// newQueueOnlyCapture builds a Capture with just the queue machinery, so
// the chunk flow can be tested without opening a PortAudio stream.
func newQueueOnlyCapture(depth int, waitLimit time.Duration) *Capture {
	c := &Capture{
		chunks:    make(chan *Chunk, depth),
		waitLimit: waitLimit,
	}
	c.pool = sync.Pool{New: func() any {
		return &Chunk{Samples: make([]int32, 4), SampleRate: 44100}
	}}
	return c
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	c := newQueueOnlyCapture(2, time.Second)

	first := &Chunk{Peak: 1}
	second := &Chunk{Peak: 2}
	third := &Chunk{Peak: 3}

	c.enqueue(first)
	c.enqueue(second)
	c.enqueue(third) // Queue depth 2: first must be shed.

	got, err := c.NextChunk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Peak != 2 {
		t.Errorf("expected oldest surviving chunk with peak 2, got %d", got.Peak)
	}

	got, err = c.NextChunk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Peak != 3 {
		t.Errorf("expected newest chunk with peak 3, got %d", got.Peak)
	}
}

func TestNextChunkDeviceTimeout(t *testing.T) {
	c := newQueueOnlyCapture(1, 20*time.Millisecond)

	_, err := c.NextChunk(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable after silent deadline, got %v", err)
	}
}

func TestNextChunkContextCancel(t *testing.T) {
	c := newQueueOnlyCapture(1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.NextChunk(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWaitLimitFloor(t *testing.T) {
	tests := []struct {
		chunk    time.Duration
		expected time.Duration
	}{
		{5 * time.Millisecond, 250 * time.Millisecond},  // Floor applies
		{23 * time.Millisecond, 250 * time.Millisecond}, // 10x still below floor
		{100 * time.Millisecond, time.Second},           // 10x above floor
	}
	for _, tt := range tests {
		if got := waitLimitFor(tt.chunk); got != tt.expected {
			t.Errorf("waitLimitFor(%s) = %s, want %s", tt.chunk, got, tt.expected)
		}
	}
}

func BenchmarkPeakAmplitude(b *testing.B) {
	samples := make([]int32, 1024)
	for i := range samples {
		samples[i] = int32((i%100 - 50) * 10000000)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = peakAmplitude(samples)
	}
}

func BenchmarkMixMonoStereo(b *testing.B) {
	in := make([]int32, 2048)
	dst := make([]int32, 1024)
	for i := range in {
		in[i] = int32(i * 12345)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		mixMono(dst, in, 2)
	}
}

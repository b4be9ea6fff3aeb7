// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the visualizer:
- PortAudio input stream with pre-allocated buffers
- Stereo to mono mixdown and branchless peak scan in the callback
- Bounded chunk queue bridging the callback cadence to the analyzer
- WAV recording of the captured mono stream

The callback never blocks on the consumer: when the queue is full the
oldest chunk is dropped so the analyzer always sees the most recent
samples.
*/
package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/mrcool7387/BarScreenSaver/internal/config"
	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
)

// ErrDeviceUnavailable reports that the capture device stopped delivering
// samples (removed, changed, or never opened). Callers re-acquire rather
// than crash; the visualization decays to silence in the meantime.
var ErrDeviceUnavailable = errors.New("audio capture device unavailable")

// Chunk is one fixed-size batch of consecutive mono samples. Immutable
// once delivered; consumed exactly once and returned via Release.
type Chunk struct {
	Samples    []int32
	SampleRate float64
	Peak       int32 // Maximum absolute amplitude in this chunk.
}

// Capture pulls raw PCM from a PortAudio input device in fixed-size
// chunks and exposes them through the blocking NextChunk pull interface.
type Capture struct {
	cfg     *config.Config
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	chunks chan *Chunk
	pool   sync.Pool

	chunkDuration time.Duration
	waitLimit     time.Duration // NextChunk deadline before reporting device loss.

	// Recording state, see recording.go.
	recordMu    sync.Mutex
	isRecording bool
	wavSink     *wavSink
}

// queueDepth bounds how many chunks can sit between the callback and the
// analyzer. Deep queues only add display latency.
const queueDepth = 4

// NewCapture resolves the configured input device and prepares the chunk
// queue. The stream is not opened until Start.
func NewCapture(cfg *config.Config) (*Capture, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	frames := cfg.Audio.FramesPerBuffer
	chunkDuration := time.Duration(float64(frames) / cfg.Audio.SampleRate * float64(time.Second))

	c := &Capture{
		cfg:           cfg,
		device:        device,
		chunks:        make(chan *Chunk, queueDepth),
		chunkDuration: chunkDuration,
		waitLimit:     waitLimitFor(chunkDuration),
	}
	c.pool.New = func() any {
		return &Chunk{
			Samples:    make([]int32, frames),
			SampleRate: cfg.Audio.SampleRate,
		}
	}

	if cfg.Audio.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}

	applog.Infof("Capture: using device %q (%.0f Hz, %d frames/chunk, %s/chunk)",
		device.Name, cfg.Audio.SampleRate, frames, chunkDuration)
	return c, nil
}

// waitLimitFor converts a chunk duration into the silence deadline after
// which the device is considered gone. A floor keeps tiny buffers from
// producing spurious device-loss reports.
func waitLimitFor(chunkDuration time.Duration) time.Duration {
	limit := 10 * chunkDuration
	if limit < 250*time.Millisecond {
		limit = 250 * time.Millisecond
	}
	return limit
}

// Start opens the input stream and begins delivering chunks. The first
// callback marks the start of the hot path.
func (c *Capture) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.cfg.Audio.InputChannels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: c.cfg.Audio.FramesPerBuffer,
		SampleRate:      c.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return errors.Join(ErrDeviceUnavailable, err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		c.stream = nil
		return errors.Join(ErrDeviceUnavailable, err)
	}

	return nil
}

// Stop stops the capture callback and closes the stream. It is safe to
// call on a capture that never started. Stopping the callback before the
// stream is released is what keeps shutdown race free.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return err
	}
	if err := c.stream.Close(); err != nil {
		return err
	}
	c.stream = nil
	return nil
}

// Reacquire drops the current stream and re-resolves the configured
// device. Used by the engine after ErrDeviceUnavailable, typically when
// the system default output has changed.
func (c *Capture) Reacquire() error {
	if err := c.Stop(); err != nil {
		applog.Debugf("Capture: stop during reacquire: %v", err)
	}

	device, err := InputDevice(c.cfg.Audio.InputDevice)
	if err != nil {
		return errors.Join(ErrDeviceUnavailable, err)
	}
	c.device = device
	if c.cfg.Audio.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}

	if err := c.Start(); err != nil {
		return err
	}
	applog.Infof("Capture: re-acquired device %q", device.Name)
	return nil
}

// NextChunk blocks until the next chunk of recent samples is available.
// It fails with ErrDeviceUnavailable when the callback has been silent
// for longer than the wait limit, and with ctx.Err() on cancellation.
// The caller must return the chunk through Release.
func (c *Capture) NextChunk(ctx context.Context) (*Chunk, error) {
	timer := time.NewTimer(c.waitLimit)
	defer timer.Stop()

	select {
	case chunk := <-c.chunks:
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrDeviceUnavailable
	}
}

// Release returns a consumed chunk to the pool.
func (c *Capture) Release(chunk *Chunk) {
	if chunk != nil {
		c.pool.Put(chunk)
	}
}

// ChunkDuration returns the wall-clock duration covered by one chunk.
func (c *Capture) ChunkDuration() time.Duration {
	return c.chunkDuration
}

// Close stops any active recording and the input stream.
func (c *Capture) Close() error {
	if err := c.StopRecording(); err != nil {
		applog.Errorf("Capture: stopping recording during close: %v", err)
	}
	return c.Stop()
}

// processInputStream is the PortAudio callback. Performance critical:
// pre-allocated chunks only, no blocking sends.
func (c *Capture) processInputStream(in []int32) {
	chunk := c.pool.Get().(*Chunk)
	mixMono(chunk.Samples, in, c.cfg.Audio.InputChannels)
	chunk.Peak = peakAmplitude(chunk.Samples)

	c.writeRecording(chunk)
	c.enqueue(chunk)
}

// enqueue delivers a chunk without ever blocking the callback. A full
// queue sheds its oldest entry first: the display wants recent samples,
// not complete ones.
func (c *Capture) enqueue(chunk *Chunk) {
	for {
		select {
		case c.chunks <- chunk:
			return
		default:
			select {
			case stale := <-c.chunks:
				c.pool.Put(stale)
			default:
			}
		}
	}
}

// mixMono fills dst with the per-frame channel average of in. Missing
// frames are zeroed so a short final buffer cannot leak stale samples.
func mixMono(dst []int32, in []int32, channels int) {
	if channels < 1 {
		channels = 1
	}
	frames := len(in) / channels
	for i := range dst {
		if i >= frames {
			dst[i] = 0
			continue
		}
		var sum int64
		base := i * channels
		for ch := range channels {
			sum += int64(in[base+ch])
		}
		dst[i] = int32(sum / int64(channels))
	}
}

// peakAmplitude returns the maximum absolute sample value using the
// branchless abs/max idiom so the scan stays constant time per sample.
func peakAmplitude(samples []int32) int32 {
	var peak int32
	for _, sample := range samples {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += (diff & (diff >> 31)) ^ diff
	}
	return peak
}

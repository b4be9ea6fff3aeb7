// SPDX-License-Identifier: MIT
package viz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrcool7387/BarScreenSaver/internal/audio"
	"github.com/mrcool7387/BarScreenSaver/internal/gradient"
	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
	"github.com/mrcool7387/BarScreenSaver/internal/nowplaying"
)

// reacquireInterval is how often the engine probes for a lost input
// device.
const reacquireInterval = 2 * time.Second

// ChunkSource delivers captured audio chunks. NextChunk blocks until a
// chunk arrives, ctx is done, or the source decides the device is gone
// and returns audio.ErrDeviceUnavailable.
type ChunkSource interface {
	NextChunk(ctx context.Context) (*audio.Chunk, error)
	Release(*audio.Chunk)
}

// Reacquirer is implemented by sources that can reopen a lost device.
// Detected via type assertion on the ChunkSource.
type Reacquirer interface {
	Reacquire() error
}

// TrackProvider exposes the current now-playing track.
type TrackProvider interface {
	Current() nowplaying.Track
}

// Analyzer turns a chunk into a bar frame.
type Analyzer interface {
	AnalyzeInto(dst []float64, chunk *audio.Chunk)
	BarCount() int
}

// Publisher receives every published snapshot. Send must not retain
// mutable references past the call; the snapshot itself is immutable.
type Publisher interface {
	Send(*Snapshot) error
}

// Engine drives the pipeline: pull a chunk, analyze it, stamp metadata
// and gradient state, publish. The latest snapshot stays readable
// lock-free through Latest.
type Engine struct {
	source     ChunkSource
	analyzer   Analyzer
	animator   *gradient.Animator
	tracks     TrackProvider
	publishers []Publisher
	showClock  bool

	silence *audio.Chunk
	frame   []float64

	latest   atomic.Pointer[Snapshot]
	seq      atomic.Uint64
	err      atomic.Pointer[Error]
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Options configures an Engine. Tracks and Publishers may be nil or
// empty.
type Options struct {
	Source     ChunkSource
	Analyzer   Analyzer
	Animator   *gradient.Animator
	Tracks     TrackProvider
	Publishers []Publisher
	ShowClock  bool

	// SilenceSamples and SampleRate shape the synthetic chunk used
	// while the device is unavailable.
	SilenceSamples int
	SampleRate     float64
}

// NewEngine wires an Engine from opts.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("engine requires a chunk source")
	}
	if opts.Analyzer == nil {
		return nil, fmt.Errorf("engine requires an analyzer")
	}
	if opts.Animator == nil {
		return nil, fmt.Errorf("engine requires a gradient animator")
	}
	if opts.SilenceSamples <= 0 {
		opts.SilenceSamples = 1024
	}
	return &Engine{
		source:     opts.Source,
		analyzer:   opts.Analyzer,
		animator:   opts.Animator,
		tracks:     opts.Tracks,
		publishers: opts.Publishers,
		showClock:  opts.ShowClock,
		silence: &audio.Chunk{
			Samples:    make([]int32, opts.SilenceSamples),
			SampleRate: opts.SampleRate,
		},
		frame: make([]float64, opts.Analyzer.BarCount()),
	}, nil
}

// Start launches the pipeline loop.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go e.run(ctx)
}

// Stop halts the loop and waits for it to exit. Safe to call more than
// once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
	e.wg.Wait()
}

// Latest returns the most recently published snapshot, or nil before
// the first frame.
func (e *Engine) Latest() *Snapshot {
	return e.latest.Load()
}

// Err returns the fatal error that stopped the engine, if any.
func (e *Engine) Err() error {
	if err := e.err.Load(); err != nil {
		return err
	}
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	deviceLost := false
	lastFrame := time.Now()
	lastProbe := time.Time{}

	for {
		if ctx.Err() != nil {
			return
		}

		chunk, err := e.source.NextChunk(ctx)
		switch {
		case err == nil:
			if deviceLost {
				applog.Infof("Input device back, resuming live capture")
				deviceLost = false
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case errors.Is(err, audio.ErrDeviceUnavailable):
			if !deviceLost {
				applog.Warnf("Input device unavailable, decaying bars on silence: %v",
					newError(CodeDeviceUnavailable, "NextChunk", "capture stalled", err))
				deviceLost = true
			}
			chunk = e.silence
			if r, ok := e.source.(Reacquirer); ok && time.Since(lastProbe) >= reacquireInterval {
				lastProbe = time.Now()
				if rerr := r.Reacquire(); rerr != nil {
					applog.Debugf("Device reacquire failed: %v", rerr)
				}
			}
		default:
			verr := newError(CodeDeviceUnavailable, "NextChunk", "chunk source failed", err)
			e.err.Store(verr)
			applog.Errorf("Stopping pipeline: %v", verr)
			return
		}

		now := time.Now()
		if terr := e.analyze(chunk); terr != nil {
			e.err.Store(terr)
			applog.Errorf("Stopping pipeline: %v", terr)
			if chunk != e.silence {
				e.source.Release(chunk)
			}
			return
		}
		if chunk != e.silence {
			e.source.Release(chunk)
		}

		e.animator.Advance(now.Sub(lastFrame).Seconds())
		lastFrame = now

		e.publish(now, deviceLost)
	}
}

// analyze runs the transform, converting a broken analysis contract
// into a fatal Error instead of crashing the process.
func (e *Engine) analyze(chunk *audio.Chunk) (terr *Error) {
	defer func() {
		if r := recover(); r != nil {
			terr = newError(CodeTransformFailure, "Analyze",
				fmt.Sprintf("analysis contract violated: %v", r), nil)
		}
	}()
	e.analyzer.AnalyzeInto(e.frame, chunk)
	return nil
}

// publish builds an immutable snapshot and fans it out. Bars are
// copied so later frames never mutate a published snapshot.
func (e *Engine) publish(now time.Time, deviceLost bool) {
	bars := make([]float64, len(e.frame))
	copy(bars, e.frame)

	snap := &Snapshot{
		Seq:        e.seq.Add(1),
		Timestamp:  now,
		Bars:       bars,
		Gradient:   e.animator.State(),
		ShowClock:  e.showClock,
		DeviceLost: deviceLost,
	}
	if e.tracks != nil {
		snap.Track = e.tracks.Current()
	}

	e.latest.Store(snap)
	for _, p := range e.publishers {
		if err := p.Send(snap); err != nil {
			applog.Debugf("Publisher send failed: %v", err)
		}
	}
}

// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mrcool7387/BarScreenSaver/cmd"
	"github.com/mrcool7387/BarScreenSaver/internal/adfilter"
	"github.com/mrcool7387/BarScreenSaver/internal/analysis"
	"github.com/mrcool7387/BarScreenSaver/internal/audio"
	"github.com/mrcool7387/BarScreenSaver/internal/build"
	"github.com/mrcool7387/BarScreenSaver/internal/gradient"
	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
	"github.com/mrcool7387/BarScreenSaver/internal/nowplaying"
	"github.com/mrcool7387/BarScreenSaver/internal/transport"
	"github.com/mrcool7387/BarScreenSaver/internal/transport/udp"
	"github.com/mrcool7387/BarScreenSaver/internal/tui"
	"github.com/mrcool7387/BarScreenSaver/internal/viz"
	"github.com/mrcool7387/BarScreenSaver/pkg/bitint"
)

// main wires the pipeline in three phases: startup (config, devices),
// concurrent (capture, analysis, publishing, UI), shutdown (ordered
// teardown).
func main() {
	// ==================== STARTUP ====================

	info := build.GetInfo()

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("Initializing audio subsystem: %v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// Help or version output already handled.
		return
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	} else {
		applog.Warnf("Unknown log level %q, keeping default", cfg.LogLevel)
	}
	applog.Infof("%s %s (%s)", info.Name, info.Version, info.Commit)

	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("Listing devices: %v", err)
		}
		return
	}

	// ==================== CONCURRENT ====================

	capture, err := audio.NewCapture(cfg)
	if err != nil {
		applog.Fatalf("Opening capture: %v", err)
	}
	if err := capture.Start(); err != nil {
		applog.Fatalf("Starting capture: %v", err)
	}

	recordingFile := ""
	if cfg.Recording.Enabled {
		recordingFile, err = capture.StartRecording(cfg.Recording.OutputFile)
		if err != nil {
			applog.Fatalf("Starting recording: %v", err)
		}
		applog.Infof("Recording to %s", recordingFile)
	}

	windowFunc, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		applog.Warnf("%v, using Hann", err)
	}
	fftSize := bitint.NextPowerOfTwo(cfg.Audio.FramesPerBuffer)
	analyzer, err := analysis.NewAnalyzer(fftSize, cfg.Audio.SampleRate,
		cfg.Visual.BarCount, cfg.Visual.Smoothing, windowFunc)
	if err != nil {
		applog.Fatalf("Building analyzer: %v", err)
	}

	var tracks viz.TrackProvider
	var poller *nowplaying.Poller
	if cfg.NowPlaying.Enabled && cfg.NowPlaying.URL != "" {
		filter := adfilter.New(cfg.NowPlaying.AdKeywords)
		poller = nowplaying.NewPoller(
			nowplaying.NewClient(cfg.NowPlaying.URL), filter, cfg.NowPlaying.PollInterval.Std())
		poller.Start()
		tracks = poller
	}

	animator := gradient.NewAnimator(
		gradient.Resolve(cfg.Visual.Gradient, cfg.Visual.Gradients),
		cfg.Visual.GradientDynamic, cfg.Visual.GradientSpeed)

	var transports []transport.Transport
	var publishers []viz.Publisher
	if cfg.Transport.WebSocketEnabled {
		wst := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr())
		transports = append(transports, wst)
		publishers = append(publishers, wst)
	}

	engine, err := viz.NewEngine(viz.Options{
		Source:         capture,
		Analyzer:       analyzer,
		Animator:       animator,
		Tracks:         tracks,
		Publishers:     publishers,
		ShowClock:      cfg.Visual.ShowClock,
		SilenceSamples: fftSize,
		SampleRate:     cfg.Audio.SampleRate,
	})
	if err != nil {
		applog.Fatalf("Building engine: %v", err)
	}
	engine.Start()

	var udpPublisher *udp.Publisher
	if cfg.Transport.UDPEnabled && cfg.Transport.UDPTargetAddress != "" {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Fatalf("Opening UDP sender: %v", err)
		}
		udpPublisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval.Std(), sender, engine)
		if err != nil {
			applog.Fatalf("Building UDP publisher: %v", err)
		}
		udpPublisher.Start()
		defer sender.Close()
	}

	if cfg.Headless {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		applog.Infof("Running headless, Ctrl+C to stop")
		<-done
	} else {
		if err := tui.Run(engine, cfg.Visual.UpdateRate, cfg.Visual.MirrorBars); err != nil {
			applog.Errorf("%v", err)
		}
	}

	// ==================== SHUTDOWN ====================

	engine.Stop()
	if err := engine.Err(); err != nil {
		applog.Errorf("Pipeline stopped with error: %v", err)
	}

	if udpPublisher != nil {
		udpPublisher.Stop()
	}
	for _, t := range transports {
		if err := t.Close(); err != nil {
			applog.Warnf("Closing transport: %v", err)
		}
	}
	if poller != nil {
		poller.Stop()
	}

	if cfg.Recording.Enabled {
		if err := capture.StopRecording(); err != nil {
			applog.Warnf("Stopping recording: %v", err)
		} else {
			applog.Infof("Recording saved to %s", recordingFile)
		}
	}
	if err := capture.Stop(); err != nil {
		applog.Warnf("Stopping capture: %v", err)
	}
	if err := capture.Close(); err != nil {
		applog.Warnf("Closing capture: %v", err)
	}
}

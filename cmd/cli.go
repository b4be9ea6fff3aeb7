// SPDX-License-Identifier: MIT

// Package cmd parses command-line arguments into the runtime
// configuration.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mrcool7387/BarScreenSaver/internal/build"
	"github.com/mrcool7387/BarScreenSaver/internal/config"
)

// ParseArgs loads the config file, layers command-line flags on top,
// and returns the effective configuration. Flags win over file values,
// which win over defaults.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetInfo()

	var (
		configPath string
		deviceID   int
		barCount   int
		smoothing  float64
		sampleRate float64
		frames     int
		gradientN  string
		headless   bool
		record     bool
		outputFile string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Audio spectrum bar visualizer with now-playing metadata",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	var options *config.Config

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the YAML config file. Default is ./config.yaml if present.")
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.MinDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntVar(&barCount, "bars", config.DefaultBarCount,
		"Number of spectrum bars")
	rootCmd.PersistentFlags().Float64Var(&smoothing, "smoothing", config.DefaultSmoothing,
		"Temporal smoothing factor in [0, 1)")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Capture sample rate in Hertz")
	rootCmd.PersistentFlags().IntVarP(&frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per capture buffer (affects latency)")
	rootCmd.PersistentFlags().StringVarP(&gradientN, "gradient", "g", "",
		"Gradient preset name (default, spring, summer, autumn, winter, or from config)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false,
		"Run without the terminal UI, publishing over the configured transports only")
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the mixed-down input to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show debug output")

	// The config file path flag has to be parsed before the file can
	// be loaded, so load lazily inside the run hook.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		options = loaded

		flags := cmd.Flags()
		if flags.Changed("device") {
			options.Audio.InputDevice = deviceID
		}
		if flags.Changed("bars") {
			options.Visual.BarCount = barCount
		}
		if flags.Changed("smoothing") {
			options.Visual.Smoothing = smoothing
		}
		if flags.Changed("sample-rate") {
			options.Audio.SampleRate = sampleRate
		}
		if flags.Changed("frames-per-buffer") {
			options.Audio.FramesPerBuffer = frames
		}
		if flags.Changed("gradient") {
			options.Visual.Gradient = gradientN
		}
		if flags.Changed("headless") {
			options.Headless = headless
		}
		if flags.Changed("record") {
			options.Recording.Enabled = record
		}
		if flags.Changed("output") {
			options.Recording.OutputFile = outputFile
		}
		if verbose {
			options.LogLevel = "debug"
		}
		return nil
	}

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options == nil {
		// Execute exited before the pre-run hook (e.g. --help).
		return nil, nil
	}

	options.Clamp()
	return options, nil
}

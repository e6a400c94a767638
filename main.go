package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iburimskiy/show-engine/internal/audio"
	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/game"
	"github.com/iburimskiy/show-engine/internal/input"
	"github.com/iburimskiy/show-engine/internal/logging"
	"github.com/iburimskiy/show-engine/internal/modes"
	"github.com/iburimskiy/show-engine/internal/show"
)

var (
	// Global flags
	verbose    bool
	configPath string
	modeFlag   string
	queryFlag  string
	audioPath  string
	pickAudio  bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "show",
	Short: "Ambient visual show driven by audio and tilt",
	Long: `show runs one of several animated modes in a window and swaps them at runtime.

Modes: particle-field, portal-rings, silhouette-illusion, glyph-rain.
Keys 1-4 switch mode, Space or the mouse boosts, Tab toggles the status
overlay, Esc or Q quits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg = config.Default()
		if configPath != "" {
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
		}
		if audioPath != "" {
			cfg.Audio.Source, cfg.Audio.Path = config.AudioSourceFile, audioPath
		}
		if pickAudio {
			cfg.Audio.Source, cfg.Audio.Pick = config.AudioSourceFile, true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runShow,
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the mode names and whether each can be loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := show.NewRegistry()
		if err := modes.Register(reg, modes.Env{Log: logger}); err != nil {
			return err
		}
		for _, name := range show.Names() {
			status := "available"
			if !reg.Registered(name) {
				status = "reserved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, status)
		}
		return nil
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the current configuration to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (watched for mode changes)")

	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Mode to start with (overrides the config)")
	rootCmd.Flags().StringVar(&queryFlag, "query", "", "Select the mode from a URL or query string (?mode= or ?m=)")
	rootCmd.Flags().StringVar(&audioPath, "audio", "", "Audio file to play and analyse")
	rootCmd.Flags().BoolVar(&pickAudio, "pick", false, "Choose the audio file with a dialog")

	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initialMode resolves the starting mode: query, then flag, then config.
func initialMode() show.Name {
	if queryFlag != "" {
		if name, ok := show.Select(queryFlag); ok {
			return name
		}
		logger.Warn("query selects no mode", zap.String("query", queryFlag))
	}
	if modeFlag != "" {
		return show.Name(modeFlag)
	}
	return show.Name(cfg.Mode)
}

func audioDevice(c config.AudioConfig) audio.Device {
	if c.Source == config.AudioSourceFile {
		d := &audio.FileDevice{Path: c.Path, RingSize: config.VisualRingSize}
		if c.Pick || c.Path == "" {
			d.Pick = audio.ZenityPicker()
		}
		return d
	}
	return &audio.SynthDevice{
		SampleRate: config.SampleRate,
		Frequency:  config.SynthFrequency,
		Pulse:      config.SynthPulse,
		Level:      config.SynthLevel,
		RingSize:   config.VisualRingSize,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	frames := frame.NewScheduler()
	resources := show.NewResourceCounter()
	stats := &modes.Stats{}
	tilt := input.NewTilt(cfg.Input.Orientation, ebiten.WindowSize)

	reg := show.NewRegistry()
	err := modes.Register(reg, modes.Env{
		Frames: frames,
		Audio:  audioDevice(cfg.Audio),
		Analysis: modes.Analysis{
			FFTSize: cfg.Audio.FFTSize,
			Bin:     cfg.Audio.Bin,
			MinDB:   cfg.Audio.MinDB,
			MaxDB:   cfg.Audio.MaxDB,
		},
		Tilt: tilt,
		Particles: modes.Particles{
			Count:   cfg.Particles.Count,
			Seed:    cfg.Particles.Seed,
			Workers: cfg.Particles.Workers,
		},
		Resources: resources,
		Stats:     stats,
		Log:       logger,
	})
	if err != nil {
		return err
	}

	initial := initialMode()
	g := game.New(game.Options{
		Registry:  reg,
		Frames:    frames,
		Resources: resources,
		Stats:     stats,
		Log:       logger,
		Initial:   initial,
		Fallback:  show.Name(cfg.Fallback),
	})
	defer g.Close()

	if configPath != "" {
		current := cfg
		w, err := config.NewWatcher(configPath, logger, func(next config.Config) {
			if next.Mode != current.Mode {
				logger.Info("config selects mode", zap.String("mode", next.Mode))
				g.Switch(show.Name(next.Mode))
			}
			if next.Fallback != current.Fallback {
				g.SetFallback(show.Name(next.Fallback))
			}
			current = next
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	logger.Info("show starting", zap.String("mode", string(initial)), zap.String("audio", cfg.Audio.Source))
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Versifine/citydrive/internal/config"
	"github.com/Versifine/citydrive/internal/debug"
	"github.com/Versifine/citydrive/internal/event"
	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/logger"
	"github.com/Versifine/citydrive/internal/scene"
	"github.com/Versifine/citydrive/internal/session"
	"github.com/Versifine/citydrive/internal/stream"
	"github.com/Versifine/citydrive/internal/view"
)

const defaultTerminalLog = "logs/citydrive.log"

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logCfg := logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	logFile := cfg.Logging.File
	if logFile == "" && cfg.Frontend != "headless" {
		// the front end owns the terminal
		logFile = defaultTerminalLog
	}
	if logFile != "" {
		f, err := logger.OpenFile(logFile)
		if err != nil {
			slog.Error("Failed to open log file", "path", logFile, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		logCfg.Output = f
	}
	logger.Init(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg); err != nil {
		slog.Error("citydrive exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config) error {
	bus := event.NewBus()
	watchActor(bus, cfg.Assets.Actor)

	loader := scene.NewLoader(scene.DirSource{Dir: cfg.Assets.Dir}, len(cfg.Assets.Obstacles)+1)
	dirs, err := cfg.ProbeDirections()
	if err != nil {
		return err
	}
	sess := session.New(session.Options{
		Motion:     cfg.MotionConfig(),
		Jump:       cfg.JumpConfig(),
		Threshold:  cfg.Collision.Threshold,
		Directions: dirs,
		Camera:     cfg.CameraConfig(),
		Bus:        bus,
		Loader:     loader,
		ActorAsset: cfg.Assets.Actor,
	})
	tracker := input.NewTracker(cfg.Keymap(), cfg.Camera.LookSensitivity)
	driver := session.NewDriver(sess, tracker, cfg.Frame.Rate)

	for _, name := range cfg.Assets.Obstacles {
		loader.Load(ctx, name)
	}
	if cfg.Assets.Actor != "" {
		loader.Load(ctx, cfg.Assets.Actor)
	}

	// any task ending stops the rest
	var g errgroup.Group
	spawn := func(name string, fn func() error) {
		g.Go(func() error {
			defer stop()
			if err := fn(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	switch cfg.Frontend {
	case "console":
		console := debug.NewConsole(tracker, sess)
		driver.AddSurface(console)
		spawn("console", func() error { return console.Start(ctx) })
	case "tui":
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init screen: %w", err)
		}
		defer screen.Fini()
		m := view.New(screen, tracker, sess.Obstacles())
		driver.AddSurface(m)
		spawn("tui", func() error { return m.Run(ctx, stop) })
	case "headless":
		slog.Info("Running headless", "stream", cfg.Stream.Enabled)
	}

	if cfg.Stream.Enabled {
		srv := stream.NewServer(tracker, fmt.Sprintf("%s:%d", cfg.Stream.Host, cfg.Stream.Port)).
			WithAllowedOrigins(cfg.Stream.AllowedOrigins...)
		driver.AddSurface(srv)
		spawn("stream", func() error { return srv.Start(ctx) })
	}

	slog.Info("citydrive starting", "rate", cfg.Frame.Rate, "frontend", cfg.Frontend, "assets", cfg.Assets.Dir)
	spawn("driver", func() error { return driver.Run(ctx) })
	err = g.Wait()
	loader.Wait()
	return err
}

// watchActor logs an error when the actor asset fails; without an actor the
// session never starts.
func watchActor(bus *event.Bus, actor string) {
	log := logger.Component("assets")
	bus.Subscribe(event.EventAssetFailed, func(evt any) {
		e, ok := evt.(event.AssetEvent)
		if !ok || e.Name != actor {
			return
		}
		log.Error("Actor asset unavailable, the session will not start", "asset", e.Name, "error", e.Err)
	})
}

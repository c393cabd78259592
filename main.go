package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"periph.io/x/host/v3"

	"github.com/danpilch/tramboard/internal/api/opendata"
	"github.com/danpilch/tramboard/internal/battery"
	"github.com/danpilch/tramboard/internal/board"
	"github.com/danpilch/tramboard/internal/config"
	"github.com/danpilch/tramboard/internal/input"
	"github.com/danpilch/tramboard/internal/monitor"
	"github.com/danpilch/tramboard/internal/network"
	"github.com/danpilch/tramboard/internal/notify"
	"github.com/danpilch/tramboard/internal/panel"
	"github.com/danpilch/tramboard/internal/preview"
	"github.com/danpilch/tramboard/internal/render"
	"github.com/danpilch/tramboard/internal/scheduler"
)

var CLI struct {
	Config   string `help:"Path to config file" default:"config.yaml" type:"path"`
	Once     bool   `help:"Render a single board and exit"`
	LogLevel string `help:"Log level" default:"info" enum:"debug,info,warn,error"`
}

func main() {
	kong.Parse(&CLI)

	// Setup structured logging with logfmt
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	if err := run(logger); err != nil {
		logger.WithField("error", err).Error("tramboard failed")
		os.Exit(1)
	}
}

// run owns every opened device so deferred closes happen before main exits.
func run(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(CLI.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	// Load configuration
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Log.File != "" {
		logFile := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
		defer logFile.Close()
		logger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}

	// Alerts are optional; the board works without them
	var alerter monitor.Alerter
	pushoverToken := os.Getenv("PUSHOVER_TOKEN")
	pushoverUser := os.Getenv("PUSHOVER_USER")
	if pushoverToken != "" && pushoverUser != "" {
		alerter = notify.NewNotifier(pushoverToken, pushoverUser, logger)
	} else {
		logger.Info("PUSHOVER_TOKEN/PUSHOVER_USER not set, station alerts disabled")
	}

	// Initialize feed and board pipeline
	feed := opendata.NewClient(cfg.Feed.BaseURL, cfg.Feed.Transportation, cfg.Feed.ResultLimit, cfg.Feed.FetchTimeout)
	extractor := board.NewExtractor(
		board.NewFormatter(cfg.Board.LabelMaxLength, cfg.Board.Abbreviations),
		board.ExtractorOptions{Location: cfg.Location(), Staleness: cfg.Board.Staleness()},
	)
	builder := board.NewBuilder(extractor, cfg.Board.MaxIntake, cfg.Board.DisplayRows, logger)
	stationMonitor := monitor.NewStationMonitor(feed, builder, alerter, logger)

	// Initialize hardware
	pnl, err := openPanel(cfg)
	if err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	defer closeLogged(logger, "display", pnl)

	dev, err := openInput(cfg)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer closeLogged(logger, "input", dev)

	canvas := render.NewCanvas(cfg.Display.Width, cfg.Display.Height, pnl)
	coordinator := render.NewCoordinator(canvas, cfg.Board.DisplayRows)

	connector := network.NewConnector(network.ConnectorOptions{
		ProbeURL:       cfg.Boot.ProbeURL,
		Attempts:       cfg.Boot.Attempts,
		AttemptTimeout: cfg.Boot.AttemptTimeout,
		Backoff:        cfg.Boot.Backoff,
	}, logger)

	store := preview.NewStore()
	sched := scheduler.NewScheduler(cfg, scheduler.Deps{
		Monitor:   stationMonitor,
		Connector: connector,
		Screen:    coordinator,
		Panel:     pnl,
		Input:     dev,
		Battery:   openBattery(cfg, logger),
		Frames:    canvas,
		Store:     store,
	}, logger)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig).Info("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.WithFields(logrus.Fields{
		"left":    cfg.Stations[0].Name,
		"right":   cfg.Stations[1].Name,
		"display": cfg.Display.Driver,
		"input":   cfg.Input.Driver,
	}).Info("starting tramboard")

	if CLI.Once {
		if err := sched.RunOnce(ctx); err != nil {
			return fmt.Errorf("single refresh failed: %w", err)
		}
		logger.Info("board rendered")
		return nil
	}

	var srv *preview.Server
	if cfg.Preview.Listen != "" {
		srv = preview.NewServer(cfg.Preview.Listen, store, logger)
		srv.Start()
	}

	sched.Start(ctx)

	// Wait for context cancellation
	<-ctx.Done()

	// Stop scheduler gracefully
	sched.Stop()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithField("error", err).Warn("preview server shutdown")
		}
		shutdownCancel()
	}
	logger.Info("tramboard stopped")
	return nil
}

func closeLogged(logger *logrus.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.WithFields(logrus.Fields{
			"device": name,
			"error":  err,
		}).Warn("closing device failed")
	}
}

func openPanel(cfg *config.Config) (panel.Panel, error) {
	switch strings.ToLower(cfg.Display.Driver) {
	case "waveshare":
		w, err := panel.OpenWaveshare("")
		if err != nil {
			return nil, err
		}
		return w, nil
	case "png":
		return panel.NewPNG(cfg.Display.PNGPath), nil
	default:
		return nil, fmt.Errorf("unknown display driver %q", cfg.Display.Driver)
	}
}

func openInput(cfg *config.Config) (input.Device, error) {
	switch strings.ToLower(cfg.Input.Driver) {
	case "gt1151":
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("initializing host drivers: %w", err)
		}
		touch, err := input.OpenGT1151(cfg.Input.I2CBus)
		if err != nil {
			return nil, err
		}
		return touch, nil
	case "signal":
		return input.NewSignal(), nil
	case "none":
		return input.None{}, nil
	default:
		return nil, fmt.Errorf("unknown input driver %q", cfg.Input.Driver)
	}
}

func openBattery(cfg *config.Config, logger *logrus.Logger) battery.Reader {
	dir := cfg.Battery.Path
	if dir == "" {
		detected, ok := battery.Detect(battery.DefaultRoot)
		if !ok {
			logger.Debug("no battery found")
			return battery.None{}
		}
		dir = detected
	}
	logger.WithField("path", dir).Info("reading battery level")
	return battery.NewSysfs(dir)
}

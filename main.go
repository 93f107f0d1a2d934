// ABOUTME: Entry point for the Crisisline terminal voice client
// ABOUTME: Parses CLI flags, wires the session, and runs the TUI
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/crisisline-ai/crisisline-go/internal/analyzer"
	"github.com/crisisline-ai/crisisline-go/internal/capture"
	"github.com/crisisline-ai/crisisline-go/internal/client"
	"github.com/crisisline-ai/crisisline-go/internal/config"
	"github.com/crisisline-ai/crisisline-go/internal/discovery"
	"github.com/crisisline-ai/crisisline-go/internal/metrics"
	"github.com/crisisline-ai/crisisline-go/internal/player"
	"github.com/crisisline-ai/crisisline-go/internal/session"
	"github.com/crisisline-ai/crisisline-go/internal/transcript"
	"github.com/crisisline-ai/crisisline-go/internal/ui"
	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	gatewayURL = flag.String("gateway", "", "Gateway URL (overrides config and mDNS)")
	apiKey     = flag.String("api-key", "", "Gateway API key (overrides config)")
	clientName = flag.String("name", "", "Client name shown to the gateway")
	exportPath = flag.String("export", "", "Write the transcript to this file on exit")
	logFile    = flag.String("log-file", "crisisline.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, log to stdout instead")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crisisline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)

	logger, closeLog, err := setupLogging(cfg, !*noTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := resolveGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("using gateway", "url", gateway)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		go serveMetrics(cfg.Metrics.Address, logger)
	}

	log := transcript.New()
	sessionID := uuid.NewString()

	// Session hooks fire before the TUI exists; the notifier drops
	// messages until the program is attached below.
	var notify ui.Notifier

	var pipeline *capture.Pipeline
	var scheduler *player.Scheduler

	deps := session.Deps{
		Dial: func(ctx context.Context) (session.Conn, error) {
			c := client.New(client.Config{
				GatewayURL:        gateway,
				APIKey:            cfg.Gateway.APIKey,
				SessionID:         sessionID,
				Name:              cfg.Gateway.ClientName,
				AudioOutEncodings: cfg.Audio.OutEncodings,
			}, logger)
			if err := c.Connect(ctx); err != nil {
				return nil, err
			}
			return c, nil
		},
		OpenCapture: func() (session.Capture, error) {
			p, err := capture.OpenPipeline(cfg.Audio.FrameQueueDepth, m, logger)
			if err != nil {
				return nil, err
			}
			pipeline = p
			return p, nil
		},
		OpenPlayback: func(format audio.Format) (session.Player, error) {
			device, err := player.OpenOto(format, logger)
			if err != nil {
				return nil, err
			}
			scheduler = player.NewScheduler(device, m, logger)
			return scheduler, nil
		},
	}

	hooks := session.Hooks{
		OnState: func(s session.State) {
			logger.Info("session state", "state", s.String())
			notify.Send(ui.StateMsg{State: s})
		},
		OnTranscript: func(role, text string) {
			notify.Send(ui.TranscriptMsg{Role: role, Text: text})
		},
		OnPartial: func(role, text string) {
			notify.Send(ui.PartialMsg{Role: role, Text: text})
		},
		OnStage: func(stage, reasoning string) {
			logger.Info("crisis stage classified", "stage", stage, "reasoning", reasoning)
			notify.Send(ui.StageMsg{Stage: stage, Reasoning: reasoning})
		},
		OnLink: func(title, url string) {
			logger.Info("link shared", "title", title, "url", url)
			notify.Send(ui.LinkMsg{Title: title, URL: url})
		},
	}

	controller := session.New(deps, hooks, log, m, logger)
	if err := controller.Start(ctx); err != nil {
		return err
	}
	defer exportTranscript(cfg, log, logger)
	defer controller.Stop()

	bands := analyzer.New(controller.Snapshot, audio.InputSampleRate)

	if *noTUI {
		return controller.Wait()
	}

	program := ui.Run(gateway)
	notify.Attach(program.Send)

	meterCtx, cancelMeter := context.WithCancel(ctx)
	defer cancelMeter()
	go meterLoop(meterCtx, program, bands, func() ui.StatsMsg {
		var msg ui.StatsMsg
		if pipeline != nil {
			msg.Captured, msg.Dropped = pipeline.Stats()
		}
		if scheduler != nil {
			msg.Scheduled = scheduler.Stats().Scheduled
		}
		return msg
	})

	// End the TUI when the session ends, and the session when the TUI
	// quits.
	waitErr := make(chan error, 1)
	go func() {
		err := controller.Wait()
		program.Quit()
		waitErr <- err
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	controller.Stop()

	select {
	case err := <-waitErr:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("session did not shut down cleanly")
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

func applyFlagOverrides(cfg *config.Config) {
	if *gatewayURL != "" {
		cfg.Gateway.URL = *gatewayURL
	}
	if *apiKey != "" {
		cfg.Gateway.APIKey = *apiKey
	}
	if *clientName != "" {
		cfg.Gateway.ClientName = *clientName
	}
	if *exportPath != "" {
		cfg.Transcript.ExportPath = *exportPath
	}
}

// setupLogging writes structured logs to the log file when the TUI owns
// the terminal, or to stdout otherwise.
func setupLogging(cfg *config.Config, tui bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	path := cfg.Logging.File
	if path == "" {
		path = *logFile
	}

	if !tui {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		return logger, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}

// resolveGateway picks the gateway URL from flags, config, or mDNS.
func resolveGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Gateway.URL != "" {
		return cfg.Gateway.URL, nil
	}
	if !cfg.Gateway.Discover {
		return "", fmt.Errorf("no gateway URL configured")
	}

	logger.Info("browsing for gateways")
	browseCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gw, err := discovery.NewBrowser(logger).First(browseCtx)
	if err != nil {
		return "", fmt.Errorf("gateway discovery failed: %w", err)
	}
	return gw.URL(), nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}

// meterLoop feeds the TUI level meter and pipeline counters.
func meterLoop(ctx context.Context, program *tea.Program, bands *analyzer.Analyzer, stats func() ui.StatsMsg) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	statsTicker := time.NewTicker(500 * time.Millisecond)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			program.Send(ui.Levels(bands))
		case <-statsTicker.C:
			program.Send(stats())
		}
	}
}

func exportTranscript(cfg *config.Config, log *transcript.Log, logger *slog.Logger) {
	if cfg.Transcript.ExportPath == "" {
		return
	}
	f, err := os.Create(cfg.Transcript.ExportPath)
	if err != nil {
		logger.Error("failed to create transcript file", "error", err)
		return
	}
	defer f.Close()
	if err := log.Export(f); err != nil {
		logger.Error("failed to export transcript", "error", err)
		return
	}
	logger.Info("transcript exported", "path", cfg.Transcript.ExportPath)
}

// main.go - Alert Notify Server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/loganalytics/alertnotify/internal/alerts"
	"github.com/loganalytics/alertnotify/internal/core/config"
	"github.com/loganalytics/alertnotify/internal/core/metrics"
	"go.uber.org/zap"
)

// Application constants
const (
	serviceName    = "alertnotify"
	serviceVersion = "0.1.0"
)

// Command-line flags
var (
	configPath string
	devMode    bool
	logLevel   string
	demoEvent  bool
)

func init() {
	flag.StringVar(&configPath, "config", "./config/config.yaml", "Path to configuration file")
	flag.BoolVar(&devMode, "dev", false, "Run in development mode")
	flag.StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	flag.BoolVar(&demoEvent, "demo-event", false, "Fire one synthetic Triggered event at startup against every configured target")
}

func main() {
	flag.Parse()
	explicitDev, explicitLevel := flagsExplicitlySet()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// CLI flags win when the operator passed them explicitly; otherwise
	// the config file's logging section is the source of truth.
	effectiveDev, effectiveLevel := devMode, logLevel
	if !explicitDev {
		effectiveDev = cfg.Logging.Dev
	}
	if !explicitLevel && cfg.Logging.Level != "" {
		effectiveLevel = cfg.Logging.Level
	}

	logger, err := buildLogger(effectiveDev, effectiveLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infow("Starting alert notifier",
		"version", serviceVersion,
		"environment", getEnvironmentName(effectiveDev),
		"configPath", configPath)

	metricsCollector := metrics.NewCollector(cfg.Metrics, sugar)

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, metricsCollector, sugar)
		go func() {
			if err := metricsServer.Start(); err != nil {
				sugar.Errorw("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := metricsServer.Stop(ctx); err != nil {
				sugar.Errorw("Error stopping metrics server", "error", err)
			}
		}()
	}

	registry := alerts.NewMemoryRegistry()

	targets, err := buildTargets(cfg.Targets, registry, sugar, metricsCollector)
	if err != nil {
		sugar.Fatalw("Failed to build alert targets from configuration", "error", err)
	}
	sugar.Infow("Alert targets loaded", "count", len(targets))

	store := &targetStore{}
	store.set(targets)

	if demoEvent {
		fireDemoEvent(store, sugar)
	}

	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)
	go watchForReload(reloadCh, store, registry, sugar, metricsCollector)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh
	sugar.Info("Received shutdown signal")
	sugar.Info("Notifier gracefully stopped")
}

// targetStore holds the live target set so a SIGHUP reload can swap it
// out atomically. Every target is rebuilt on reload; in-flight repeat
// schedulers of the replaced targets keep running against their own
// captured EventContext, and only future Call invocations see the new set.
type targetStore struct {
	mu      sync.RWMutex
	targets []*alerts.Target
}

func (s *targetStore) set(targets []*alerts.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = targets
}

func (s *targetStore) get() []*alerts.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets
}

// watchForReload re-reads the configuration file on every SIGHUP and
// rebuilds the target set. A bad config on reload is logged and the
// previous, already-validated target set is kept in place.
func watchForReload(reloadCh <-chan os.Signal, store *targetStore, registry alerts.AlertRegistry, logger *zap.SugaredLogger, m *metrics.Collector) {
	for range reloadCh {
		logger.Info("Received SIGHUP, reloading target configuration")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Errorw("Reload failed: could not load configuration, keeping previous targets", "error", err)
			continue
		}
		targets, err := buildTargets(cfg.Targets, registry, logger, m)
		if err != nil {
			logger.Errorw("Reload failed: could not parse targets, keeping previous targets", "error", err)
			continue
		}
		store.set(targets)
		logger.Infow("Target configuration reloaded", "count", len(targets))
	}
}

// buildTargets parses every configured target section into a live
// alerts.Target wired to the shared registry, logger, and metrics.
func buildTargets(sections []config.TargetSection, registry alerts.AlertRegistry, logger *zap.SugaredLogger, m alerts.Metrics) ([]*alerts.Target, error) {
	targets := make([]*alerts.Target, 0, len(sections))
	for i, section := range sections {
		raw, err := section.JSON()
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		target, err := alerts.Parse(raw, registry, logger)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		targets = append(targets, target.WithMetrics(m))
	}
	return targets, nil
}

// flagsExplicitlySet reports whether -dev/-log-level were passed on the
// command line, so the config file's logging section can act as the
// fallback rather than silently overriding an explicit flag.
func flagsExplicitlySet() (dev bool, level bool) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dev":
			dev = true
		case "log-level":
			level = true
		}
	})
	return dev, level
}

// fireDemoEvent mints a synthetic alert ID and drives every currently
// loaded target's foreground Call path with a Triggered event, so running
// the binary with -demo-event exercises the whole dispatch pipeline
// (including the uuid-backed ID generation) without a real alert source.
func fireDemoEvent(store *targetStore, logger *zap.SugaredLogger) {
	alertID := alerts.NewAlertID()
	ec := alerts.EventContext{
		AlertID:   alertID,
		AlertName: "demo-alert",
		State:     alerts.Triggered,
	}
	targets := store.get()
	logger.Infow("Firing demo event", "alert_id", alertID, "targets", len(targets))
	for _, target := range targets {
		target.Call(context.Background(), ec)
	}
}

func buildLogger(devMode bool, logLevel string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if devMode {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	if logLevel != "" {
		if err := zapConfig.Level.UnmarshalText([]byte(logLevel)); err != nil {
			return nil, err
		}
	}
	return zapConfig.Build()
}

// getEnvironmentName returns a human-readable environment name
func getEnvironmentName(devMode bool) string {
	if devMode {
		return "development"
	}

	env := os.Getenv("ALERTNOTIFY_ENV")
	switch env {
	case "prod", "production":
		return "production"
	case "staging":
		return "staging"
	case "test", "testing":
		return "testing"
	default:
		return "production"
	}
}

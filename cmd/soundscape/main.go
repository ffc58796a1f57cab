// Command soundscape classifies the listener's surroundings into scenes and
// publishes score plans to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/soundscape/internal/config"
	"github.com/sweeney/soundscape/internal/gpio"
	"github.com/sweeney/soundscape/internal/logging"
	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/motion"
	"github.com/sweeney/soundscape/internal/mqtt"
	"github.com/sweeney/soundscape/internal/status"
	"github.com/sweeney/soundscape/internal/web"
)

// sampleInterval is how often the step line is read when a sensor is fitted.
const sampleInterval = 20 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "Config file (.yaml, .yml or .toml)")
	pollMs := flag.Int("poll-ms", 0, "Scene poll interval in milliseconds")
	heartbeatMs := flag.Int("heartbeat-ms", 0, "Heartbeat interval in milliseconds (0 to disable)")
	lockMs := flag.Int("lock-ms", 0, "Scene lock window in milliseconds")
	broker := flag.String("broker", "", `MQTT broker address ("" disables MQTT)`)
	httpAddr := flag.String("http", "", "HTTP status address (empty to disable)")
	logLevel := flag.String("log-level", "", "Log level: error, warn, info or debug")
	logFormat := flag.String("log-format", "", "Log format: text or json")
	motionOn := flag.Bool("motion", false, "Read cadence from the step sensor")
	motionPin := flag.Int("motion-pin", gpio.DefaultPin, "BCM pin number for the step sensor")
	printConfig := flag.Bool("print-config", false, "Print the resolved configuration and exit")

	flag.Parse()

	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll-ms":
			o.PollMs = pollMs
		case "heartbeat-ms":
			o.HeartbeatMs = heartbeatMs
		case "lock-ms":
			o.LockMs = lockMs
		case "broker":
			o.Broker = broker
		case "http":
			o.HTTPAddr = httpAddr
		case "log-level":
			o.LogLevel = logLevel
		case "log-format":
			o.LogFormat = logFormat
		case "motion":
			o.Motion = motionOn
		case "motion-pin":
			o.MotionPin = motionPin
		}
	})

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: marshal config: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads path (or the defaults when path is empty), applies the
// command-line overrides and validates the result.
func loadConfig(path string, o config.FlagOverrides) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		PollMs:       int64(cfg.PollMs),
		HeartbeatMs:  int64(cfg.HeartbeatMs),
		LockMs:       int64(cfg.Classifier.LockMs),
		HysteresisMs: int64(cfg.Geofence.HysteresisMs),
		Fences:       len(cfg.Geofence.Fences),
		Motion:       cfg.Motion.Enabled,
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
	}
}

// clientID appends a short random suffix so two daemons sharing a config
// never steal each other's broker session.
func clientID(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

func run(cfg config.Config, logger *slog.Logger) error {
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)

	var (
		publisher  mqtt.Publisher = discardPublisher{}
		mqttStatus mqtt.ConnectionStatus
		inputs     *mqtt.Inputs
	)
	if cfg.MQTT.Broker != "" {
		inputs = mqtt.NewInputs(topics)
		var client *mqtt.RealPublisher
		client, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: clientID(cfg.MQTT.ClientID),
			Topics:   topics,
			Inputs:   inputs,
			Logger:   logger,
			OnReconnect: func() {
				tracker.SetMQTTConnected(true)
				snap := tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  snap.Now,
					Event:      "RECONNECTED",
					Retained:   true,
					RawPayload: status.FormatStatusEvent(snap, "RECONNECTED", ""),
				}
				if err := client.PublishSystem(event); err != nil {
					logger.Warn("failed to publish reconnect event", "error", err)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		publisher, mqttStatus = client, client
		tracker.SetMQTTConnected(client.IsConnected())
	} else {
		logger.Info("mqtt disabled, no broker configured")
	}

	var (
		steps  gpio.Reader
		meter  *motion.Meter
		sample <-chan time.Time
	)
	if cfg.Motion.Enabled {
		reader, err := gpio.NewRealReader(cfg.Motion.Chip, cfg.Motion.Pin)
		if err != nil {
			return fmt.Errorf("init step sensor: %w", err)
		}
		defer reader.Close()
		steps = reader
		meter = motion.NewMeter(cfg.MotionMeter())

		sampleTicker := time.NewTicker(sampleInterval)
		defer sampleTicker.Stop()
		sample = sampleTicker.C
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", "error", err)
	} else {
		logger.Info("published startup event", "session_id", snap.SessionID)
	}

	var hub *web.Hub
	if cfg.HTTP.Addr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hub = web.NewHub(logger)
		go hub.Run(ctx)

		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		srv := web.New(cfg.HTTP.Addr, tracker, hub, logger)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	l := &loop{
		matcher:    cfg.NewMatcher(),
		classifier: cfg.NewClassifier(),
		planner:    cfg.NewPlanner(),
		inputs:     inputs,
		steps:      steps,
		meter:      meter,
		motionTTL:  cfg.MotionMeter().Window,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		hub:        hub,
		heartbeat:  cfg.Heartbeat(),
		logger:     logger,
	}

	logger.Info("started",
		"poll", cfg.Poll(),
		"lock", cfg.LockDuration(),
		"hysteresis", cfg.Hysteresis(),
		"fences", len(cfg.Geofence.Fences),
		"broker", cfg.MQTT.Broker,
		"motion", cfg.Motion.Enabled,
		"heartbeat", cfg.Heartbeat())

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(time.Now, ticker.C, sample, sigCh)
}

// discardPublisher stands in when no broker is configured.
type discardPublisher struct{}

func (discardPublisher) PublishScene(logic.SceneEvent) error { return nil }
func (discardPublisher) PublishPlan(mqtt.PlanEvent) error { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error { return nil }

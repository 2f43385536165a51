// Command binwatch monitors a bin's flame, fill and tilt sensors, drives the
// alarm outputs and publishes state over HTTP and MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/climate"
	"github.com/sweeney/binwatch/internal/config"
	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/gpio"
	"github.com/sweeney/binwatch/internal/logging"
	"github.com/sweeney/binwatch/internal/logic"
	"github.com/sweeney/binwatch/internal/metrics"
	"github.com/sweeney/binwatch/internal/monitor"
	"github.com/sweeney/binwatch/internal/mqtt"
	"github.com/sweeney/binwatch/internal/status"
	"github.com/sweeney/binwatch/internal/web"
)

const commandQueueSize = 16

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "binwatch: %v\n", err)
		os.Exit(2)
	}

	closer, err := logging.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "binwatch: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("fatal")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	sampler, err := gpio.NewRealSampler(cfg.Chip, cfg.Pins, cfg.IntensityPath)
	if err != nil {
		return fmt.Errorf("init gpio inputs: %w", err)
	}
	defer sampler.Close()

	if cfg.PrintState {
		return printState(os.Stdout, sampler, cfg.Tunables())
	}

	outputs, err := gpio.NewRealOutputs(cfg.Chip, cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio outputs: %w", err)
	}
	defer outputs.Close()

	var climateReader climate.Reader = climate.NopReader{}
	if cfg.ClimatePath != "" {
		climateReader = climate.NewIIOReader(cfg.ClimatePath)
	}

	var sink metrics.Sink = metrics.Nop{}
	if cfg.StatsdAddr != "" {
		s, err := metrics.NewStatsd(cfg.StatsdAddr, "binwatch.", []string{"device:" + cfg.DeviceID})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.StatsdAddr).Msg("statsd disabled")
		} else {
			sink = s
		}
	}
	defer sink.Close()

	events := eventlog.New(eventlog.DefaultCapacity)
	processor := control.NewProcessor(control.NewTunables(cfg.Tunables()), events)
	queue := control.NewQueue(commandQueueSize)
	defer queue.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	netInfo := readNetworkInfo()

	deps := monitor.Deps{
		Sampler:   sampler,
		Outputs:   outputs,
		Climate:   climateReader,
		Processor: processor,
		Events:    events,
		Tracker:   tracker,
		Metrics:   sink,
		Network:   func() *status.NetworkInfo { return netInfo },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher mqtt.Publisher
	if cfg.Broker != "" {
		client := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.Broker,
			DeviceID: cfg.DeviceID,
			Prefix:   cfg.TopicPrefix,
			Commands: queue,
		})
		publisher = client
		defer client.Close()

		deps.Connected = client.IsConnected
		events.Observe(mqtt.ForwardEvents(client))
		publishLifecycle(publisher, tracker, mqtt.EventStartup, "")

		ticker := time.NewTicker(cfg.Telemetry())
		defer ticker.Stop()
		go mqtt.RunTelemetry(ctx, client, client, tracker, ticker.C)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, events, queue)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	reason := watchSignals(sigCh, cancel)

	mon := monitor.New(monitor.Config{
		SampleInterval: cfg.Sample(),
		AuxInterval:    cfg.Aux(),
		BurstGap:       cfg.BurstGap(),
		TopMounted:     cfg.TopMounted,
		Status:         statusConfig(cfg),
	}, deps)

	log.Info().
		Str("device", cfg.DeviceID).
		Str("broker", cfg.Broker).
		Dur("loop", cfg.Loop()).
		Msg("started")

	ticker := time.NewTicker(cfg.Loop())
	defer ticker.Stop()

	if err := mon.Run(ctx, ticker.C, queue.Requests()); err != nil {
		return err
	}

	queue.Close()
	if publisher != nil {
		r := "UNKNOWN"
		select {
		case r = <-reason:
		default:
		}
		publishLifecycle(publisher, tracker, mqtt.EventStop, r)
	}
	return nil
}

// watchSignals cancels the loop on the first signal and reports its name.
func watchSignals(sig <-chan os.Signal, cancel context.CancelFunc) <-chan string {
	reason := make(chan string, 1)
	go func() {
		s := <-sig
		log.Info().Stringer("signal", s).Msg("shutting down")
		reason <- signalName(s)
		cancel()
	}()
	return reason
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// publishLifecycle sends a retained system event carrying the latest status.
func publishLifecycle(pub mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	snap := tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := pub.PublishSystem(se); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	log.Info().Str("event", event).Msg("published system event")
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		DeviceID:   cfg.DeviceID,
		SampleMs:   int64(cfg.SampleMs),
		AuxMs:      int64(cfg.AuxMs),
		LoopMs:     int64(cfg.LoopMs),
		TopMounted: cfg.TopMounted,
		Broker:     cfg.Broker,
		HTTPAddr:   cfg.HTTPAddr,
	}
}

// printState writes one raw read of every input, interpreted with the
// configured polarities.
func printState(w io.Writer, s gpio.Sampler, d control.Defaults) error {
	flameLevel, err := s.ReadFlame()
	if err != nil {
		return fmt.Errorf("read flame: %w", err)
	}
	intensity, err := s.ReadIntensity()
	if err != nil {
		return fmt.Errorf("read intensity: %w", err)
	}
	fill, err := s.ReadFill()
	if err != nil {
		return fmt.Errorf("read fill: %w", err)
	}
	tilt, err := s.ReadTilt()
	if err != nil {
		return fmt.Errorf("read tilt: %w", err)
	}

	fmt.Fprintf(w, "Flame: %s (level=%s, intensity=%d)\n",
		activeString(d.FlamePolarity, flameLevel, "FIRE", "NONE"), levelString(flameLevel), intensity)
	fmt.Fprintf(w, "Fill: %s (level=%s)\n",
		activeString(d.Fill.Polarity, fill, "ACTIVE", "INACTIVE"), levelString(fill))
	fmt.Fprintf(w, "Tilt: %s (level=%s)\n",
		activeString(d.Tilt.Polarity, tilt, "ACTIVE", "INACTIVE"), levelString(tilt))
	return nil
}

func activeString(p logic.Polarity, level bool, on, off string) string {
	if p.Active(level) {
		return on
	}
	return off
}

func levelString(level bool) string {
	if level {
		return "HIGH"
	}
	return "LOW"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
	envNetworkWifiRSSI   = "NETWORK_WIFI_RSSI"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	info := &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
	if rssi, err := strconv.Atoi(os.Getenv(envNetworkWifiRSSI)); err == nil {
		info.SignalDBm = &rssi
	}
	return info
}

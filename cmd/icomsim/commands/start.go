package commands

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddurler/icomsim/internal/logger"
	"github.com/ddurler/icomsim/internal/telemetry"
	"github.com/ddurler/icomsim/pkg/adminapi"
	"github.com/ddurler/icomsim/pkg/config"
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/metrics"
	"github.com/ddurler/icomsim/pkg/middleware"
	"github.com/ddurler/icomsim/pkg/tagdb"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the ICOM board simulator",
	Long: `Start the ICOM communications board simulator.

Reads AFSEC TLV frames from the configured serial device, dispatches them
through the middleware chain against the shared tag database, and writes
replies back. Optionally serves Prometheus metrics and the diagnostic
HTTP API alongside it.

Examples:
  # Start with the default configuration file
  icomsim start

  # Start with a custom configuration file
  icomsim start --config /etc/icomsim/config.yaml

  # Override the log level via environment variable
  ICOMSIM_LOGGING_LEVEL=DEBUG icomsim start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "icomsim",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}

	db := tagdb.New()
	if err := loadTagTable(db, cfg.TagTable.Path); err != nil {
		return err
	}
	logger.Info("tag table loaded", "path", cfg.TagTable.Path, "tags", len(db.ListTags()))

	var m *metrics.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		m = metrics.New()
		db.AttachMetrics(m)
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	var adminServer *adminapi.Server
	if cfg.AdminAPI.Enabled {
		var auth *adminapi.JWTService
		if cfg.AdminAPI.JWTSecret != "" {
			auth, err = adminapi.NewJWTService(cfg.AdminAPI.JWTSecret, time.Hour)
			if err != nil {
				return fmt.Errorf("failed to initialize admin API auth: %w", err)
			}
		}
		adminServer = adminapi.NewServer(cfg.AdminAPI.ListenAddr, db, auth)
		go func() {
			if err := adminServer.ListenAndServe(); err != nil {
				logger.Error("admin API server error", "error", err)
			}
		}()
		logger.Info("admin API enabled", "listen_addr", cfg.AdminAPI.ListenAddr)
	} else {
		logger.Info("admin API disabled")
	}

	device, err := openSerialDevice(cfg.Serial.Device)
	if err != nil {
		return fmt.Errorf("failed to open serial device: %w", err)
	}
	defer func() { _ = device.Close() }()
	logger.Info("serial device opened", "device", cfg.Serial.Device, "baud_rate", cfg.Serial.BaudRate)

	dispatcher := middleware.NewDispatcher(db)
	dispatcher.AttachMetrics(m)

	serialDone := make(chan error, 1)
	go func() { serialDone <- runSerialLoop(ctx, dispatcher, db, device, m) }()

	drainDone := make(chan struct{})
	go runNotificationDrain(ctx, dispatcher, db, cfg.Notification.DrainInterval, drainDone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("icomsim is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
	case err := <-serialDone:
		signal.Stop(sigChan)
		cancel()
		if err != nil {
			logger.Error("serial loop error", "error", err)
		}
	}

	<-drainDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin API shutdown error", "error", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	logger.Info("icomsim stopped")
	return nil
}

// loadTagTable opens path and registers every valid row into db, logging
// (not failing on) per-row validation errors.
func loadTagTable(db *tagdb.Database, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tag table: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, rowErr := range tagdb.LoadCSV(db, f) {
		logger.Warn("skipping invalid tag table row", "line", rowErr.Line, "error", rowErr.Err)
	}
	return nil
}

// openSerialDevice opens the configured serial device path as a raw byte
// stream. Physical serial timing (baud rate, parity, flow control) is out
// of scope for this simulator; the device is expected to already be
// configured by the operator (or to be a pty/fifo in test setups).
func openSerialDevice(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

// runSerialLoop reads bytes from device one at a time, feeding them into a
// RawFrame builder. Once a frame reaches the Ok state it is handed to the
// dispatcher and the reply is written back; a Junk frame is counted as
// rejected and dropped without a reply. Either way the builder then resets
// for the next frame.
func runSerialLoop(ctx context.Context, d *middleware.Dispatcher, db *tagdb.Database, device *os.File, m *metrics.Metrics) error {
	reader := bufio.NewReader(device)
	rf := frame.NewEmpty()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}

		rf.Push(b)
		switch rf.State() {
		case frame.StateOk:
			reply := d.HandleRequestRawFrame(ctx, db, rf)
			if m != nil {
				m.ObserveFrameDecoded(rf.Tag())
			}
			if _, err := device.Write(reply.Encode()); err != nil {
				return fmt.Errorf("serial write: %w", err)
			}
			rf = frame.NewEmpty()
		case frame.StateJunk:
			if m != nil {
				m.ObserveFrameRejected()
			}
			rf = frame.NewEmpty()
		}
	}
}

// runNotificationDrain periodically drains pending notification changes
// into the middleware chain so connected users see spontaneous updates.
func runNotificationDrain(ctx context.Context, d *middleware.Dispatcher, db *tagdb.Database, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DrainNotifications(db, true)
		}
	}
}

package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clusterfs/plockd/internal/logger"
	"github.com/clusterfs/plockd/internal/telemetry"
	"github.com/clusterfs/plockd/pkg/admin"
	"github.com/clusterfs/plockd/pkg/checkpoint"
	"github.com/clusterfs/plockd/pkg/cluster"
	"github.com/clusterfs/plockd/pkg/config"
	"github.com/clusterfs/plockd/pkg/daemon"
	"github.com/clusterfs/plockd/pkg/devchannel"
	"github.com/clusterfs/plockd/pkg/metrics"
	"github.com/clusterfs/plockd/pkg/rangelock"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the lock coordinator daemon",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.Checkpoint.Dir)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.Checkpoint.MaxSectionSize > 0 {
		store.SetMaxSectionSize(cfg.Checkpoint.MaxSectionSize)
	}

	engine := rangelock.NewEngine()

	// A single-node LoopbackTransport is the reference deployment until
	// a networked Transport is wired in; see SPEC_FULL.md §4.4.
	handles := cluster.NewLoopbackCluster(1)

	var lockMetrics metrics.LockMetrics
	if cfg.Metrics.Enabled {
		lockMetrics = metrics.NewLockMetrics()
	}

	d := daemon.New(daemon.Config{
		NodeID: cfg.NodeID, GroupName: cfg.GroupName, CheckpointInterval: cfg.Checkpoint.Interval,
	}, engine, handles[0], store, lockMetrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled: cfg.Telemetry.Enabled, ServiceName: cfg.Telemetry.ServiceName,
		Endpoint: cfg.Telemetry.Endpoint, Insecure: true, SampleRate: 1.0,
	})
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if err := d.Recover(ctx); err != nil {
		return err
	}

	major, err := devchannel.MiscMajor()
	if err != nil {
		logger.Warn("device channel unavailable, running without kernel request channel", "error", err)
	} else {
		minor, err := devchannel.MiscMinor(cfg.Device.Name)
		if err != nil {
			logger.Warn("device channel unavailable, running without kernel request channel", "error", err)
		} else if err := devchannel.EnsureNode(cfg.Device.Path, major, minor); err != nil {
			logger.Warn("failed to create device node, running without kernel request channel", "error", err)
		} else if f, err := devchannel.Open(cfg.Device.Path); err == nil {
			d.SetDevice(devchannel.NewFileDevice(f))
			go d.ServeDevice(ctx)
		}
	}

	adminServer := admin.New(engine, store)
	httpServer := &http.Server{Addr: cfg.Admin.ListenAddr, Handler: adminServer}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server failed", "error", err)
		}
	}()

	logger.Info("plockd started", "node_id", cfg.NodeID, "group", cfg.GroupName)
	err = d.Run(ctx)
	httpServer.Shutdown(context.Background())
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

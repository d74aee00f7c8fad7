package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/enkryptcom/enkrypt-backend/internal/envconfig"
	"github.com/enkryptcom/enkrypt-backend/pkg/api"
	"github.com/enkryptcom/enkrypt-backend/pkg/auth"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore/fs"
	"github.com/enkryptcom/enkrypt-backend/pkg/blobstore/s3"
	"github.com/enkryptcom/enkrypt-backend/pkg/cluster"
	"github.com/enkryptcom/enkrypt-backend/pkg/config"
	"github.com/enkryptcom/enkrypt-backend/pkg/httpserver"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
	"github.com/enkryptcom/enkrypt-backend/pkg/maintenance"
	"github.com/enkryptcom/enkrypt-backend/pkg/metrics"
	"github.com/enkryptcom/enkrypt-backend/pkg/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backup API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// buildStore constructs the configured blob store backend.
func buildStore(cfg config.StorageConfig) (blobstore.Store, error) {
	switch cfg.Driver {
	case config.StorageS3:
		return s3.New(s3.Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UseSSL:          cfg.S3UseSSL,
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			RootPath:        cfg.S3RootPath,
		})
	case config.StorageFS:
		return fs.New(cfg.FilesystemRootDirPath, cfg.FilesystemTmpDirPath), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// buildHandler assembles the full request pipeline around either the
// backup API or the maintenance router, per API_MAINTENANCE_MODE.
func buildHandler(cfg config.Config, store blobstore.Store) http.Handler {
	var routes http.Handler
	if cfg.API.MaintenanceMode {
		routes = maintenance.NewMux(Version)
	} else {
		routes = api.NewMux(&api.Server{
			Store:    store,
			Verifier: &auth.Verifier{},
			Version:  Version,
		})
	}
	return pipeline.Build(cfg.API, routes)
}

func startMetricsSidecar(cfg config.PrometheusConfig, mode metrics.RegistryMode) (stop func()) {
	if !cfg.Enabled {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	sidecar := &metrics.Sidecar{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Mode: mode,
	}
	go sidecar.Run(ctx)
	log.Logger.Info().Str("addr", sidecar.Addr).Msg("metrics sidecar started")
	return cancel
}

func runServe() error {
	cfg := config.Load(envconfig.FromEnviron)

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	handler := buildHandler(cfg, store)
	addr := fmt.Sprintf("%s:%d", cfg.API.HTTPHost, cfg.API.HTTPPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signalsFor(cfg.Shutdown.Signals)...)
	signal.Notify(sigCh, syscall.SIGHUP)

	if cfg.Cluster.Standalone {
		return runStandalone(cfg, handler, addr, sigCh)
	}
	return runCluster(cfg, addr, sigCh)
}

func runStandalone(cfg config.Config, handler http.Handler, addr string, sigCh chan os.Signal) error {
	lc := httpserver.New(addr, handler, httpserver.Config{
		ReqSoftTimeout:         cfg.API.ReqSoftTimeout,
		ReqSoftTimeoutInterval: cfg.API.ReqSoftTimeoutInterval,
		HardBound:              cfg.API.ReqHardTimeout,
		DebugErrors:            cfg.API.DebugErrors,
	})
	if err := lc.Start(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	stopMetrics := startMetricsSidecar(cfg.Prometheus, metrics.Standalone)
	defer stopMetrics()

	shutdownErrCh := make(chan error, 1)
	shuttingDown := false

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				log.Logger.Info().Msg("SIGHUP received, no-op in standalone mode (no rolling restart without a worker pool)")
				continue
			}
			if shuttingDown {
				log.Logger.Info().Str("signal", sig.String()).Msg("second shutdown signal, accelerating")
				lc.Accelerate()
				continue
			}
			log.Logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
			shuttingDown = true
			go func() { shutdownErrCh <- lc.Shutdown() }()
		case err := <-shutdownErrCh:
			return err
		}
	}
}

func runCluster(cfg config.Config, addr string, sigCh chan os.Signal) error {
	selfExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	mgr := cluster.NewManager(cfg.Cluster, cfg.Shutdown, selfExe, []string{"worker"})

	stopMetrics := startMetricsSidecar(cfg.Prometheus, metrics.ClusterAggregator)
	defer stopMetrics()

	collector := metrics.NewCollector(mgr.Snapshot)
	collector.Start()
	defer collector.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Run(addr) }()

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				log.Logger.Info().Msg("SIGHUP received, starting rolling restart")
				mgr.RollingRestart()
				continue
			}
			log.Logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
			mgr.HandleSignal()
		case err := <-errCh:
			return err
		}
	}
}

func signalsFor(names []string) []os.Signal {
	var sigs []os.Signal
	for _, n := range names {
		switch n {
		case "SIGTERM":
			sigs = append(sigs, syscall.SIGTERM)
		case "SIGINT":
			sigs = append(sigs, syscall.SIGINT)
		}
	}
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGTERM, syscall.SIGINT}
	}
	return sigs
}

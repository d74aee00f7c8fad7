package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enkryptcom/enkrypt-backend/internal/envconfig"
	"github.com/enkryptcom/enkrypt-backend/pkg/cluster"
	"github.com/enkryptcom/enkrypt-backend/pkg/config"
	"github.com/enkryptcom/enkrypt-backend/pkg/httpserver"
)

// workerCmd is never invoked directly by an operator: the cluster primary
// execs this binary with "worker" as its only argument, inheriting the
// shared listening socket on fd 3.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run one worker process (internal; spawned by the cluster primary)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func runWorker() error {
	cfg := config.Load(envconfig.FromEnviron)

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("worker failed to initialize storage: %w", err)
	}

	handler := buildHandler(cfg, store)

	return cluster.RunWorker(handler, httpserver.Config{
		ReqSoftTimeout:         cfg.API.ReqSoftTimeout,
		ReqSoftTimeoutInterval: cfg.API.ReqSoftTimeoutInterval,
		HardBound:              cfg.API.ReqHardTimeout,
		DebugErrors:            cfg.API.DebugErrors,
	})
}

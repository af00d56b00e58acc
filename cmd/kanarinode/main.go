package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kanari-network/kanari-core/internal/config"
	"github.com/kanari-network/kanari-core/internal/engine"
	"github.com/kanari-network/kanari-core/internal/logging"
	"github.com/kanari-network/kanari-core/internal/metrics"
	"github.com/kanari-network/kanari-core/internal/rpc"
	"github.com/kanari-network/kanari-core/internal/statestore"
	"github.com/kanari-network/kanari-core/internal/vmboundary"
)

var cfg *config.Config

var verbosity string

func init() {
	cfg = config.RegisterFlags(rootCmd)
	rootCmd.Flags().StringVar(&verbosity, "log.verbosity", "info", "log level: error, warn, info, debug, trace")
}

var rootCmd = &cobra.Command{
	Use:   "kanarinode",
	Short: "Run the execution core: ChangeSet-mediated state engine behind a JSON-RPC front door",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(logging.Config{Verbosity: parseVerbosity(verbosity)})
		return run(cmd, logger)
	},
}

func run(cmd *cobra.Command, logger log.Logger) error {
	if cfg.Treasury.IsZero() {
		logger.Warn("no --treasury configured; Mint transactions will never authorize")
	}

	store, err := statestore.Open(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening state store at %s: %w", cfg.DataDir, err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	boundary := vmboundary.New(nil, vmboundary.WithBuiltinFallback(cfg.BuiltinFallback))
	eng := engine.New(store, boundary, cfg.Treasury, logger, m)

	server := rpc.New(eng, logger, cfg.CORSOrigins)

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	logger.Info("kanarinode listening", "addr", cfg.BindAddr, "datadir", cfg.DataDir)
	return http.ListenAndServe(cfg.BindAddr, mux)
}

func parseVerbosity(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "error":
		return log.LvlError
	case "warn", "warning":
		return log.LvlWarn
	case "debug":
		return log.LvlDebug
	case "trace":
		return log.LvlTrace
	default:
		return log.LvlInfo
	}
}

func main() {
	ctx, cancel := common.RootContext()
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/go-catsurv/infrastructure/middleware"
	"github.com/ahrav/go-catsurv/internal/application"
	"github.com/ahrav/go-catsurv/internal/pkg/logger"
)

// runtimeState holds what the persistent pre-run sets up for subcommands.
type runtimeState struct {
	log      *logger.Logger
	metrics  *middleware.PrometheusMetrics
	server   *http.Server
	provider *sdktrace.TracerProvider
}

var state runtimeState

var rootCmd = &cobra.Command{
	Use:   "catsurv",
	Short: "Computerized adaptive testing engine",
	Long: "catsurv estimates respondent ability from IRT-calibrated item banks, " +
		"picks the next item to administer and evaluates stopping rules.\n\n" +
		"Item numbers on the command line are 1-based.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { teardown() },
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		teardown()
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "Session file (YAML)")
	pf.String("log-mode", "prod", "Log format: prod (JSON) or dev (console)")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address while running, e.g. :9090")
	pf.Bool("trace", false, "Write OpenTelemetry spans to stderr")
	pf.Uint64("seed", 0, "Seed for the RANDOM selector (0 draws one)")

	rootCmd.AddCommand(
		probabilityCmd,
		likelihoodCmd,
		priorCmd,
		dllCmd,
		estimateCmd,
		infoCmd,
		expectedCmd,
		selectCmd,
		lookaheadCmd,
		stopCmd,
		estimateAllCmd,
		simulateCmd,
		versionCmd,
	)
}

func setup(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("log-mode")
	log, err := logger.New(mode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	state.log = log

	if on, _ := cmd.Flags().GetBool("trace"); on {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		state.provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		otel.SetTracerProvider(state.provider)
	}

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	state.metrics = middleware.NewPrometheusMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	state.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := state.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return nil
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if state.server != nil {
		_ = state.server.Shutdown(ctx)
		state.server = nil
	}
	if state.provider != nil {
		_ = state.provider.Shutdown(ctx)
		state.provider = nil
	}
	if state.log != nil {
		state.log.Sync()
	}
}

// loadSession builds a session from the --config file.
func loadSession(cmd *cobra.Command) (*application.Cat, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := application.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	opts := []application.Option{application.WithLogger(state.log)}
	if state.metrics != nil {
		opts = append(opts, application.WithMetrics(state.metrics))
	}
	if seed, _ := cmd.Flags().GetUint64("seed"); seed != 0 {
		opts = append(opts, application.WithSeed(seed))
	}
	return application.NewCat(cfg, opts...)
}

// itemFlag reads a 1-based item number flag and returns the 0-based index.
func itemFlag(cmd *cobra.Command, name string) (int, error) {
	n, _ := cmd.Flags().GetInt(name)
	if n < 1 {
		return 0, fmt.Errorf("--%s must be a 1-based item number, got %d", name, n)
	}
	return n - 1, nil
}

// Package cli implements the memfs command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepnoodle-ai/memfs/config"
	"github.com/deepnoodle-ai/memfs/log"
	"github.com/deepnoodle-ai/memfs/metrics"
	"github.com/deepnoodle-ai/memfs/toolkit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ErrCommandFailed is returned when a memory command produced an error
// envelope. The envelope has already been printed.
var ErrCommandFailed = errors.New("memory command failed")

var (
	configPath   string
	rootOverride string
	logLevel     string
	metricsAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "memfs",
	Short: "Sandboxed file-backed memory for agents",
	Long: `memfs stores an agent's memories as plain files below a single root
directory and runs the memory tool commands (view, create, str_replace,
insert, delete, rename) against it.

Settings come from an optional YAML, JSON or TOML config file (or a
directory of them, merged in name order), then MEMFS_* environment
variables, then command line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML, JSON or TOML config file, or a directory of them")
	flags.StringVarP(&rootOverride, "root", "r", "", "Host directory that backs the memory directory")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrCommandFailed) {
			fmt.Fprintln(os.Stderr, errorStyle.Sprint(xmark+" "+err.Error()))
		}
		return 1
	}
	return 0
}

// session is an open memory tool plus the optional metrics endpoint that
// observes it.
type session struct {
	cfg     *config.Config
	tool    *toolkit.MemoryTool
	logger  log.Logger
	metrics *http.Server
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if rootOverride != "" {
		cfg.Root = rootOverride
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads the configuration and opens the memory tool. The logger
// rides on the command context and writes to the error stream so stdout
// stays reserved for results.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := log.NewWithWriter(cmd.ErrOrStderr(), cfg.Level())

	s := &session{cfg: cfg, logger: logger}
	var observer toolkit.Observer
	if cfg.MetricsAddr != "" {
		recorder, err := metrics.NewRecorder(prometheus.NewRegistry())
		if err != nil {
			return nil, err
		}
		observer = recorder
		s.metrics = serveMetrics(cfg.MetricsAddr, recorder, logger)
	}

	cmd.SetContext(log.WithLogger(cmd.Context(), logger))
	tool, err := toolkit.NewMemoryTool(cfg.Options(nil, observer))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.tool = tool
	return s, nil
}

func serveMetrics(addr string, recorder *metrics.Recorder, logger log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func (s *session) Close() error {
	var errs []error
	if s.tool != nil {
		errs = append(errs, s.tool.Close())
	}
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, s.metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

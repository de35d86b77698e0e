package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/young1lin/deepdive/internal/briefing"
	"github.com/young1lin/deepdive/internal/config"
	"github.com/young1lin/deepdive/internal/llm"
	"github.com/young1lin/deepdive/internal/metrics"
	"github.com/young1lin/deepdive/internal/protocol"
	"github.com/young1lin/deepdive/internal/research"
	"github.com/young1lin/deepdive/internal/search"
	"github.com/young1lin/deepdive/pkg/logger"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	cfgFile  string
	logLevel string
	showVer  bool
)

var rootCmd = &cobra.Command{
	Use:   "deepdive",
	Short: "Research agent that searches the web and synthesizes briefings",
	Long: `Deep Dive reads newline-delimited JSON messages on stdin, searches the
web for each question, asks a language model for a cited briefing and
streams activity and response events back on stdout.

Diagnostics are written to stderr.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVer {
			fmt.Fprintf(cmd.ErrOrStderr(), "deepdive %s (built %s)\n", Version, BuildDate)
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Override config with command line flags
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		defer logger.Sync()

		logger.Info("starting deepdive",
			zap.String("version", Version),
			zap.String("model", cfg.LLM.Model),
			zap.Int("search_count", cfg.Search.Count),
		)

		return run(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.Flags().BoolVarP(&showVer, "version", "v", false, "show version")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	searcher := search.NewBraveProvider(&cfg.Search, m)
	if !searcher.IsAvailable() {
		logger.Warn("BRAVE_API_KEY is not set, searches will be rejected by the provider")
	}

	client := llm.NewClient(&cfg.LLM)
	if !client.IsAvailable() {
		logger.Warn("ANTHROPIC_API_KEY is not set, synthesis will fail")
	}
	logger.Info("research pipeline configured",
		zap.String("search_provider", searcher.Name()),
		zap.Int("search_count", searcher.DefaultCount()),
		zap.String("model", client.Model()),
	)

	orchestrator := research.NewOrchestrator(
		searcher,
		briefing.NewSynthesizer(client),
		searcher.DefaultCount(),
		m,
	)
	loop := protocol.NewLoop(os.Stdin, os.Stdout, orchestrator)

	// The read blocks on stdin, so a signal must not wait for the next line
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("protocol loop stopped", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		logger.Info("interrupted, exiting")
	}

	logger.Info("deepdive stopped")
	return nil
}

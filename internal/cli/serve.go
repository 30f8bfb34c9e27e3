package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/revsup/agentd/internal/config"
	"github.com/revsup/agentd/internal/daemon"
	"github.com/revsup/agentd/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent API server",
	Long: `Run the agent API server (default :8000) in the foreground until
interrupted. The documentation/proxy server is a separate process; start
it with "agentd docs".`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, loader, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

// newLogger builds the process logger from config, with the --log-level
// flag taking precedence.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	return logger.New(logger.Config{
		Level:   level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
}

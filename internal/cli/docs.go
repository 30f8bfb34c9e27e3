package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/revsup/agentd/internal/config"
	"github.com/revsup/agentd/internal/docsserver"
	"github.com/revsup/agentd/internal/metrics"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Run only the documentation/proxy server",
	Long: `Run the documentation server on its own, proxying to an agent API
server that is already running elsewhere (for example as a separate
systemd unit).`,
	RunE: runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
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

	srv, err := docsserver.NewServer(docsserver.Config{
		Host:        cfg.Docs.Host,
		Port:        cfg.Docs.Port,
		UpstreamURL: cfg.Docs.UpstreamURL,
		Timeout:     time.Duration(cfg.Docs.Timeout) * time.Second,
		Metrics:     metrics.NewMetrics(),
		Logger:      log.GetZerolog(),
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return srv.Stop()
}

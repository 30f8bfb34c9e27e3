package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/revsup/agentd/internal/config"
	"github.com/revsup/agentd/pkg/mcp"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Tools.MCP.Enabled {
		mcpCfg, err := mcp.LoadConfig(cfg.Tools.MCP.ConfigPath)
		if err != nil {
			return fmt.Errorf("invalid MCP config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "MCP config OK (%d server(s))\n", len(mcpCfg.MCPs))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config OK (%s)\n", loader.GetConfigPath())
	fmt.Fprintf(cmd.OutOrStdout(), "  agents: %d\n", len(cfg.Agents))
	fmt.Fprintf(cmd.OutOrStdout(), "  api server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(cmd.OutOrStdout(), "  docs server: %s:%d -> %s\n", cfg.Docs.Host, cfg.Docs.Port, cfg.Docs.UpstreamURL)
	return nil
}

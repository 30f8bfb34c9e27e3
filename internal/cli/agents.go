package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/revsup/agentd/internal/config"
	"github.com/revsup/agentd/pkg/agent"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List configured agents",
	RunE:  runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, ac := range cfg.Agents {
		a := agent.Agent{ID: ac.ID}
		fmt.Fprintf(out, "%s (%s)\n", a.DisplayName(), ac.ID)
		fmt.Fprintf(out, "  model: %s\n", ac.Model)
		if ac.Description != "" {
			fmt.Fprintf(out, "  description: %s\n", ac.Description)
		}
		if len(ac.Tools) > 0 {
			fmt.Fprintf(out, "  tools: %v\n", ac.Tools)
		}
	}
	fmt.Fprintf(out, "\n%d agent(s) configured\n", len(cfg.Agents))
	return nil
}

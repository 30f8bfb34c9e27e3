// Package daemon wires the agent runtime together: configuration, tools,
// session store and the API server, with graceful shutdown. The docs
// server runs as its own process and is not part of the daemon.
package daemon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/revsup/agentd/internal/apiserver"
	"github.com/revsup/agentd/internal/config"
	"github.com/revsup/agentd/internal/logger"
	"github.com/revsup/agentd/internal/metrics"
	"github.com/revsup/agentd/pkg/agent"
	"github.com/revsup/agentd/pkg/mcp"
	"github.com/revsup/agentd/pkg/session"
	"github.com/revsup/agentd/pkg/tools"
)

// Daemon represents the agentd daemon service
type Daemon struct {
	config *config.Config
	loader *config.Loader
	logger *logger.Logger

	// Core modules
	registry     *agent.Registry
	runner       *agent.Runner
	toolRegistry *tools.Registry
	sessions     *session.Store
	cleaner      *session.Cleaner
	metrics      *metrics.Metrics

	// Services
	apiServer *apiserver.Server
	watcher   *config.Watcher

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// New creates a new daemon instance
func New(cfg *config.Config, loader *config.Loader, log *logger.Logger) (*Daemon, error) {
	d := &Daemon{
		config:  cfg,
		loader:  loader,
		logger:  log,
		metrics: metrics.NewMetrics(),
	}

	if err := d.initializeCoreModules(); err != nil {
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}
	if err := d.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return d, nil
}

// initializeCoreModules initializes agents, tools and the session store
func (d *Daemon) initializeCoreModules() error {
	zlog := d.logger.GetZerolog()

	registry, err := agent.NewRegistry(buildAgents(d.config.Agents))
	if err != nil {
		return fmt.Errorf("failed to build agent registry: %w", err)
	}
	d.registry = registry
	zlog.Info().Strs("agents", registry.Names()).Msg("Agent registry initialized")

	d.toolRegistry = tools.NewRegistry(zlog)
	d.toolRegistry.OnExecute(func(name string, err error) {
		status := "success"
		if err != nil {
			status = "error"
			d.metrics.ToolExecutionErrorsTotal.WithLabelValues(name).Inc()
		}
		d.metrics.ToolExecutionsTotal.WithLabelValues(name, status).Inc()
	})
	if err := d.registerTools(); err != nil {
		return err
	}

	profiles := make([]agent.AuthProfile, 0, len(d.config.AI.Profiles))
	for _, p := range d.config.AI.Profiles {
		profiles = append(profiles, agent.AuthProfile{
			ID:       p.ID,
			Provider: p.Provider,
			APIKey:   p.APIKey,
			Priority: p.Priority,
		})
	}

	d.runner = agent.NewRunner(agent.RunnerConfig{
		Profiles: profiles,
		Tools:    d.toolRegistry,
		Logger:   zlog,
	})

	store, err := session.New(d.config.Sessions.Dir, zlog)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	d.sessions = store

	if d.config.Sessions.RetentionDays > 0 {
		d.cleaner = session.NewCleaner(
			store,
			d.config.Sessions.RetentionDays,
			d.config.Sessions.CleanupCron,
			zlog,
		)
		d.cleaner.OnPurge(func(count int64) {
			d.metrics.SessionsPurged.Add(float64(count))
			if n, err := store.Count(context.Background()); err == nil {
				d.metrics.SessionsActive.Set(float64(n))
			}
		})
	}

	return nil
}

// registerTools registers the enabled built-in and MCP tools
func (d *Daemon) registerTools() error {
	zlog := d.logger.GetZerolog()

	if d.config.Tools.Perplexity.Enabled {
		if profile, ok := d.config.ProfileFor("perplexity"); ok {
			if err := d.toolRegistry.Register(tools.NewPerplexityTool(profile.APIKey)); err != nil {
				return fmt.Errorf("failed to register perplexity tool: %w", err)
			}
			zlog.Info().Msg("Perplexity search tool registered")
		} else {
			zlog.Warn().Msg("Perplexity tool enabled but no API key configured, skipping")
		}
	}

	if d.config.Tools.MCP.Enabled {
		mcpCfg, err := mcp.LoadConfig(d.config.Tools.MCP.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load MCP config: %w", err)
		}

		client := mcp.NewClient(mcpCfg, zlog)
		for name := range mcpCfg.MCPs {
			toolName := strings.ReplaceAll(name, "-", "_")
			st := mcp.NewServerTool(client, name, toolName, toolName,
				fmt.Sprintf("Query the %s MCP server", name), nil)
			if err := d.toolRegistry.Register(st); err != nil {
				return fmt.Errorf("failed to register MCP tool %s: %w", toolName, err)
			}
			zlog.Info().Str("server", name).Str("tool", toolName).Msg("MCP tool registered")
		}
	}

	return nil
}

// initializeServices creates the API server
func (d *Daemon) initializeServices() error {
	apiSrv, err := apiserver.NewServer(apiserver.Config{
		Host:         d.config.Server.Host,
		Port:         d.config.Server.Port,
		SharedSecret: d.config.Server.SharedSecret,
		Registry:     d.registry,
		Runner:       d.runner,
		Sessions:     d.sessions,
		Metrics:      d.metrics,
		Logger:       d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	d.apiServer = apiSrv

	return nil
}

// Start starts all daemon services
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	if err := d.apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	if d.cleaner != nil {
		if err := d.cleaner.Start(); err != nil {
			return fmt.Errorf("failed to start session cleanup: %w", err)
		}
	}

	d.startWatcher()

	d.startTime = time.Now()
	d.running = true
	zl := d.logger.GetZerolog()
	zl.Info().Msg("Daemon started")
	return nil
}

// startWatcher begins watching the config file for agent changes. A
// watcher failure is not fatal; reload just stays disabled.
func (d *Daemon) startWatcher() {
	if d.loader == nil {
		return
	}

	zlog := d.logger.GetZerolog()
	watcher, err := config.NewWatcher(d.loader, zlog, func(cfg *config.Config) {
		if err := d.registry.Replace(buildAgents(cfg.Agents)); err != nil {
			zlog.Error().Err(err).Msg("Failed to apply reloaded agents")
			return
		}
		zlog.Info().Strs("agents", d.registry.Names()).Msg("Agents reloaded")
	})
	if err != nil {
		zlog.Warn().Err(err).Msg("Config watcher disabled")
		return
	}
	d.watcher = watcher
}

// Stop gracefully stops all daemon services
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	zlog := d.logger.GetZerolog()
	zlog.Info().Msg("Stopping daemon")

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.cleaner != nil {
		d.cleaner.Stop()
	}

	if err := d.apiServer.Stop(); err != nil {
		zlog.Error().Err(err).Msg("Failed to stop API server")
	}

	if err := d.sessions.Close(); err != nil {
		zlog.Error().Err(err).Msg("Failed to close session store")
	}

	d.running = false
	zlog.Info().Dur("uptime", time.Since(d.startTime)).Msg("Daemon stopped")
	return nil
}

// Run starts the daemon and blocks until the context is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return d.Stop()
}

// Running reports whether the daemon is started
func (d *Daemon) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Uptime returns how long the daemon has been running
func (d *Daemon) Uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return 0
	}
	return time.Since(d.startTime)
}

// buildAgents converts configured agent definitions to registry entries
func buildAgents(configs []config.AgentConfig) []*agent.Agent {
	agents := make([]*agent.Agent, 0, len(configs))
	for _, ac := range configs {
		agents = append(agents, &agent.Agent{
			ID:          ac.ID,
			Name:        ac.Name,
			Model:       ac.Model,
			Description: ac.Description,
			Instruction: ac.Instruction,
			Temperature: ac.Temperature,
			MaxTokens:   ac.MaxTokens,
			Tools:       ac.Tools,
		})
	}
	return agents
}

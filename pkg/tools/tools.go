// Package tools provides the tool registry and built-in tools exposed to
// agents during a run.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/revsup/agentd/pkg/agent"
	"github.com/rs/zerolog"
)

// Tool is a callable capability exposed to the model.
type Tool interface {
	// Name returns the tool name as declared to the model
	Name() string

	// Description returns the tool description
	Description() string

	// InputSchema returns the JSON-schema style parameter description
	InputSchema() map[string]interface{}

	// Execute runs the tool and returns its text output
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds registered tools. It implements agent.ToolExecutor.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	logger    zerolog.Logger
	onExecute func(name string, err error)
}

// NewRegistry creates an empty tool registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %s is already registered", t.Name())
	}
	r.tools[t.Name()] = t

	r.logger.Debug().Str("tool", t.Name()).Msg("Tool registered")
	return nil
}

// Has reports whether a tool is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declarations returns declarations for tools that pass the allowed filter
func (r *Registry) Declarations(allowed func(string) bool) []agent.ToolDecl {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]agent.ToolDecl, 0, len(r.tools))
	for name, t := range r.tools {
		if allowed != nil && !allowed(name) {
			continue
		}
		decls = append(decls, agent.ToolDecl{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// OnExecute registers a callback invoked after every tool execution,
// mainly for metrics.
func (r *Registry) OnExecute(fn func(name string, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExecute = fn
}

// Execute runs a registered tool by name
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	observer := r.onExecute
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	out, err := t.Execute(ctx, args)
	if observer != nil {
		observer(name, err)
	}
	return out, err
}

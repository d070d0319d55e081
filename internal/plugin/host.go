// Package plugin provides the extension point for commands no built-in
// intent handler claims.
//
// Plugins come in two flavours: in-process Go functions registered via
// [Host.RegisterBuiltin], and tools imported from external MCP servers
// (Model Context Protocol, via the official Go SDK) registered via
// [Host.RegisterServer]. The dispatcher consults the chain in registration
// order; the first plugin that claims a command handles it.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/asterbyte/jarvis/internal/config"
	"github.com/asterbyte/jarvis/pkg/types"
)

// pluginConfidence is the confidence attached to plugin responses. Plugins
// self-select by keyword, so they rank above the generic fallback but below
// a confident intent match.
const pluginConfidence = 0.6

// Plugin is one entry in the fallback chain.
type Plugin interface {
	// Name identifies the plugin in logs and response actions.
	Name() string

	// CanHandle reports whether the plugin claims the command.
	CanHandle(command string, entities map[string]string) bool

	// Handle serves the command and returns the spoken reply.
	Handle(ctx context.Context, command string, entities map[string]string) (string, error)
}

// Host owns the plugin chain and the MCP client sessions behind it.
// Safe for concurrent use.
type Host struct {
	mu      sync.RWMutex
	chain   []Plugin
	servers map[string]*mcpsdk.ClientSession

	client *mcpsdk.Client
}

// NewHost returns an empty plugin host.
func NewHost() *Host {
	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "jarvis-plugin-host", Version: "1.0.0"},
		nil,
	)
	return &Host{
		servers: make(map[string]*mcpsdk.ClientSession),
		client:  client,
	}
}

// RegisterBuiltin appends an in-process plugin to the chain.
func (h *Host) RegisterBuiltin(p Plugin) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chain = append(h.chain, p)
}

// RegisterServer connects to the MCP server described by cfg and appends one
// plugin per discovered tool, in the server's listing order. Re-registering a
// server name replaces its previous connection and plugins.
//
// For stdio transport cfg.Command is split on spaces into executable + args
// and cfg.Env is injected into the subprocess environment. For
// streamable-http transport cfg.URL is the endpoint address.
func (h *Host) RegisterServer(ctx context.Context, cfg config.PluginServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("plugin host: server config must have a non-empty name")
	}

	var transport mcpsdk.Transport
	switch cfg.Transport {
	case config.TransportStdio:
		parts := strings.Fields(cfg.Command)
		if len(parts) == 0 {
			return fmt.Errorf("plugin host: stdio server %q requires a non-empty command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case config.TransportStreamableHTTP:
		if cfg.URL == "" {
			return fmt.Errorf("plugin host: streamable-http server %q requires a non-empty url", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}

	default:
		return fmt.Errorf("plugin host: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}

	session, err := h.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("plugin host: failed to connect to server %q: %w", cfg.Name, err)
	}

	var discovered []mcpsdk.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("plugin host: failed to list tools for server %q: %w", cfg.Name, err)
		}
		discovered = append(discovered, *tool)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.servers[cfg.Name]; ok {
		_ = old.Close()
		h.removeServerPluginsLocked(cfg.Name)
	}
	h.servers[cfg.Name] = session

	for _, tool := range discovered {
		h.chain = append(h.chain, &mcpPlugin{
			server:   cfg.Name,
			tool:     tool.Name,
			keywords: toolKeywords(tool.Name, tool.Description),
			session:  session,
		})
		slog.Info("registered plugin tool", "server", cfg.Name, "tool", tool.Name)
	}
	return nil
}

// removeServerPluginsLocked drops all plugins imported from server.
// Caller must hold h.mu.
func (h *Host) removeServerPluginsLocked(server string) {
	kept := h.chain[:0]
	for _, p := range h.chain {
		if mp, ok := p.(*mcpPlugin); ok && mp.server == server {
			continue
		}
		kept = append(kept, p)
	}
	h.chain = kept
}

// Names returns the plugin names in chain order.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.chain))
	for i, p := range h.chain {
		out[i] = p.Name()
	}
	return out
}

// TryPlugins offers the command to each plugin in registration order. The
// first plugin that claims it produces the response; handled is false when
// none claim it.
func (h *Host) TryPlugins(ctx context.Context, command string, entities map[string]string) (types.Response, bool, error) {
	h.mu.RLock()
	chain := make([]Plugin, len(h.chain))
	copy(chain, h.chain)
	h.mu.RUnlock()

	for _, p := range chain {
		if !p.CanHandle(command, entities) {
			continue
		}
		text, err := p.Handle(ctx, command, entities)
		if err != nil {
			return types.Response{}, false, fmt.Errorf("plugin host: plugin %q: %w", p.Name(), err)
		}
		return types.Response{
			Text:       text,
			Action:     "plugin:" + p.Name(),
			Confidence: pluginConfidence,
			Timestamp:  time.Now(),
		}, true, nil
	}
	return types.Response{}, false, nil
}

// Close shuts down all MCP server sessions and clears the chain.
// After Close returns the Host must not be used again.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for name, session := range h.servers {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("plugin host: error closing server %q: %w", name, err)
		}
		delete(h.servers, name)
	}
	h.chain = nil
	return firstErr
}

// Package mcpserve exposes the query evaluator as an MCP (Model Context
// Protocol) server, so IDE-integration agents can ask "what's the
// effective value of this field at this scope" without shelling out to
// the CLI. Mirrors how this stack's own domain engine is exposed over MCP.
package mcpserve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xforge-build/xforge/internal/ratelimit"
	"github.com/xforge-build/xforge/internal/store"
)

// Server wraps the MCP SDK server with xforge's query/explain/parse tools.
type Server struct {
	server   *sdk.Server
	cache    *store.Store
	root     string
	limiters ratelimit.ToolLimiters
}

// Config holds server construction parameters.
type Config struct {
	Name    string // Server name, e.g. "xforge"
	Version string
	Root    string // Project root scripts and path-set fields resolve against
	Cache   *store.Store

	// QueryRatePerMinute and ExplainRatePerMinute override the MCP tool
	// surface's default rate limits (internal/xconfig's MCPConfig). Zero
	// means "use the built-in default."
	QueryRatePerMinute   float64
	ExplainRatePerMinute float64
}

// NewServer creates an MCP server exposing xforge_query, xforge_explain, and
// xforge_parse.
func NewServer(cfg *Config) (*Server, error) {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{})

	s := &Server{
		server: mcpServer,
		cache:  cfg.Cache,
		root:   cfg.Root,
		limiters: ratelimit.NewToolLimiters(ratelimit.Config{
			QueryRatePerMinute:   cfg.QueryRatePerMinute,
			ExplainRatePerMinute: cfg.ExplainRatePerMinute,
		}),
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport. It blocks until the
// client disconnects or the process receives SIGINT/SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

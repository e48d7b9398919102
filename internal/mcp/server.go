package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/voicecart-mcp/internal/catalog"
	"github.com/dshills/voicecart-mcp/internal/metrics"
	"github.com/dshills/voicecart-mcp/internal/orders"
)

const (
	// ServerName is the MCP server name
	ServerName = "voicecart-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// toolHandler executes one tool with decoded JSON arguments
type toolHandler func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)

// toolSpec pairs a tool definition with its handler
type toolSpec struct {
	tool   mcp.Tool
	handle toolHandler
}

// Server wraps the MCP server with the shopping tools
type Server struct {
	mcp     *server.MCPServer
	catalog *catalog.Store
	orders  *orders.Service
	tools   map[string]toolSpec
	names   []string
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records every tool call on rec
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = rec }
}

// NewServer creates a new MCP server instance exposing the catalog and
// order tools
func NewServer(store *catalog.Store, svc *orders.Service, opts ...Option) (*Server, error) {
	if store == nil || svc == nil {
		return nil, errors.New("catalog store and order service are required")
	}

	s := &Server{
		catalog: store,
		orders:  svc,
		tools:   make(map[string]toolSpec),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	specs := []toolSpec{
		{listProductsTool(), s.handleListProducts},
		{createOrderTool(), s.handleCreateOrder},
		{cancelOrderTool(), s.handleCancelOrder},
		{cancelOrderItemTool(), s.handleCancelOrderItem},
		{getTotalSpentTool(), s.handleGetTotalSpent},
		{getTotalTodayTool(), s.handleGetTotalToday},
		{listOrdersTool(), s.handleListOrders},
	}
	for _, spec := range specs {
		if err := s.register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) register(spec toolSpec) error {
	name := spec.tool.Name
	if name == "" {
		return errors.New("tool name is required")
	}
	if _, exists := s.tools[name]; exists {
		return fmt.Errorf("tool %s registered twice", name)
	}

	s.tools[name] = spec
	s.names = append(s.names, name)
	s.mcp.AddTool(spec.tool, s.toolHandlerFunc(name))
	return nil
}

// Tools returns the registered tool definitions in registration order
func (s *Server) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(s.names))
	for _, name := range s.names {
		tools = append(tools, s.tools[name].tool)
	}
	return tools
}

// Call dispatches a tool by name. Domain outcomes such as insufficient stock
// are part of the returned response. A non-nil error is always an *MCPError.
func (s *Server) Call(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	spec, ok := s.tools[name]
	if !ok {
		return nil, &MCPError{
			Code:    ErrorCodeUnknownTool,
			Message: ErrUnknownTool.Error(),
			Data:    map[string]interface{}{"tool": name},
			err:     ErrUnknownTool,
		}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	start := time.Now()
	response, err := spec.handle(ctx, args)
	elapsed := time.Since(start)

	outcome := outcomeOf(response, err)
	s.metrics.ObserveToolCall(name, outcome, elapsed)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", name, "outcome", outcome, "error", err)
	} else {
		s.logger.Debug("tool call", "tool", name, "outcome", outcome, "duration_ms", elapsed.Milliseconds())
	}

	return response, err
}

// toolHandlerFunc adapts Call to the mcp-go handler signature
func (s *Server) toolHandlerFunc(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := argumentsOf(request)
		if err != nil {
			return nil, err
		}

		response, err := s.Call(ctx, name, args)
		if err != nil {
			return nil, err
		}

		result := mcp.NewToolResultText(formatJSON(response))
		if isErrorResponse(response) {
			result.IsError = true
		}
		return result, nil
	}
}

// ServeStdio serves MCP on stdin/stdout until ctx is cancelled
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeHTTP serves MCP over streamable HTTP on addr until ctx is cancelled
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func outcomeOf(response map[string]interface{}, err error) string {
	if err != nil {
		var mcpErr *MCPError
		if errors.As(err, &mcpErr) && mcpErr.Code == ErrorCodeInvalidParams {
			return metrics.OutcomeInvalid
		}
		return metrics.OutcomeError
	}
	if isErrorResponse(response) {
		return metrics.OutcomeRejected
	}
	if _, ok := response["needs_size"]; ok {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeOK
}

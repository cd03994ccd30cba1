package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/zone"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ZonesURI is the resource listing the regions of the default group.
const ZonesURI = "zonerules://zones"

// OffsetArgs are the arguments of zone_offset.
type OffsetArgs struct {
	Zone string `json:"zone"`
	At   string `json:"at,omitempty"`
}

// OffsetResult is the result of zone_offset.
type OffsetResult struct {
	Zone   string `json:"zone" jsonschema_description:"The zone identifier as given"`
	At     string `json:"at" jsonschema_description:"The instant queried, RFC 3339 in UTC"`
	Offset string `json:"offset" jsonschema_description:"The offset in force, e.g. +02:00"`
}

// ResolveArgs are the arguments of resolve_local.
type ResolveArgs struct {
	Zone  string `json:"zone"`
	Local string `json:"local"`
}

// ResolveResult is the result of resolve_local.
type ResolveResult struct {
	Zone       string   `json:"zone" jsonschema_description:"The zone identifier as given"`
	Local      string   `json:"local" jsonschema_description:"The local date-time resolved"`
	Kind       string   `json:"kind" jsonschema_description:"normal, gap or overlap"`
	Offsets    []string `json:"offsets" jsonschema_description:"Valid offsets, earlier instant first"`
	Transition string   `json:"transition,omitempty" jsonschema_description:"The transition causing a gap or overlap"`
}

// TransitionsArgs are the arguments of list_transitions.
type TransitionsArgs struct {
	Zone string `json:"zone"`
	From string `json:"from"`
	To   string `json:"to"`
}

// TransitionsResult is the result of list_transitions.
type TransitionsResult struct {
	Zone        string   `json:"zone" jsonschema_description:"The zone identifier as given"`
	Transitions []string `json:"transitions" jsonschema_description:"Transitions in the range, oldest first"`
}

// Server wraps a zonerules.Service and exposes it as an MCP Server.
type Server struct {
	svc       *zonerules.Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
	now       func() time.Time
}

// NewServer creates a new MCP Server instance.
func NewServer(svc *zonerules.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:       svc,
		logger:    logger,
		mcpServer: server.NewMCPServer("zonerules-mcp", strings.TrimSpace(zonerules.Version)),
		now:       time.Now,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: zone_offset
	s.mcpServer.AddTool(mcp.NewTool("zone_offset",
		mcp.WithDescription("Get the UTC offset in force in a zone at an instant."),
		mcp.WithString("zone", mcp.Required(), mcp.Description("Zone identifier, e.g. Europe/Paris, TZDB:Europe/Paris#2019a or UTC+05:30")),
		mcp.WithString("at", mcp.Description("RFC 3339 instant (defaults to now)")),
		mcp.WithOutputSchema[OffsetResult](),
	), mcp.NewStructuredToolHandler(s.handleOffset))

	// TOOL: resolve_local
	s.mcpServer.AddTool(mcp.NewTool("resolve_local",
		mcp.WithDescription("Classify a wall-clock date-time as normal, gap or overlap and list its valid offsets."),
		mcp.WithString("zone", mcp.Required(), mcp.Description("Zone identifier")),
		mcp.WithString("local", mcp.Required(), mcp.Description("Local date-time, e.g. 2019-03-31T02:30")),
		mcp.WithOutputSchema[ResolveResult](),
	), mcp.NewStructuredToolHandler(s.handleResolve))

	// TOOL: list_transitions
	s.mcpServer.AddTool(mcp.NewTool("list_transitions",
		mcp.WithDescription("List the offset transitions of a zone between two instants."),
		mcp.WithString("zone", mcp.Required(), mcp.Description("Zone identifier")),
		mcp.WithString("from", mcp.Required(), mcp.Description("RFC 3339 start, inclusive")),
		mcp.WithString("to", mcp.Required(), mcp.Description("RFC 3339 end, exclusive")),
		mcp.WithOutputSchema[TransitionsResult](),
	), mcp.NewStructuredToolHandler(s.handleTransitions))
}

func (s *Server) handleOffset(ctx context.Context, request mcp.CallToolRequest, args OffsetArgs) (OffsetResult, error) {
	at := s.now()
	if args.At != "" {
		parsed, err := time.Parse(time.RFC3339, args.At)
		if err != nil {
			return OffsetResult{}, fmt.Errorf("%w: at must be RFC 3339, got %q", domain.ErrInvalidArgument, args.At)
		}
		at = parsed
	}

	off, err := s.svc.Offset(ctx, args.Zone, at)
	if err != nil {
		s.logger.Warn("MCP zone_offset failed", "zone", args.Zone, "err", err)
		return OffsetResult{}, err
	}
	return OffsetResult{Zone: args.Zone, At: at.UTC().Format(time.RFC3339), Offset: off.ID()}, nil
}

func (s *Server) handleResolve(ctx context.Context, request mcp.CallToolRequest, args ResolveArgs) (ResolveResult, error) {
	local, err := domain.ParseLocalDateTime(args.Local)
	if err != nil {
		return ResolveResult{}, err
	}
	info, err := s.svc.Resolve(ctx, args.Zone, local)
	if err != nil {
		s.logger.Warn("MCP resolve_local failed", "zone", args.Zone, "err", err)
		return ResolveResult{}, err
	}

	res := ResolveResult{Zone: args.Zone, Local: local.String(), Kind: info.Kind().String(), Offsets: []string{}}
	for _, off := range info.ValidOffsets() {
		res.Offsets = append(res.Offsets, off.ID())
	}
	if t, ok := info.Transition(); ok {
		res.Transition = t.String()
	}
	return res, nil
}

func (s *Server) handleTransitions(ctx context.Context, request mcp.CallToolRequest, args TransitionsArgs) (TransitionsResult, error) {
	from, err := time.Parse(time.RFC3339, args.From)
	if err != nil {
		return TransitionsResult{}, fmt.Errorf("%w: from must be RFC 3339, got %q", domain.ErrInvalidArgument, args.From)
	}
	to, err := time.Parse(time.RFC3339, args.To)
	if err != nil {
		return TransitionsResult{}, fmt.Errorf("%w: to must be RFC 3339, got %q", domain.ErrInvalidArgument, args.To)
	}

	ts, err := s.svc.Transitions(ctx, args.Zone, from, to)
	if err != nil {
		return TransitionsResult{}, err
	}
	res := TransitionsResult{Zone: args.Zone, Transitions: make([]string, 0, len(ts))}
	for _, t := range ts {
		res.Transitions = append(res.Transitions, t.String())
	}
	return res, nil
}

func (s *Server) registerResources() {
	// EXPOSE: zonerules://zones
	s.mcpServer.AddResource(mcp.NewResource(ZonesURI, "Known zones",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		zones, err := s.svc.Zones(ctx, zone.DefaultGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to list zones: %w", err)
		}
		jsonBytes, _ := json.Marshal(zones)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ZonesURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// Package mcp exposes the assistant as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/eora"
	httpadapter "github.com/aretw0/eora/pkg/adapters/http"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	examplesURI = "eora://examples"
	levelsURI   = "eora://levels"
)

// AskArgs are the arguments of the ask tool.
type AskArgs struct {
	Question  string `json:"question"`
	Level     string `json:"level,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse aligns with the HTTP Reply and is returned as structured content.
type AskResponse struct {
	SessionID string            `json:"session_id" jsonschema_description:"Session the exchange was recorded in"`
	Answer    string            `json:"answer" jsonschema_description:"Answer text formatted for the requested level"`
	Sources   []domain.Metadata `json:"sources" jsonschema_description:"Metadata of the chunks used as context"`
	IsError   bool              `json:"is_error" jsonschema_description:"True when generation failed and answer holds the error text"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// Server wraps the assistant and exposes it as an MCP Server.
type Server struct {
	assistant ports.Assistant
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(assistant ports.Assistant, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		assistant: assistant,
		logger:    logger,
		mcpServer: server.NewMCPServer("eora-mcp", strings.TrimSpace(eora.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	s.logger.Info("MCP Server listening (SSE)", "address", addr)
	return httpadapter.ListenAndServe(ctx, addr, mux, 5*time.Second)
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
	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Ask the EORA assistant a question about the company's projects and services."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in natural language")),
		mcp.WithString("level", mcp.Enum("easy", "medium", "hard"),
			mcp.Description("Citation style: easy (none), medium (list of sources), hard (inline [n])")),
		mcp.WithString("session_id", mcp.Description("Session to record the exchange in (optional)")),
		mcp.WithOutputSchema[AskResponse](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Get the conversation recorded for a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), mcp.NewTypedToolHandler(s.handleHistory))

	s.mcpServer.AddTool(mcp.NewTool("clear_history",
		mcp.WithDescription("Remove every message of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), mcp.NewTypedToolHandler(s.handleClear))

	s.mcpServer.AddTool(mcp.NewTool("examples",
		mcp.WithDescription("List suggested questions."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(strings.Join(s.assistant.Examples(), "\n")), nil
	})
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args AskArgs) (AskResponse, error) {
	level, err := domain.ParseComplexity(args.Level)
	if err != nil {
		return AskResponse{}, err
	}

	reply, err := s.assistant.Ask(ctx, args.SessionID, args.Question, level)
	if err != nil {
		s.logger.Warn("MCP Ask: question rejected", "err", err, "size", len(args.Question))
		return AskResponse{}, fmt.Errorf("ask failed: %w", err)
	}

	sources := reply.Message.Sources
	if sources == nil {
		sources = []domain.Metadata{}
	}
	return AskResponse{
		SessionID: reply.SessionID,
		Answer:    reply.Formatted,
		Sources:   sources,
		IsError:   reply.Message.IsError,
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	conv, err := s.assistant.History(ctx, args.SessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(conv)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("history encoding failed", err), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleClear(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	if err := s.assistant.Clear(ctx, args.SessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("clear failed: %v", err)), nil
	}
	return mcp.NewToolResultText("История очищена"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(examplesURI, "Example Questions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(examplesURI, s.assistant.Examples())
	})

	s.mcpServer.AddResource(mcp.NewResource(levelsURI, "Complexity Levels",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		levels := make(map[string]string)
		for _, l := range domain.Levels() {
			levels[string(l)] = l.Label()
		}
		return jsonResource(levelsURI, levels)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

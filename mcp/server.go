// Package mcp serves the memory tool over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"

	"github.com/deepnoodle-ai/memfs/log"
	"github.com/deepnoodle-ai/memfs/toolkit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// ServerName is reported to MCP clients during initialization.
	ServerName = "memfs"
	// ServerVersion is reported to MCP clients during initialization.
	ServerVersion = "0.1.0"
)

// ServerOptions configure NewServer.
type ServerOptions struct {
	Name    string
	Version string
	Logger  log.Logger
}

// NewServer returns an MCP server exposing tool as a single MCP tool. The
// tool's schema is passed through unchanged as the MCP input schema.
func NewServer(tool *toolkit.MemoryTool, opts ServerOptions) (*server.MCPServer, error) {
	if opts.Name == "" {
		opts.Name = ServerName
	}
	if opts.Version == "" {
		opts.Version = ServerVersion
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNullLogger()
	}
	definition, err := ToolDefinition(tool)
	if err != nil {
		return nil, err
	}
	srv := server.NewMCPServer(opts.Name, opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	srv.AddTool(definition, Handler(tool))
	opts.Logger.Debug("mcp server configured", "tool", definition.Name)
	return srv, nil
}

// ToolDefinition converts the memory tool into an MCP tool definition. The
// schema must compile as JSON Schema since clients validate against it.
func ToolDefinition(tool *toolkit.MemoryTool) (mcp.Tool, error) {
	schemaJSON, err := json.Marshal(tool.Schema())
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to encode memory tool schema: %w", err)
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON)); err != nil {
		return mcp.Tool{}, fmt.Errorf("memory tool schema is not valid JSON Schema: %w", err)
	}
	definition := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schemaJSON)
	annotations := tool.Annotations()
	definition.Annotations = mcp.ToolAnnotation{
		Title:           annotations.Title,
		ReadOnlyHint:    mcp.ToBoolPtr(annotations.ReadOnlyHint),
		DestructiveHint: mcp.ToBoolPtr(annotations.DestructiveHint),
		IdempotentHint:  mcp.ToBoolPtr(annotations.IdempotentHint),
		OpenWorldHint:   mcp.ToBoolPtr(annotations.OpenWorldHint),
	}
	return definition, nil
}

// Handler runs MCP tool calls through the memory tool. Command failures are
// returned as tool errors so the model can see and correct them.
func Handler(tool *toolkit.MemoryTool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		envelope := tool.Execute(ctx, req.GetArguments())
		if !envelope.Success {
			return mcp.NewToolResultError(envelope.Text()), nil
		}
		return mcp.NewToolResultText(envelope.Output), nil
	}
}

// ServeStdio serves srv on the given streams until ctx is cancelled or in
// is closed. Transport errors are written to errOut, never to out.
func ServeStdio(ctx context.Context, srv *server.MCPServer, in io.Reader, out, errOut io.Writer) error {
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(stdlog.New(errOut, "memfs-mcp: ", stdlog.LstdFlags))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

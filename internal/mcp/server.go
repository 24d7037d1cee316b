// Package mcp exposes the ELI5 pipeline as a Model Context Protocol tool
// server, so MCP clients can summarize a video without the web UI.
package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
	sdk_server "github.com/mark3labs/mcp-go/server"

	"github.com/pocketomega/pocket-eli5/internal/pipeline"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

const (
	serverName = "pocket-eli5"

	// ToolSummarize is the name of the single tool the server registers.
	ToolSummarize = "eli5_summarize"
)

// Runner executes the pipeline for one URL.
type Runner func(ctx context.Context, url string) (*pipeline.State, error)

// NewServer creates an MCP server with the eli5_summarize tool registered.
func NewServer(run Runner, version string) *sdk_server.MCPServer {
	srv := sdk_server.NewMCPServer(serverName, version,
		sdk_server.WithToolCapabilities(false),
		sdk_server.WithRecovery(),
	)

	tool := sdk_mcp.NewTool(ToolSummarize,
		sdk_mcp.WithDescription("Summarizes a YouTube video for a five-year-old. "+
			"Extracts the main topics from the transcript, asks and answers simple "+
			"questions about each, and returns the result as an HTML page."),
		sdk_mcp.WithString("url",
			sdk_mcp.Required(),
			sdk_mcp.Description("YouTube video URL or 11-character video id"),
		),
	)
	srv.AddTool(tool, summarizeHandler(run))
	return srv
}

// ServeStdio runs srv over stdin/stdout until the client disconnects.
func ServeStdio(srv *sdk_server.MCPServer) error {
	log.Printf("[MCP] Serving %s over stdio", ToolSummarize)
	return sdk_server.ServeStdio(srv)
}

// summarizeHandler returns tool-level failures as IsError results rather
// than protocol errors, so clients can show the message.
func summarizeHandler(run Runner) sdk_server.ToolHandlerFunc {
	return func(ctx context.Context, req sdk_mcp.CallToolRequest) (*sdk_mcp.CallToolResult, error) {
		url := strings.TrimSpace(req.GetString("url", ""))
		if url == "" {
			return sdk_mcp.NewToolResultError("url is required"), nil
		}
		if _, err := youtube.ExtractVideoID(url); err != nil {
			return sdk_mcp.NewToolResultError(err.Error()), nil
		}

		state, err := run(ctx, url)
		if err != nil {
			log.Printf("[MCP] %s %s failed: %v", ToolSummarize, url, err)
			return sdk_mcp.NewToolResultError(fmt.Sprintf("summarize failed: %v", err)), nil
		}

		return &sdk_mcp.CallToolResult{
			Content: []sdk_mcp.Content{
				sdk_mcp.NewTextContent(summaryLine(state)),
				sdk_mcp.NewTextContent(state.HTML),
			},
		}, nil
	}
}

func summaryLine(state *pipeline.State) string {
	line := fmt.Sprintf("%s: %d topic(s)", state.VideoInfo.Title, len(state.Topics))
	if state.VideoInfo.Error != "" {
		line += " (" + state.VideoInfo.Error + ")"
	}
	return line
}

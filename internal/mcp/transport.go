package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. The docchat tools never call
	// back into the client, so the server runs stateless by default.
	Stateless bool
	// JSONResponse answers with application/json instead of an SSE stream.
	JSONResponse bool
}

// DefaultHTTPHandlerOptions returns the options used by cmd/server.
func DefaultHTTPHandlerOptions() *HTTPHandlerOptions {
	return &HTTPHandlerOptions{Stateless: true}
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable HTTP transport.
// It is mounted next to the REST API:
//
//	router := api.NewRouter(handler)
//	router.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = DefaultHTTPHandlerOptions()
	}

	sdkOpts := &mcp.StreamableHTTPOptions{
		Stateless:    opts.Stateless,
		JSONResponse: opts.JSONResponse,
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, sdkOpts)
}

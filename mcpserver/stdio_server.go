// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServeStdio runs the MCP server over stdin/stdout until the context is
// canceled or the transport closes. This is the transport MCP clients use
// when they launch the server as a subprocess.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package mcpserver

import (
	"context"
	"runtime/debug"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CreateInMemoryConnection starts the server on one side of an in-memory
// transport pair and returns the client side. The server goroutine runs
// until the transport is closed or the context is canceled.
func (s *Server) CreateInMemoryConnection(ctx context.Context) *mcp.InMemoryTransport {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("MCP server panicked",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()

		if err := s.mcpServer.Run(ctx, serverTransport); err != nil {
			s.logger.Warn("In-memory MCP server stopped", "error", err)
		}
	}()

	return clientTransport
}

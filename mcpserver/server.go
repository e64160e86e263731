// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package mcpserver exposes the provider dispatcher as an MCP tool endpoint
// over stdio, streamable HTTP, and in-memory transports.
package mcpserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mattermost/omnisearch/dispatcher"
	loggerlib "github.com/mattermost/omnisearch/mcpserver/logger"
)

const serverName = "omnisearch"

// Server wraps an MCP server with the omnisearch tool set. All transports
// share the same underlying server instance.
type Server struct {
	mcpServer  *mcp.Server
	dispatcher *dispatcher.Dispatcher
	logger     loggerlib.Logger
}

// New creates an MCP server whose tools route through the given dispatcher.
func New(d *dispatcher.Dispatcher, version string, logger loggerlib.Logger) *Server {
	if logger == nil {
		logger = loggerlib.NewNop()
	}

	s := &Server{
		dispatcher: d,
		logger:     logger,
	}

	s.mcpServer = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil,
	)
	s.registerTools()

	return s
}

// MCPServer returns the underlying MCP server, primarily for tests that
// connect over an in-memory transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Package mcp exposes the knowledge base, warranty registry and ticket
// lookup to agents over the Model Context Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/giho-tech/helpdesk/internal/knowledge"
	"github.com/giho-tech/helpdesk/internal/tickets"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

// Version is set via ldflags at build time.
var Version = "dev"

// SolutionSearcher finds knowledge-base entries. knowledge.Store implements it.
type SolutionSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Solution, error)
}

// TicketGetter loads a ticket by id. tickets.Store implements it.
type TicketGetter interface {
	Get(ctx context.Context, id string) (*tickets.Ticket, error)
}

// Server wraps an MCP server with the helpdesk tools.
type Server struct {
	solutions SolutionSearcher
	warranty  warranty.Checker
	tickets   TicketGetter
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. A nil warranty checker leaves the
// check_warranty tool unregistered.
func NewServer(solutions SolutionSearcher, checker warranty.Checker, ticketStore TicketGetter) *Server {
	s := &Server{
		solutions: solutions,
		warranty:  checker,
		tickets:   ticketStore,
	}

	s.mcp = server.NewMCPServer(
		"helpdesk",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchSolutionsTool, s.handleSearchSolutions)
	if s.warranty != nil {
		s.mcp.AddTool(checkWarrantyTool, s.handleCheckWarranty)
	}
	s.mcp.AddTool(getTicketTool, s.handleGetTicket)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

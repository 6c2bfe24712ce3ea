package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giho-tech/helpdesk/internal/knowledge"
	"github.com/giho-tech/helpdesk/internal/tickets"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

func (s *Server) handleSearchSolutions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", knowledge.DefaultLimit)
	if limit <= 0 {
		limit = knowledge.DefaultLimit
	}

	sols, err := s.solutions.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(sols) == 0 {
		return mcp.NewToolResultText("No matching solutions. Run `helpdesk seed` if the knowledge base is empty."), nil
	}

	return mcp.NewToolResultText(formatSolutions(sols)), nil
}

func (s *Server) handleCheckWarranty(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phone, err := request.RequireString("phone")
	if err != nil || strings.TrimSpace(phone) == "" {
		return mcp.NewToolResultError("missing required parameter: phone"), nil
	}

	res := s.warranty.Check(ctx, strings.TrimSpace(phone))
	return mcp.NewToolResultText(formatWarranty(res)), nil
}

func (s *Server) handleGetTicket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	t, err := s.tickets.Get(ctx, id)
	if errors.Is(err, tickets.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No ticket with id %q.", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load ticket: %v", err)), nil
	}

	return mcp.NewToolResultText(formatTicket(t)), nil
}

func formatSolutions(sols []knowledge.Solution) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d solution(s):\n", len(sols))
	for i, sol := range sols {
		fmt.Fprintf(&sb, "\n--- Solution %d ---\n", i+1)
		fmt.Fprintf(&sb, "ID: %s\nTitle: %s\nKeywords: %s\n", sol.ID, sol.Title, sol.Keywords)
		if sol.VideoURL != "" {
			fmt.Fprintf(&sb, "Video: %s\n", sol.VideoURL)
		}
		sb.WriteString("\n")
		sb.WriteString(sol.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatWarranty(res warranty.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Warranty: %s (%s)\n", res.Status, res.Status.Label())
	for _, p := range res.Products {
		fmt.Fprintf(&sb, "- %s: %d months, expires %s, %d days left\n", p.Name, p.WarrantyMonths, p.ExpireDate, p.DaysLeft)
	}
	return sb.String()
}

func formatTicket(t *tickets.Ticket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ticket %s\n", t.ID)
	fmt.Fprintf(&sb, "Status: %s\n", t.Status)
	fmt.Fprintf(&sb, "Customer: %s\n", t.CustomerName)
	if t.Phone != "" {
		fmt.Fprintf(&sb, "Phone: %s\n", t.Phone)
	}
	if t.WarrantyStatus != "" {
		fmt.Fprintf(&sb, "Warranty: %s\n", t.WarrantyStatus.Label())
	}
	if t.AttachmentURL != "" {
		fmt.Fprintf(&sb, "Attachment (%s): %s\n", t.AttachmentKind, t.AttachmentURL)
	}
	fmt.Fprintf(&sb, "Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
	sb.WriteString("\n")
	sb.WriteString(t.Description)
	sb.WriteString("\n")
	return sb.String()
}

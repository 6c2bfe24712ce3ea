package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchSolutionsTool = mcp.NewTool("search_solutions",
	mcp.WithDescription("Search the robot troubleshooting knowledge base by keyword. Matches title, keywords and description."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Keyword or phrase, e.g. \"không sạc\""),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 3)"),
	),
)

var checkWarrantyTool = mcp.NewTool("check_warranty",
	mcp.WithDescription("Look up warranty coverage for a customer's phone number in the GIHO registry."),
	mcp.WithString("phone",
		mcp.Required(),
		mcp.Description("Customer phone number, 9 to 11 digits"),
	),
)

var getTicketTool = mcp.NewTool("get_ticket",
	mcp.WithDescription("Get a support ticket by id, including warranty status and attachment link."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Ticket id"),
	),
)

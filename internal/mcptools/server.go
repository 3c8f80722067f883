// Package mcptools exposes the project database to MCP clients: an
// AI agent on the operator's machine can list projects, pull status and
// budget figures, search the message history and ask the RAG pipeline.
package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/rag"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

// getArgs extracts arguments from request as map[string]any
func getArgs(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return make(map[string]any)
}

func argInt64(args map[string]any, name string) (int64, error) {
	v, ok := args[name].(float64)
	if !ok || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return int64(v), nil
}

type Server struct {
	mcpServer *server.MCPServer
	repo      *repo.Repo
	rag       *rag.Service
}

func NewServer(r *repo.Repo, ragSvc *rag.Service) *Server {
	s := &Server{repo: r, rag: ragSvc}

	mcpServer := server.NewMCPServer(
		"renovabot",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

// ServeStdio blocks serving the stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	listTool := mcp.NewTool("list_projects",
		mcp.WithDescription("List active renovation projects with id, name, type and chat binding"),
	)
	mcpServer.AddTool(listTool, s.handleListProjects)

	statusTool := mcp.NewTool("project_status",
		mcp.WithDescription("Stage-by-stage status of one project"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project id from list_projects"),
		),
	)
	mcpServer.AddTool(statusTool, s.handleProjectStatus)

	budgetTool := mcp.NewTool("budget_summary",
		mcp.WithDescription("Budget totals and per-category spending of one project"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project id from list_projects"),
		),
	)
	mcpServer.AddTool(budgetTool, s.handleBudgetSummary)

	searchTool := mcp.NewTool("search_messages",
		mcp.WithDescription("Full-text search over a project's chat history"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project id from list_projects"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearchMessages)

	changesTool := mcp.NewTool("recent_changes",
		mcp.WithDescription("Audit trail of recent stage, payment and budget changes in one project"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project id from list_projects"),
		),
	)
	mcpServer.AddTool(changesTool, s.handleRecentChanges)

	askTool := mcp.NewTool("ask_project",
		mcp.WithDescription("Ask a question about a project, answered from its history and state"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project id from list_projects"),
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)
	mcpServer.AddTool(askTool, s.handleAskProject)
}

func (s *Server) handleListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.repo.GetActiveProjects(ctx, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(projects) == 0 {
		return mcp.NewToolResultText("No active projects."), nil
	}
	var sb strings.Builder
	for _, p := range projects {
		fmt.Fprintf(&sb, "#%d %s (%s)", p.ID, p.Name, p.RenovationType)
		if p.TelegramChatID != nil {
			fmt.Fprintf(&sb, " [chat %d]", *p.TelegramChatID)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleProjectStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := argInt64(getArgs(request), "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stages, err := s.repo.GetProjectStages(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := domain.BuildStatusReport(project.Name, stages, time.Now().UTC())
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d/%d stages completed (%.0f%%)\n\n",
		r.ProjectName, r.Completed, r.Total, r.ProgressPct)
	for _, st := range r.Stages {
		fmt.Fprintf(&sb, "- %s: %s", st.Name, st.StatusLabel)
		if st.EndDate != "" && st.EndDate != "—" {
			fmt.Fprintf(&sb, " (until %s)", st.EndDate)
		}
		if st.IsOverdue {
			sb.WriteString(" OVERDUE")
		}
		sb.WriteString("\n")
	}
	messages, err := s.repo.CountProjectMessages(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	embeddings, err := s.repo.CountEmbeddings(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fmt.Fprintf(&sb, "\nChat: %d messages, %d indexed", messages, embeddings)
	if last, err := s.repo.LastMessageAt(ctx, projectID); err == nil && last != nil {
		fmt.Fprintf(&sb, ", last activity %s", last.Format("2006-01-02 15:04"))
	}
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleRecentChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := argInt64(getArgs(request), "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logs, err := s.repo.GetChangeLogs(ctx, projectID, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(logs) == 0 {
		return mcp.NewToolResultText("No recorded changes."), nil
	}
	str := func(p *string) string {
		if p == nil {
			return "-"
		}
		return *p
	}
	var sb strings.Builder
	for _, l := range logs {
		fmt.Fprintf(&sb, "%s %s#%d %s: %s -> %s\n",
			l.CreatedAt.Format("2006-01-02 15:04"),
			l.EntityType, l.EntityID, l.FieldName, str(l.OldValue), str(l.NewValue))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleBudgetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := argInt64(getArgs(request), "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	totals, err := s.repo.GetBudgetTotals(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	categories, err := s.repo.GetCategorySummaries(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nSpent: %s ₸ across %d items (%d confirmed)\n",
		project.Name, domain.FormatAmount(totals.TotalSpent), totals.ItemCount, totals.ConfirmedCount)
	ba := domain.AnalyzeBudget(project.TotalBudget, totals.TotalSpent)
	if ba.HasBudget {
		fmt.Fprintf(&sb, "Budget usage: %.0f%%, remaining %s ₸\n", ba.UsagePct, domain.FormatAmount(ba.Remaining))
	}
	if len(categories) > 0 {
		sb.WriteString("\nBy category:\n")
		for _, c := range categories {
			fmt.Fprintf(&sb, "- %s: %s ₸\n", domain.CategoryLabel(c.Category), domain.FormatAmount(c.Total))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSearchMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	projectID, err := argInt64(args, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must be a non-empty string"), nil
	}

	hits, err := s.repo.SearchFTS(ctx, projectID, query, 10)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No matches."), nil
	}
	var sb strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, h.Content)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleAskProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	projectID, err := argInt64(args, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, _ := args["question"].(string)
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question must be a non-empty string"), nil
	}
	if s.rag == nil {
		return mcp.NewToolResultError("AI provider is not configured"), nil
	}
	answer, cached, err := s.rag.Ask(ctx, projectID, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cached {
		answer += "\n\n(cached answer)"
	}
	return mcp.NewToolResultText(answer), nil
}

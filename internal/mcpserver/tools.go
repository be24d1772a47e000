package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolOutlineRouter  = "outline_router"
	ToolSyncRepository = "sync_repository"
	ToolReadRules      = "read_rules"
	ToolCopyScripts    = "copy_scripts"
)

type noArgs struct{}

type readRulesArgs struct {
	RuleNames []string `json:"rule_names" jsonschema:"Rule aliases from router.yaml rules section. Example: [\"rule1\", \"rule_security\"]"`
}

type copyScriptsArgs struct {
	ScriptNames []string `json:"script_names" jsonschema:"Script aliases from router.yaml scripts section."`
}

type tools struct {
	svc PolicyService
	log *slog.Logger
}

func boolPtr(b bool) *bool { return &b }

func registerTools(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolOutlineRouter,
		Description: "Parse and return router.yaml contents as markdown text.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:   true,
			IdempotentHint: true,
			OpenWorldHint:  boolPtr(false),
		},
	}, t.outlineRouter)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSyncRepository,
		Description: "Force repository synchronization to refresh local cache now.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:   false,
			IdempotentHint: true,
			OpenWorldHint:  boolPtr(false),
		},
	}, t.syncRepository)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolReadRules,
		Description: "Read selected rules and return a combined markdown document.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:   true,
			IdempotentHint: true,
			OpenWorldHint:  boolPtr(false),
		},
	}, t.readRules)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolCopyScripts,
		Description: "Copy selected scripts to a temporary directory for execution.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    false,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, t.copyScripts)
}

func (t *tools) outlineRouter(ctx context.Context, _ *mcp.CallToolRequest, _ noArgs) (*mcp.CallToolResult, any, error) {
	text, err := t.svc.OutlineRouter(ctx)
	if err != nil {
		return t.failure(ToolOutlineRouter, err), nil, nil
	}
	return textResult(text), nil, nil
}

func (t *tools) syncRepository(ctx context.Context, _ *mcp.CallToolRequest, _ noArgs) (*mcp.CallToolResult, any, error) {
	status, err := t.svc.SyncRepository(ctx)
	if err != nil {
		return t.failure(ToolSyncRepository, err), nil, nil
	}
	return jsonResult(status)
}

func (t *tools) readRules(ctx context.Context, _ *mcp.CallToolRequest, in readRulesArgs) (*mcp.CallToolResult, any, error) {
	text, err := t.svc.ReadRules(ctx, in.RuleNames)
	if err != nil {
		return t.failure(ToolReadRules, err), nil, nil
	}
	return textResult(text), nil, nil
}

func (t *tools) copyScripts(ctx context.Context, _ *mcp.CallToolRequest, in copyScriptsArgs) (*mcp.CallToolResult, any, error) {
	copied, err := t.svc.CopyScripts(ctx, in.ScriptNames)
	if err != nil {
		return t.failure(ToolCopyScripts, err), nil, nil
	}
	return jsonResult(copied)
}

// failure reports err to the client as a tool error so the agent can react
// to it instead of seeing a protocol error.
func (t *tools) failure(tool string, err error) *mcp.CallToolResult {
	t.log.Warn("tool call failed", "tool", tool, "error", err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}, nil, nil
}

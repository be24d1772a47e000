package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbout22/policygate/internal/policy"
)

// stubService records the names it was called with.
type stubService struct {
	outline   string
	rules     string
	copied    *policy.CopiedScripts
	err       error
	ruleNames []string
	synced    int
}

func (s *stubService) OutlineRouter(context.Context) (string, error) {
	return s.outline, s.err
}

func (s *stubService) SyncRepository(context.Context) (map[string]string, error) {
	s.synced++
	if s.err != nil {
		return nil, s.err
	}
	return map[string]string{"status": "synced"}, nil
}

func (s *stubService) ReadRules(_ context.Context, names []string) (string, error) {
	s.ruleNames = names
	return s.rules, s.err
}

func (s *stubService) CopyScripts(_ context.Context, names []string) (*policy.CopiedScripts, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.copied, nil
}

func connect(t *testing.T, svc PolicyService) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := New(svc, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func listTools(t *testing.T, cs *mcp.ClientSession) map[string]*mcp.Tool {
	t.Helper()
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	out := make(map[string]*mcp.Tool, len(res.Tools))
	for _, tool := range res.Tools {
		out[tool.Name] = tool
	}
	return out
}

// schemaOf decodes a tool input schema into plain maps.
func schemaOf(t *testing.T, tool *mcp.Tool) map[string]any {
	t.Helper()
	data, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	return schema
}

// hasType accepts both "array" and ["null", "array"] style type keywords.
func hasType(v any, want string) bool {
	switch typ := v.(type) {
	case string:
		return typ == want
	case []any:
		for _, item := range typ {
			if item == want {
				return true
			}
		}
	}
	return false
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return res, text.Text
}

// --- Registration ---

func TestTools_Registered(t *testing.T) {
	t.Parallel()

	tools := listTools(t, connect(t, &stubService{}))
	for _, name := range []string{ToolOutlineRouter, ToolSyncRepository, ToolReadRules, ToolCopyScripts} {
		tool, ok := tools[name]
		require.True(t, ok, "tool %s not registered", name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", schemaOf(t, tool)["type"])
	}
	assert.Len(t, tools, 4)
}

func TestTools_NameListSchemas(t *testing.T) {
	t.Parallel()

	tools := listTools(t, connect(t, &stubService{}))
	cases := []struct {
		tool  string
		field string
	}{
		{ToolReadRules, "rule_names"},
		{ToolCopyScripts, "script_names"},
	}
	for _, tc := range cases {
		schema := schemaOf(t, tools[tc.tool])
		props, ok := schema["properties"].(map[string]any)
		require.True(t, ok, "%s has no properties", tc.tool)

		field, ok := props[tc.field].(map[string]any)
		require.True(t, ok, "%s has no %s property", tc.tool, tc.field)
		assert.True(t, hasType(field["type"], "array"), "%s.%s type = %v", tc.tool, tc.field, field["type"])
		assert.NotEmpty(t, field["description"])

		items, ok := field["items"].(map[string]any)
		require.True(t, ok, "%s.%s has no items", tc.tool, tc.field)
		assert.True(t, hasType(items["type"], "string"), "%s.%s items type = %v", tc.tool, tc.field, items["type"])
	}
}

func TestTools_Annotations(t *testing.T) {
	t.Parallel()

	tools := listTools(t, connect(t, &stubService{}))
	cases := []struct {
		tool       string
		readOnly   bool
		idempotent bool
	}{
		{ToolOutlineRouter, true, true},
		{ToolSyncRepository, false, true},
		{ToolReadRules, true, true},
		{ToolCopyScripts, false, false},
	}
	for _, tc := range cases {
		a := tools[tc.tool].Annotations
		require.NotNil(t, a, tc.tool)
		assert.Equal(t, tc.readOnly, a.ReadOnlyHint, "%s readOnly", tc.tool)
		assert.Equal(t, tc.idempotent, a.IdempotentHint, "%s idempotent", tc.tool)
		require.NotNil(t, a.OpenWorldHint, tc.tool)
		assert.False(t, *a.OpenWorldHint, "%s openWorld", tc.tool)
	}

	destructive := tools[ToolCopyScripts].Annotations.DestructiveHint
	require.NotNil(t, destructive)
	assert.False(t, *destructive)
}

// --- Calls ---

func TestCall_OutlineRouter(t *testing.T) {
	t.Parallel()

	cs := connect(t, &stubService{outline: "# Router Outline\n"})
	res, text := callText(t, cs, ToolOutlineRouter, map[string]any{})
	assert.False(t, res.IsError)
	assert.Equal(t, "# Router Outline\n", text)
}

func TestCall_ReadRulesPassesNames(t *testing.T) {
	t.Parallel()

	svc := &stubService{rules: "## style\n"}
	cs := connect(t, svc)
	res, text := callText(t, cs, ToolReadRules, map[string]any{"rule_names": []string{"style", "security"}})
	assert.False(t, res.IsError)
	assert.Equal(t, "## style\n", text)
	assert.Equal(t, []string{"style", "security"}, svc.ruleNames)
}

func TestCall_SyncRepository(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	cs := connect(t, svc)
	res, text := callText(t, cs, ToolSyncRepository, map[string]any{})
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"status":"synced"}`, text)
	assert.Equal(t, 1, svc.synced)
}

func TestCall_CopyScripts(t *testing.T) {
	t.Parallel()

	svc := &stubService{copied: &policy.CopiedScripts{
		DestinationDirectory: "/tmp/policygate-scripts-1",
		CopiedFiles:          []string{"/tmp/policygate-scripts-1/lint.sh"},
	}}
	cs := connect(t, svc)
	res, text := callText(t, cs, ToolCopyScripts, map[string]any{"script_names": []string{"lint"}})
	assert.False(t, res.IsError)

	var got policy.CopiedScripts
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, *svc.copied, got)
}

func TestCall_ServiceErrorIsToolError(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: &policy.ReferenceError{Kind: "rule", Aliases: []string{"nope"}}}
	cs := connect(t, svc)
	res, text := callText(t, cs, ToolReadRules, map[string]any{"rule_names": []string{"nope"}})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "nope")
}

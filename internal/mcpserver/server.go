// Package mcpserver exposes the policy operations as MCP tools so agents can
// call the gateway over stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cbout22/policygate/internal/policy"
)

// Name is the implementation name reported to MCP clients.
const Name = "policygate"

const instructions = "Policy gateway for task routing. Use router outline first, then read rules, " +
	"and copy scripts only for scripts explicitly mapped in router.yaml."

// PolicyService is the subset of policy.Service the tools call.
type PolicyService interface {
	OutlineRouter(ctx context.Context) (string, error)
	SyncRepository(ctx context.Context) (map[string]string, error)
	ReadRules(ctx context.Context, names []string) (string, error)
	CopyScripts(ctx context.Context, names []string) (*policy.CopiedScripts, error)
}

// New builds an MCP server with every policy tool registered.
func New(svc PolicyService, version string, log *slog.Logger) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: Name, Version: version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	registerTools(server, &tools{svc: svc, log: log.With("component", "mcp")})
	return server
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx ends.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

package resolver

import (
	"context"

	"github.com/cbout22/policygate/internal/config"
)

// SourceRepository defines operations for fetching a repository snapshot from a remote source.
type SourceRepository interface {
	// RepositoryState returns the default branch, its tip SHA and an archive URL.
	RepositoryState(ctx context.Context, loc config.Location) (State, error)

	// Download fetches the compressed archive at the given URL.
	Download(ctx context.Context, archiveURL string) ([]byte, error)
}

var _ SourceRepository = (*Resolver)(nil)

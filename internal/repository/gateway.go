package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cbout22/policygate/internal/auth"
	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/resolver"
)

// Gateway serves files from a cache root kept fresh by a Coordinator.
type Gateway struct {
	coord *Coordinator
}

// NewGateway wraps an existing coordinator.
func NewGateway(coord *Coordinator) *Gateway {
	return &Gateway{coord: coord}
}

// NewGitHubGateway builds the GitHub-backed gateway described by settings.
// It fails with a SyncError at stage "config" when the repository URL or token is missing.
func NewGitHubGateway(s *config.Settings, opts ...CoordinatorOption) (*Gateway, error) {
	token, err := auth.Token(s.AccessToken)
	if err != nil {
		return nil, syncErr(StageConfig, err)
	}
	loc, err := s.Location()
	if err != nil {
		return nil, syncErr(StageConfig, err)
	}

	httpClient, err := auth.NewHTTPClient(token)
	if err != nil {
		return nil, syncErr(StageConfig, err)
	}
	res, err := resolver.New(httpClient, s.APIURL)
	if err != nil {
		return nil, syncErr(StageConfig, err)
	}

	return NewGateway(NewCoordinator(s.DataDir, loc, res, s.RefreshInterval(), opts...)), nil
}

// Coordinator exposes the underlying coordinator for status and drift checks.
func (g *Gateway) Coordinator() *Coordinator { return g.coord }

// RefreshIfNeeded delegates to the coordinator.
func (g *Gateway) RefreshIfNeeded(ctx context.Context) error {
	return g.coord.RefreshIfNeeded(ctx)
}

// ForceRefresh delegates to the coordinator.
func (g *Gateway) ForceRefresh(ctx context.Context) error {
	return g.coord.ForceRefresh(ctx)
}

// ReadText reads one file from the cache root.
func (g *Gateway) ReadText(rel string) (string, error) {
	p, err := ResolvePath(g.coord.Root(), rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

// ReadManyTexts reads every path or fails as a whole.
func (g *Gateway) ReadManyTexts(rels []string) (map[string]string, error) {
	out := make(map[string]string, len(rels))
	for _, rel := range rels {
		text, err := g.ReadText(rel)
		if err != nil {
			return nil, err
		}
		out[rel] = text
	}
	return out, nil
}

// CopyManyFiles copies each file to destDir/<basename> and returns the
// destination paths in input order. All sources are resolved before destDir
// is touched; if a copy fails, files already copied by this call are removed.
func (g *Gateway) CopyManyFiles(rels []string, destDir string) ([]string, error) {
	sources := make([]string, len(rels))
	for i, rel := range rels {
		src, err := ResolvePath(g.coord.Root(), rel)
		if err != nil {
			return nil, err
		}
		sources[i] = src
	}

	dest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}
	_, statErr := os.Stat(dest)
	created := os.IsNotExist(statErr)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	copied := make([]string, 0, len(rels))
	for i, src := range sources {
		target := filepath.Join(dest, filepath.Base(filepath.FromSlash(rels[i])))
		if err := copyPreserving(src, target); err != nil {
			for _, p := range copied {
				_ = os.Remove(p)
			}
			if created {
				_ = os.Remove(dest)
			}
			return nil, fmt.Errorf("copying %s: %w", rels[i], err)
		}
		copied = append(copied, target)
	}
	return copied, nil
}

// copyPreserving copies a regular file, keeping its permission bits and mtime.
func copyPreserving(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

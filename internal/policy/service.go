package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/cbout22/policygate/internal/manifest"
)

// RepositoryGateway is the cache capability the service needs.
type RepositoryGateway interface {
	RefreshIfNeeded(ctx context.Context) error
	ForceRefresh(ctx context.Context) error
	ReadText(rel string) (string, error)
	ReadManyTexts(rels []string) (map[string]string, error)
	CopyManyFiles(rels []string, destDir string) ([]string, error)
}

// ScriptsTempPrefix names the directories CopyScripts creates.
const ScriptsTempPrefix = "policygate-scripts-"

// CopiedScripts is the result of CopyScripts.
type CopiedScripts struct {
	DestinationDirectory string   `json:"destination_directory"`
	CopiedFiles          []string `json:"copied_files"`
}

// Service implements the consumer-facing operations on top of a RepositoryGateway.
type Service struct {
	repo    RepositoryGateway
	tempDir string
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTempDir sets the parent directory for CopyScripts destinations.
// The default is the OS temp dir.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(repo RepositoryGateway, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "policy")
	return s
}

// OutlineRouter renders the validated router index as markdown.
func (s *Service) OutlineRouter(ctx context.Context) (string, error) {
	r, err := s.LoadRouter(ctx)
	if err != nil {
		return "", err
	}
	return RenderOutline(r), nil
}

// SyncRepository forces a refresh of the local cache.
func (s *Service) SyncRepository(ctx context.Context) (map[string]string, error) {
	if err := s.repo.ForceRefresh(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"status": "synced"}, nil
}

// ReadRules returns the named rules wrapped in <alias> tags, in request order.
// Repeated aliases are rendered once.
func (s *Service) ReadRules(ctx context.Context, names []string) (string, error) {
	if len(names) == 0 {
		return "", nil
	}

	r, err := s.LoadRouter(ctx)
	if err != nil {
		return "", err
	}
	if missing := r.MissingRules(names); len(missing) > 0 {
		return "", &ReferenceError{Kind: "rule", Aliases: missing}
	}

	names = unique(names)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = r.Rules[name].Path
	}

	contents, err := s.repo.ReadManyTexts(paths)
	if err != nil {
		return "", err
	}

	sections := make([]string, 0, len(names))
	for i, name := range names {
		text, ok := contents[paths[i]]
		if !ok {
			continue
		}
		sections = append(sections, fmt.Sprintf("<%s>\n%s\n</%s>", name, strings.TrimRightFunc(text, unicode.IsSpace), name))
	}
	return strings.Join(sections, "\n\n"), nil
}

// CopyScripts copies the named scripts into a fresh temporary directory.
// Unknown aliases fail before any directory is created.
func (s *Service) CopyScripts(ctx context.Context, names []string) (*CopiedScripts, error) {
	if len(names) == 0 {
		dest, err := os.MkdirTemp(s.tempDir, ScriptsTempPrefix)
		if err != nil {
			return nil, fmt.Errorf("creating scripts directory: %w", err)
		}
		return &CopiedScripts{DestinationDirectory: dest, CopiedFiles: []string{}}, nil
	}

	r, err := s.LoadRouter(ctx)
	if err != nil {
		return nil, err
	}
	if missing := r.MissingScripts(names); len(missing) > 0 {
		return nil, &ReferenceError{Kind: "script", Aliases: missing}
	}

	dest, err := os.MkdirTemp(s.tempDir, ScriptsTempPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating scripts directory: %w", err)
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = r.Scripts[name].Path
	}

	copied, err := s.repo.CopyManyFiles(paths, dest)
	if err != nil {
		_ = os.RemoveAll(dest)
		return nil, err
	}

	s.logger.Debug("copied scripts", "destination", dest, "count", len(copied))
	return &CopiedScripts{DestinationDirectory: dest, CopiedFiles: copied}, nil
}

// LoadRouter refreshes the cache if needed and parses router.yaml.
func (s *Service) LoadRouter(ctx context.Context) (*manifest.Router, error) {
	if err := s.repo.RefreshIfNeeded(ctx); err != nil {
		return nil, err
	}

	raw, err := s.repo.ReadText(manifest.DefaultRouterFile)
	if err != nil {
		return nil, err
	}

	r, err := manifest.Parse([]byte(raw))
	if err != nil {
		if errors.Is(err, manifest.ErrInvalidRouter) {
			return nil, &ValidationError{Err: err}
		}
		return nil, err
	}
	return r, nil
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

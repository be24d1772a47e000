package resolver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"

	"github.com/cbout22/policygate/internal/config"
)

const (
	DefaultAPITimeout      = 30 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
)

// State describes the tip of the repository's default branch.
type State struct {
	DefaultBranch string
	SHA           string // content identifier of the tip commit
	ArchiveURL    string // tarball of that branch
}

// Resolver asks the hosting API for repository state and downloads archives.
type Resolver struct {
	client          *github.Client
	apiTimeout      time.Duration
	downloadTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeouts overrides the per-call API and download timeouts.
func WithTimeouts(api, download time.Duration) Option {
	return func(r *Resolver) {
		if api > 0 {
			r.apiTimeout = api
		}
		if download > 0 {
			r.downloadTimeout = download
		}
	}
}

// New creates a Resolver talking to the API at baseURL with the given
// (authenticated) HTTP client. An empty baseURL means api.github.com.
func New(httpClient *http.Client, baseURL string, opts ...Option) (*Resolver, error) {
	client := github.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
		}
		client.BaseURL = u
	}

	r := &Resolver{
		client:          client,
		apiTimeout:      DefaultAPITimeout,
		downloadTimeout: DefaultDownloadTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// repositoryPayload keeps only the fields of GET /repos/{owner}/{repo} we use.
// The URL templates are optional: payload shapes differ between providers.
type repositoryPayload struct {
	DefaultBranch string `json:"default_branch"`
	TarballURL    string `json:"tarball_url"`
	ArchiveURL    string `json:"archive_url"`
}

// RepositoryState resolves the default branch, its tip commit SHA and the
// tarball URL for that branch.
func (r *Resolver) RepositoryState(ctx context.Context, loc config.Location) (State, error) {
	ctx, cancel := context.WithTimeout(ctx, r.apiTimeout)
	defer cancel()

	req, err := r.client.NewRequest(http.MethodGet, fmt.Sprintf("repos/%s/%s", loc.Owner, loc.Name), nil)
	if err != nil {
		return State{}, err
	}

	var repo repositoryPayload
	if _, err := r.client.Do(ctx, req, &repo); err != nil {
		return State{}, fmt.Errorf("fetching repo info for %s: %w", loc.FullName(), err)
	}

	if repo.DefaultBranch == "" {
		return State{}, fmt.Errorf("could not determine default branch for %s", loc.FullName())
	}

	commit, _, err := r.client.Repositories.GetCommit(ctx, loc.Owner, loc.Name, repo.DefaultBranch, nil)
	if err != nil {
		return State{}, fmt.Errorf("resolving commit SHA for %s@%s: %w", loc.FullName(), repo.DefaultBranch, err)
	}

	sha := commit.GetSHA()
	if sha == "" {
		return State{}, fmt.Errorf("resolving commit SHA for %s@%s: empty sha in response", loc.FullName(), repo.DefaultBranch)
	}

	return State{
		DefaultBranch: repo.DefaultBranch,
		SHA:           sha,
		ArchiveURL:    resolveArchiveURL(r.archiveURLAttempts(loc), repo, repo.DefaultBranch),
	}, nil
}

// Download fetches the archive at archiveURL, following redirects.
func (r *Resolver) Download(ctx context.Context, archiveURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.downloadTimeout)
	defer cancel()

	req, err := r.client.NewRequest(http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building archive request: %w", err)
	}

	var buf bytes.Buffer
	if _, err := r.client.Do(ctx, req, &buf); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", archiveURL, err)
	}

	return buf.Bytes(), nil
}

// archiveURLAttempt derives an archive URL from the repository payload.
// It reports false when the payload lacks what it needs.
type archiveURLAttempt func(repo repositoryPayload, branch string) (string, bool)

// archiveURLAttempts lists the attempts in priority order; the last never fails.
func (r *Resolver) archiveURLAttempts(loc config.Location) []archiveURLAttempt {
	return []archiveURLAttempt{
		fromTarballURL,
		fromArchiveURLTemplate,
		conventionalTarballURL(r.client.BaseURL, loc),
	}
}

func resolveArchiveURL(attempts []archiveURLAttempt, repo repositoryPayload, branch string) string {
	for _, attempt := range attempts {
		if u, ok := attempt(repo, branch); ok {
			return u
		}
	}
	return ""
}

// fromTarballURL fills the {/ref} placeholder of a ready-made tarball URL.
func fromTarballURL(repo repositoryPayload, branch string) (string, bool) {
	if repo.TarballURL == "" {
		return "", false
	}
	if strings.Contains(repo.TarballURL, "{/ref}") {
		return strings.ReplaceAll(repo.TarballURL, "{/ref}", "/"+branch), true
	}
	return repo.TarballURL, true
}

// fromArchiveURLTemplate expands the generic
// ".../{archive_format}{/ref}" template with format "tarball".
func fromArchiveURLTemplate(repo repositoryPayload, branch string) (string, bool) {
	if repo.ArchiveURL == "" {
		return "", false
	}
	u := strings.ReplaceAll(repo.ArchiveURL, "{/archive_format}", "/tarball")
	u = strings.ReplaceAll(u, "{archive_format}", "tarball")
	if strings.Contains(u, "{/ref}") {
		return strings.ReplaceAll(u, "{/ref}", "/"+branch), true
	}
	return strings.TrimRight(u, "/") + "/" + branch, true
}

// conventionalTarballURL synthesizes {base}repos/{owner}/{repo}/tarball/{branch}.
func conventionalTarballURL(base *url.URL, loc config.Location) archiveURLAttempt {
	return func(_ repositoryPayload, branch string) (string, bool) {
		return fmt.Sprintf("%srepos/%s/%s/tarball/%s", base.String(), loc.Owner, loc.Name, branch), true
	}
}

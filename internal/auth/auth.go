package auth

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// APIVersion is the GitHub REST API version pinned on every request.
const APIVersion = "2022-11-28"

// githubTokenEnvVars lists the environment variables checked for a GitHub token,
// in priority order, when none is configured explicitly.
var githubTokenEnvVars = []string{
	"POLICYGATE__GITHUB_ACCESS_TOKEN",
	"GITHUB_TOKEN",
	"GH_TOKEN",
}

// Token returns the configured token, falling back to the environment.
func Token(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, env := range githubTokenEnvVars {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf(
		"no GitHub token found: set github_access_token or one of %s, %s, %s",
		githubTokenEnvVars[0], githubTokenEnvVars[1], githubTokenEnvVars[2],
	)
}

// NewHTTPClient returns an *http.Client that sends the token as a bearer
// Authorization header and pins the GitHub API version on every request.
func NewHTTPClient(token string) (*http.Client, error) {
	return NewHTTPClientWithTimeout(token, 0)
}

// NewHTTPClientWithTimeout is NewHTTPClient with an overall request timeout.
// A zero timeout leaves deadlines to the caller's context.
func NewHTTPClientWithTimeout(token string, timeout time.Duration) (*http.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github access token is empty")
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base: &headerTransport{
				base: http.DefaultTransport,
			},
		},
	}, nil
}

// headerTransport is a custom http.RoundTripper that adds the GitHub media type
// and API version headers unless the caller set them already.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid mutating the original
	r := req.Clone(req.Context())
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/vnd.github+json")
	}
	r.Header.Set("X-GitHub-Api-Version", APIVersion)
	return t.base.RoundTrip(r)
}

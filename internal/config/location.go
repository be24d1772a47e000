package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Location identifies the upstream repository served by the gateway.
type Location struct {
	Owner string // GitHub organisation or user
	Name  string // Repository name
}

// ParseRepositoryURL derives a Location from a repository URL such as
// "https://github.com/org/policies.git". Path segments past owner/name are ignored.
func ParseRepositoryURL(raw string) (Location, error) {
	if strings.TrimSpace(raw) == "" {
		return Location{}, fmt.Errorf("github_repository_url is not configured")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid repository URL %q: %w", raw, err)
	}

	path := strings.Trim(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Location{}, fmt.Errorf("invalid repository URL %q: must include owner and repository name", raw)
	}

	return Location{Owner: segments[0], Name: segments[1]}, nil
}

// FullName returns "owner/name".
func (l Location) FullName() string {
	return fmt.Sprintf("%s/%s", l.Owner, l.Name)
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return l.FullName()
}

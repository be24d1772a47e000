package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// envMap returns a lookup func backed by a map, so tests don't touch the process env.
func envMap(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()
	s, err := load(filepath.Join(t.TempDir(), "missing.toml"), false, envMap(nil))
	if err != nil {
		t.Fatalf("load: unexpected error: %v", err)
	}
	if s.AppName != "policygate" {
		t.Errorf("AppName = %q, want %q", s.AppName, "policygate")
	}
	if s.RefreshIntervalSeconds != DefaultRefreshInterval {
		t.Errorf("RefreshIntervalSeconds = %d, want %d", s.RefreshIntervalSeconds, DefaultRefreshInterval)
	}
	if s.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", s.APIURL, DefaultAPIURL)
	}
	if !filepath.IsAbs(s.DataDir) || strings.Contains(s.DataDir, "~") {
		t.Errorf("DataDir = %q, want expanded absolute path", s.DataDir)
	}
}

func TestLoad_RequiredFileMissing(t *testing.T) {
	t.Parallel()
	_, err := load(filepath.Join(t.TempDir(), "missing.toml"), true, envMap(nil))
	if err == nil {
		t.Fatal("load(required, missing): expected error, got nil")
	}
}

func TestLoad_FileValues(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()
	path := writeConfig(t, `
github_repository_url = "https://github.com/acme/policies"
github_access_token = "file-token"
local_repo_data_dir = "`+filepath.ToSlash(dataDir)+`"
repository_refresh_interval_seconds = 60
refresh_schedule = "@every 5m"
log_format = "json"
`)

	s, err := load(path, true, envMap(nil))
	if err != nil {
		t.Fatalf("load: unexpected error: %v", err)
	}
	if s.RepositoryURL != "https://github.com/acme/policies" {
		t.Errorf("RepositoryURL = %q", s.RepositoryURL)
	}
	if s.AccessToken != "file-token" {
		t.Errorf("AccessToken = %q", s.AccessToken)
	}
	if s.DataDir != filepath.Clean(dataDir) {
		t.Errorf("DataDir = %q, want %q", s.DataDir, dataDir)
	}
	if s.RefreshInterval() != time.Minute {
		t.Errorf("RefreshInterval() = %v, want 1m", s.RefreshInterval())
	}
	if s.RefreshSchedule != "@every 5m" {
		t.Errorf("RefreshSchedule = %q", s.RefreshSchedule)
	}
	if s.LogFormat != "json" {
		t.Errorf("LogFormat = %q", s.LogFormat)
	}
	// Untouched keys keep their defaults
	if s.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want default", s.ListenAddress)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `github_repo = "typo"`)
	_, err := load(path, true, envMap(nil))
	if err == nil || !strings.Contains(err.Error(), "github_repo") {
		t.Fatalf("load(unknown key): got %v, want error naming the key", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `github_repository_url = `)
	if _, err := load(path, true, envMap(nil)); err == nil {
		t.Fatal("load(malformed): expected error, got nil")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
github_repository_url = "https://github.com/acme/policies"
repository_refresh_interval_seconds = 60
`)
	env := envMap(map[string]string{
		"POLICYGATE__GITHUB_REPOSITORY_URL":               "https://github.com/other/rules",
		"POLICYGATE__REPOSITORY_REFRESH_INTERVAL_SECONDS": "120",
		"policygate__log_level":                           "debug",
	})

	s, err := load(path, true, env)
	if err != nil {
		t.Fatalf("load: unexpected error: %v", err)
	}
	if s.RepositoryURL != "https://github.com/other/rules" {
		t.Errorf("RepositoryURL = %q, env should win", s.RepositoryURL)
	}
	if s.RefreshIntervalSeconds != 120 {
		t.Errorf("RefreshIntervalSeconds = %d, want 120", s.RefreshIntervalSeconds)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, lower-case env name should be honoured", s.LogLevel)
	}
}

func TestLoad_InvalidIntervalEnv(t *testing.T) {
	t.Parallel()
	env := envMap(map[string]string{"POLICYGATE__REPOSITORY_REFRESH_INTERVAL_SECONDS": "soon"})
	if _, err := load(filepath.Join(t.TempDir(), "x.toml"), false, env); err == nil {
		t.Fatal("load(bad interval): expected error, got nil")
	}
}

func TestNormalize_ClampsInterval(t *testing.T) {
	t.Parallel()
	cases := []int{0, -5}
	for _, in := range cases {
		s := Default()
		s.RefreshIntervalSeconds = in
		if err := s.normalize(); err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if s.RefreshIntervalSeconds != 1 {
			t.Errorf("interval %d normalized to %d, want 1", in, s.RefreshIntervalSeconds)
		}
	}
}

func TestNormalize_APIURLTrailingSlash(t *testing.T) {
	t.Parallel()
	s := Default()
	s.APIURL = "https://ghe.example.com/api/v3"
	if err := s.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.APIURL != "https://ghe.example.com/api/v3/" {
		t.Errorf("APIURL = %q, want trailing slash", s.APIURL)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{"ok", func(s *Settings) {}, false},
		{"token may come from the environment", func(s *Settings) { s.AccessToken = "" }, false},
		{"json logs", func(s *Settings) { s.LogFormat = "JSON" }, false},
		{"missing url", func(s *Settings) { s.RepositoryURL = "" }, true},
		{"url without repo", func(s *Settings) { s.RepositoryURL = "https://github.com/acme" }, true},
		{"unknown log format", func(s *Settings) { s.LogFormat = "xml" }, true},
		{"empty listen address", func(s *Settings) { s.ListenAddress = " " }, true},
	}
	for _, tc := range cases {
		s := Default()
		s.RepositoryURL = "https://github.com/acme/policies"
		s.AccessToken = "tok"
		tc.mutate(s)
		err := s.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

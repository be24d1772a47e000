package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFile is read from the working directory when --config is not given.
	DefaultConfigFile = "policygate.toml"

	// EnvPrefix is prepended to the upper-cased setting name for environment overrides.
	EnvPrefix = "POLICYGATE__"

	DefaultAPIURL          = "https://api.github.com/"
	DefaultDataDir         = "~/.policygate/repo_data"
	DefaultRefreshInterval = 1800
	DefaultListenAddress   = "127.0.0.1:8080"
)

// Settings is the full runtime configuration of the gateway.
// Values come from defaults, then the TOML file, then POLICYGATE__* variables.
type Settings struct {
	AppName string `toml:"app_name"`

	// GitHub repository integration
	RepositoryURL string `toml:"github_repository_url"`
	AccessToken   string `toml:"github_access_token"`
	APIURL        string `toml:"github_api_url"`

	// Local repository cache
	DataDir                string `toml:"local_repo_data_dir"`
	RefreshIntervalSeconds int    `toml:"repository_refresh_interval_seconds"`
	RefreshSchedule        string `toml:"refresh_schedule"`

	ListenAddress string `toml:"listen_address"`

	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	LogFilePath string `toml:"log_file_path"`
}

// Default returns settings populated with built-in defaults.
func Default() *Settings {
	return &Settings{
		AppName:                "policygate",
		APIURL:                 DefaultAPIURL,
		DataDir:                DefaultDataDir,
		RefreshIntervalSeconds: DefaultRefreshInterval,
		ListenAddress:          DefaultListenAddress,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// Load builds Settings from the TOML file at path and the process environment.
// A missing file is only an error when required is true.
func Load(path string, required bool) (*Settings, error) {
	return load(path, required, os.LookupEnv)
}

func load(path string, required bool, lookup func(string) (string, bool)) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		md, err := toml.Decode(string(data), s)
		if err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("parsing config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	case os.IsNotExist(err) && !required:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := s.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := s.normalize(); err != nil {
		return nil, err
	}

	return s, nil
}

// applyEnv overrides fields from POLICYGATE__<KEY> variables.
func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"APP_NAME":              &s.AppName,
		"GITHUB_REPOSITORY_URL": &s.RepositoryURL,
		"GITHUB_ACCESS_TOKEN":   &s.AccessToken,
		"GITHUB_API_URL":        &s.APIURL,
		"LOCAL_REPO_DATA_DIR":   &s.DataDir,
		"REFRESH_SCHEDULE":      &s.RefreshSchedule,
		"LISTEN_ADDRESS":        &s.ListenAddress,
		"LOG_LEVEL":             &s.LogLevel,
		"LOG_FORMAT":            &s.LogFormat,
		"LOG_FILE_PATH":         &s.LogFilePath,
	}
	for key, field := range strs {
		if v, ok := lookupEnv(lookup, key); ok {
			*field = v
		}
	}

	if v, ok := lookupEnv(lookup, "REPOSITORY_REFRESH_INTERVAL_SECONDS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sREPOSITORY_REFRESH_INTERVAL_SECONDS %q: %w", EnvPrefix, v, err)
		}
		s.RefreshIntervalSeconds = n
	}

	return nil
}

// lookupEnv checks the prefixed name; variable names are case-insensitive
// upstream, so the lower-cased form is accepted too.
func lookupEnv(lookup func(string) (string, bool), key string) (string, bool) {
	if v, ok := lookup(EnvPrefix + key); ok {
		return v, true
	}
	return lookup(strings.ToLower(EnvPrefix + key))
}

func (s *Settings) normalize() error {
	if s.RefreshIntervalSeconds < 1 {
		s.RefreshIntervalSeconds = 1
	}

	if s.APIURL == "" {
		s.APIURL = DefaultAPIURL
	}
	if !strings.HasSuffix(s.APIURL, "/") {
		s.APIURL += "/"
	}

	if s.DataDir == "" {
		s.DataDir = DefaultDataDir
	}
	dir, err := expandPath(s.DataDir)
	if err != nil {
		return fmt.Errorf("resolving local_repo_data_dir: %w", err)
	}
	s.DataDir = dir

	if s.LogFilePath != "" {
		p, err := expandPath(s.LogFilePath)
		if err != nil {
			return fmt.Errorf("resolving log_file_path: %w", err)
		}
		s.LogFilePath = p
	}

	return nil
}

// Validate reports settings that would prevent the gateway from starting.
// The access token is not checked here: auth.Token also falls back to
// GITHUB_TOKEN and GH_TOKEN, and commands that never reach GitHub need none.
func (s *Settings) Validate() error {
	if _, err := ParseRepositoryURL(s.RepositoryURL); err != nil {
		return err
	}
	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", s.LogFormat)
	}
	if strings.TrimSpace(s.ListenAddress) == "" {
		return fmt.Errorf("listen_address must not be empty")
	}
	return nil
}

// Location parses the configured repository URL.
func (s *Settings) Location() (Location, error) {
	return ParseRepositoryURL(s.RepositoryURL)
}

// RefreshInterval is the minimum time between upstream checks.
func (s *Settings) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshIntervalSeconds) * time.Second
}

// expandPath resolves a leading ~ and returns an absolute, cleaned path.
func expandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

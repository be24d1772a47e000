package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataFile is the record kept at the cache root describing what is on disk.
const MetadataFile = ".policygate_sync.json"

// ErrCorruptMetadata is returned when the metadata record cannot be decoded.
var ErrCorruptMetadata = errors.New("corrupt sync metadata")

// SyncMetadata identifies the generation currently materialized in the cache root.
type SyncMetadata struct {
	Repository    string `json:"repository"`     // owner/name
	DefaultBranch string `json:"default_branch"` // branch the snapshot was taken from
	SHA           string `json:"sha"`            // tip commit of that branch at sync time
	SyncedAt      int64  `json:"synced_at"`      // unix seconds
}

// SyncedTime returns SyncedAt as a time.Time.
func (m *SyncMetadata) SyncedTime() time.Time {
	return time.Unix(m.SyncedAt, 0).UTC()
}

// LoadMetadata reads the metadata record at path.
// It returns (nil, nil) if the file does not exist.
func LoadMetadata(path string) (*SyncMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sync metadata: %w", err)
	}

	var m SyncMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	return &m, nil
}

// Save writes the record to path, replacing any previous one in a single rename.
func (m *SyncMetadata) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sync metadata: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, MetadataFile+".*")
	if err != nil {
		return fmt.Errorf("writing sync metadata: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing sync metadata: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing sync metadata: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing sync metadata: %w", err)
	}
	return nil
}

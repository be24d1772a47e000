package repository

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/resolver"
)

var testLoc = config.Location{Owner: "acme", Name: "policies"}

// buildArchive returns a tar.gz whose members are the given files; names
// ending in "/" become directories. Parent directories are implied.
func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}))
			continue
		}
		body := files[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// fakeSource is an in-memory SourceRepository.
type fakeSource struct {
	mu            sync.Mutex
	state         resolver.State
	stateErr      error
	archive       []byte
	downloadErr   error
	stateCalls    int
	downloadCalls int
	canceled      bool
}

func (f *fakeSource) RepositoryState(ctx context.Context, _ config.Location) (resolver.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	f.canceled = f.canceled || ctx.Err() != nil
	if f.stateErr != nil {
		return resolver.State{}, f.stateErr
	}
	return f.state, nil
}

func (f *fakeSource) Download(ctx context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	f.canceled = f.canceled || ctx.Err() != nil
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.archive, nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) calls() (state, download int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateCalls, f.downloadCalls
}

func (f *fakeSource) sawCanceled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

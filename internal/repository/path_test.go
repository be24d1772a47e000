package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRoot returns a cache root inside a fresh temp dir, plus that temp dir.
func newRoot(t *testing.T) (root, outside string) {
	t.Helper()
	outside = t.TempDir()
	root = filepath.Join(outside, "repo_data")
	writeFile(t, filepath.Join(root, "router.yaml"), "tasks: {}\n")
	writeFile(t, filepath.Join(root, "rules", "a.md"), "rule A")
	writeFile(t, filepath.Join(outside, "secret.txt"), "secret")
	return root, outside
}

func TestResolvePath_Valid(t *testing.T) {
	t.Parallel()
	root, _ := newRoot(t)

	got, err := ResolvePath(root, "rules/a.md")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(root, "rules", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolvePath_InvalidPath(t *testing.T) {
	t.Parallel()
	root, _ := newRoot(t)

	for _, rel := range []string{"", "   ", "rules/\x00a.md"} {
		_, err := ResolvePath(root, rel)
		assert.ErrorIs(t, err, ErrInvalidPath, "rel=%q", rel)
	}
}

func TestResolvePath_Traversal(t *testing.T) {
	t.Parallel()
	root, outside := newRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../secret.txt",
		"rules/../../secret.txt",
		filepath.Join(outside, "secret.txt"),
		"/etc/passwd",
		"../secret.txt/x",
		"../missing-dir/x",
	}
	for _, rel := range cases {
		_, err := ResolvePath(root, rel)
		assert.ErrorIs(t, err, ErrPathTraversal, "rel=%q", rel)
	}
}

func TestResolvePath_TraversalThroughOutsideFileHidesLayout(t *testing.T) {
	t.Parallel()
	root, outside := newRoot(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	for _, rel := range []string{"../secret.txt/x", "escape/secret.txt/x"} {
		_, err := ResolvePath(root, rel)
		require.ErrorIs(t, err, ErrPathTraversal, "rel=%q", rel)
		assert.NotErrorIs(t, err, ErrNotFound, "rel=%q", rel)
		assert.NotContains(t, err.Error(), "not a directory", "rel=%q", rel)
	}
}

func TestResolvePath_AbsoluteInsideRoot(t *testing.T) {
	t.Parallel()
	root, _ := newRoot(t)

	got, err := ResolvePath(root, filepath.Join(root, "rules", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "a.md", filepath.Base(got))
}

func TestResolvePath_SymlinkEscape(t *testing.T) {
	t.Parallel()
	root, outside := newRoot(t)

	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "rules", "leak.md")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	_, err := ResolvePath(root, "rules/leak.md")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = ResolvePath(root, "escape/secret.txt")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = ResolvePath(root, "escape/missing.txt")
	assert.ErrorIs(t, err, ErrPathTraversal, "escapes are reported even when the target does not exist")
}

func TestResolvePath_SymlinkInsideRoot(t *testing.T) {
	t.Parallel()
	root, _ := newRoot(t)

	require.NoError(t, os.Symlink(filepath.Join(root, "rules", "a.md"), filepath.Join(root, "alias.md")))

	got, err := ResolvePath(root, "alias.md")
	require.NoError(t, err)
	assert.Equal(t, "a.md", filepath.Base(got))
}

func TestResolvePath_NotFound(t *testing.T) {
	t.Parallel()
	root, _ := newRoot(t)

	for _, rel := range []string{"rules/missing.md", "rules", ".", "router.yaml/child"} {
		_, err := ResolvePath(root, rel)
		assert.ErrorIs(t, err, ErrNotFound, "rel=%q", rel)
	}
}

func TestResolvePath_MissingRoot(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "never-synced")

	_, err := ResolvePath(root, "router.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithin(t *testing.T) {
	t.Parallel()
	base := filepath.FromSlash("/data/root")
	cases := []struct {
		target string
		want   bool
	}{
		{"/data/root", true},
		{"/data/root/a", true},
		{"/data/root/a/b", true},
		{"/data/root/..a", true},
		{"/data/rootx", false},
		{"/data", false},
		{"/etc/passwd", false},
	}
	for _, tc := range cases {
		if got := within(base, filepath.FromSlash(tc.target)); got != tc.want {
			t.Errorf("within(%q, %q) = %v, want %v", base, tc.target, got, tc.want)
		}
	}
}

package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// ResolvePath maps rel onto an absolute, symlink-resolved path inside root.
// It has no side effects.
func ResolvePath(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("%w: relative path cannot be empty", ErrInvalidPath)
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	base, err := resolveExisting(root)
	if err != nil {
		return "", fmt.Errorf("resolving cache root: %w", err)
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving cache root: %w", err)
	}

	candidate := filepath.Clean(filepath.FromSlash(rel))
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(base, candidate)
	}
	if !within(base, candidate) && !within(rootAbs, candidate) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}

	// Lexically inside; symlinks may still lead out.
	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	if !within(base, resolved) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return resolved, nil
}

// resolveExisting evaluates symlinks in the longest resolvable prefix of p and
// appends the remaining components unchanged. A component that exists but is
// not a directory ends the prefix like a missing one.
func resolveExisting(p string) (string, error) {
	p, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

package injector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

var (
	// ErrMissingEntry is returned when the archive lacks a required entry.
	ErrMissingEntry = errors.New("repository is missing required entry")

	// ErrNoArchiveRoot is returned when the archive has no top-level directory.
	ErrNoArchiveRoot = errors.New("unable to extract repository archive: no top-level directory")
)

// Entries every repository snapshot must (or may) carry at its root.
var (
	RequiredEntries = []string{"router.yaml", "rules"}
	OptionalEntries = []string{"scripts"}
)

// Injector extracts repository archives and writes their assets into a cache root.
type Injector struct {
	newScratch ScratchFunc
	required   []string
	optional   []string
	preserve   map[string]bool
	logger     *slog.Logger
}

// Option configures an Injector.
type Option func(*Injector)

// WithScratch sets where archives are extracted before validation.
func WithScratch(fn ScratchFunc) Option {
	return func(inj *Injector) { inj.newScratch = fn }
}

// WithPreserved names root entries that survive a commit, such as the sync metadata file.
func WithPreserved(names ...string) Option {
	return func(inj *Injector) {
		for _, n := range names {
			inj.preserve[n] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(inj *Injector) { inj.logger = l }
}

// New creates an Injector that extracts into OS temp directories by default.
func New(opts ...Option) *Injector {
	inj := &Injector{
		newScratch: OSScratch,
		required:   RequiredEntries,
		optional:   OptionalEntries,
		preserve:   make(map[string]bool),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(inj)
	}
	inj.logger = inj.logger.With("component", "injector")
	return inj
}

// Staged is an extracted and validated archive waiting to replace the live root.
// Callers must Close it.
type Staged struct {
	fs       billy.Filesystem
	root     string   // archive's top-level directory inside fs
	entries  []string // required first, then optional ones that exist
	preserve map[string]bool
	cleanup  func() error
}

// Stage extracts the archive into a fresh scratch filesystem and checks that
// every required entry is present. The live cache root is not touched.
func (inj *Injector) Stage(ctx context.Context, archive []byte) (*Staged, error) {
	scratch, cleanup, err := inj.newScratch()
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	st := &Staged{fs: scratch, preserve: inj.preserve, cleanup: cleanup}
	if err := inj.stage(ctx, st, archive); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func (inj *Injector) stage(ctx context.Context, st *Staged, archive []byte) error {
	skipped, err := extractTarGz(ctx, archive, st.fs)
	if err != nil {
		return err
	}
	if skipped > 0 {
		inj.logger.Debug("skipped non-regular archive members", "count", skipped)
	}

	root, err := findArchiveRoot(st.fs)
	if err != nil {
		return err
	}
	st.root = root

	for _, entry := range inj.required {
		if _, err := st.fs.Lstat(st.fs.Join(root, entry)); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrMissingEntry, entry)
			}
			return fmt.Errorf("checking %s: %w", entry, err)
		}
		st.entries = append(st.entries, entry)
	}

	for _, entry := range inj.optional {
		if _, err := st.fs.Lstat(st.fs.Join(root, entry)); err == nil {
			st.entries = append(st.entries, entry)
		}
	}

	return nil
}

// Entries lists the root entries Commit will write, in order.
func (st *Staged) Entries() []string {
	return append([]string(nil), st.entries...)
}

// Commit clears dst of everything except preserved entries, then copies the
// staged entries into it. This is a clear-then-copy, not an atomic swap: a
// crash part-way leaves dst incomplete until the next successful commit.
func (st *Staged) Commit(dst billy.Filesystem) error {
	if err := clearRoot(dst, st.preserve); err != nil {
		return fmt.Errorf("clearing cache root: %w", err)
	}

	for _, entry := range st.entries {
		if err := copyTree(st.fs, st.fs.Join(st.root, entry), dst, entry); err != nil {
			return fmt.Errorf("copying %s: %w", entry, err)
		}
	}
	return nil
}

// Close releases the scratch filesystem.
func (st *Staged) Close() error {
	if st.cleanup == nil {
		return nil
	}
	err := st.cleanup()
	st.cleanup = nil
	return err
}

// Materialize stages the archive and commits it into dst in one step.
// When staging fails dst is left exactly as it was.
func (inj *Injector) Materialize(ctx context.Context, archive []byte, dst billy.Filesystem) error {
	st, err := inj.Stage(ctx, archive)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Commit(dst)
}

// findArchiveRoot returns the synthetic folder hosting providers wrap archives in.
// If there are several, the first by name wins.
func findArchiveRoot(fs billy.Filesystem) (string, error) {
	infos, err := fs.ReadDir(".")
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoArchiveRoot
		}
		return "", fmt.Errorf("reading extracted archive: %w", err)
	}

	var dirs []string
	for _, info := range infos {
		if info.IsDir() {
			dirs = append(dirs, info.Name())
		}
	}
	if len(dirs) == 0 {
		return "", ErrNoArchiveRoot
	}

	sort.Strings(dirs)
	return dirs[0], nil
}

// clearRoot removes every top-level entry of fs not named in preserve.
func clearRoot(fs billy.Filesystem, preserve map[string]bool) error {
	infos, err := fs.ReadDir(".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, info := range infos {
		if preserve[info.Name()] {
			continue
		}
		if err := util.RemoveAll(fs, info.Name()); err != nil {
			return fmt.Errorf("removing %s: %w", info.Name(), err)
		}
	}
	return nil
}

package injector

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// ScratchFunc returns an empty, isolated filesystem and a func that disposes of it.
type ScratchFunc func() (billy.Filesystem, func() error, error)

// OSScratch extracts into a fresh policygate-sync-* directory under the OS temp dir.
func OSScratch() (billy.Filesystem, func() error, error) {
	dir, err := os.MkdirTemp("", "policygate-sync-")
	if err != nil {
		return nil, nil, err
	}
	return osfs.New(dir), func() error { return os.RemoveAll(dir) }, nil
}

// MemoryScratch keeps the extracted archive in memory.
func MemoryScratch() (billy.Filesystem, func() error, error) {
	return memfs.New(), func() error { return nil }, nil
}

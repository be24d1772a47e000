package injector

import (
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
)

// copyTree copies src (a file or directory) from srcFS to dst on dstFS,
// recursing into directories. Symlinks and special files are not copied.
func copyTree(srcFS billy.Filesystem, src string, dstFS billy.Filesystem, dst string) error {
	info, err := srcFS.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.IsDir():
		if err := dstFS.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dst, err)
		}
		entries, err := srcFS.ReadDir(src)
		if err != nil {
			return fmt.Errorf("reading directory %s: %w", src, err)
		}
		for _, e := range entries {
			if err := copyTree(srcFS, srcFS.Join(src, e.Name()), dstFS, dstFS.Join(dst, e.Name())); err != nil {
				return err
			}
		}
		return nil
	case info.Mode().IsRegular():
		return copyFile(srcFS, src, dstFS, dst, info.Mode().Perm())
	default:
		return nil
	}
}

// copyFile creates or overwrites dst with the content of src.
func copyFile(srcFS billy.Filesystem, src string, dstFS billy.Filesystem, dst string, perm os.FileMode) error {
	in, err := srcFS.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := dstFS.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return out.Close()
}

package injector

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// maxExtractedBytes bounds the uncompressed size of a repository snapshot.
const maxExtractedBytes int64 = 1 << 30

// extractTarGz writes directories and regular files of a gzip-compressed tar
// archive into fs. Other member types (symlinks, pax global headers, devices)
// are skipped and counted.
func extractTarGz(ctx context.Context, archive []byte, fs billy.Filesystem) (int, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	var total int64
	skipped := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return skipped, fmt.Errorf("failed to read tar header: %w", err)
		}

		if err := ctx.Err(); err != nil {
			return skipped, fmt.Errorf("extraction canceled: %w", err)
		}

		name, err := memberPath(hdr.Name)
		if err != nil {
			return skipped, err
		}
		if name == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(name, 0o755); err != nil {
				return skipped, fmt.Errorf("failed to create directory %s: %w", name, err)
			}
		case tar.TypeReg:
			total += hdr.Size
			if total > maxExtractedBytes {
				return skipped, fmt.Errorf("archive exceeds %d bytes uncompressed", maxExtractedBytes)
			}
			if err := writeMember(fs, name, tr, hdr.FileInfo().Mode().Perm()|0o600); err != nil {
				return skipped, err
			}
		default:
			skipped++
		}
	}

	return skipped, nil
}

// memberPath cleans an archive member name and rejects names that would land
// outside the extraction root. It returns "" for the root itself.
func memberPath(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." {
		return "", nil
	}
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("archive member escapes extraction root: %s", name)
	}
	return clean, nil
}

func writeMember(fs billy.Filesystem, name string, r io.Reader, perm os.FileMode) error {
	if dir := path.Dir(name); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
	}

	f, err := fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return f.Close()
}

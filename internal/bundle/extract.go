package bundle

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractTarGz expands a gzip-compressed tar archive into destDir. Entries
// with absolute or traversal paths are skipped, as are entry types other
// than regular files and directories.
func ExtractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open archive %s: %w", archivePath, err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("archive %s is not valid gzip: %w", archivePath, err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		h, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("cannot read archive %s: %w", archivePath, err)
		}
		name := sanitizeArchivePath(h.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(destDir, name)

		switch h.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("cannot create %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("cannot create %s: %w", filepath.Dir(target), err)
			}
			mode := h.FileInfo().Mode().Perm()
			if mode == 0 {
				mode = 0o644
			}
			if err := writeFileFromReader(target, tr, mode); err != nil {
				return err
			}
		default:
			// Symlinks, devices etc. have no place in an index tree.
			continue
		}
	}
}

// sanitizeArchivePath rejects absolute paths and traversal sequences in
// archive entries.
func sanitizeArchivePath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "/") {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return ""
		}
	}
	clean := filepath.Clean(name)
	if clean == "." {
		return ""
	}
	return clean
}

// writeFileFromReader writes a file by copying from r and setting mode.
func writeFileFromReader(path string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	return nil
}

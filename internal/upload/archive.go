package upload

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Archive writes a gzipped tar of the regular files directly inside dir to
// w, skipping names in exclude. It returns the number of files archived.
func Archive(w io.Writer, dir string, exclude ...string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || slices.Contains(exclude, e.Name()) {
			continue
		}
		if err := addFile(tw, filepath.Join(dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}

	if err := tw.Close(); err != nil {
		return n, fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return n, fmt.Errorf("close gzip: %w", err)
	}
	return n, nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", path, err)
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", path, err)
	}
	// Copy exactly the size recorded in the header; a file growing
	// concurrently would otherwise fail the tar writer.
	if _, err := io.CopyN(tw, f, hdr.Size); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return nil
}

// Package archive bundles generated certificates into a single zip file.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Create zips every regular file in dir whose name ends with suffix into dest.
// Entry names are base names, added in lexical order. dest itself is skipped
// even if it matches suffix. It returns the entry names written.
func Create(dir, dest, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	destAbs, _ := filepath.Abs(dest)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		if abs, _ := filepath.Abs(filepath.Join(dir, entry.Name())); abs == destAbs {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create archive %q: %w", dest, err)
	}

	zw := zip.NewWriter(out)
	for _, name := range names {
		if err := addFile(zw, filepath.Join(dir, name), name); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("finalize archive %q: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close archive %q: %w", dest, err)
	}
	return names, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %q: %w", path, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add entry %q: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write entry %q: %w", name, err)
	}
	return nil
}

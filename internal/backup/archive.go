package backup

import (
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip" // For reading .7z archives
	"github.com/xi2/xz"          // For reading .xz compressed data

	"railsdock/internal/logger"
)

// multiCloser closes the decompressor and then the underlying file.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenDump opens a SQL dump for reading, decompressing it based on its
// extension: .sql, .gz, .bz2, .xz, or the first .sql entry of a .zip or .7z.
func OpenDump(path string) (io.ReadCloser, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".7z"):
		logger.Debug("[DEBUG] compression type is .7z\n")
		return open7z(path)
	case strings.HasSuffix(lower, ".zip"):
		logger.Debug("[DEBUG] compression type is zip\n")
		return openZip(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(lower, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		return &multiCloser{Reader: gr, closers: []io.Closer{gr, f}}, nil
	case strings.HasSuffix(lower, ".bz2"):
		return &multiCloser{Reader: bzip2.NewReader(f), closers: []io.Closer{f}}, nil
	case strings.HasSuffix(lower, ".xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open xz %s: %w", path, err)
		}
		return &multiCloser{Reader: xzr, closers: []io.Closer{f}}, nil
	case strings.HasSuffix(lower, ".sql"):
		return f, nil
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported dump format: %s", filepath.Base(path))
	}
}

func isSQL(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".sql")
}

func openZip(path string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isSQL(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close()
			return nil, err
		}
		logger.Debug("[DEBUG] Restoring %s from %s\n", f.Name, path)
		return &multiCloser{Reader: rc, closers: []io.Closer{rc, r}}, nil
	}
	r.Close()
	return nil, fmt.Errorf("no .sql file in %s", path)
}

func open7z(path string) (io.ReadCloser, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isSQL(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close()
			return nil, err
		}
		logger.Debug("[DEBUG] Restoring %s from %s\n", f.Name, path)
		return &multiCloser{Reader: rc, closers: []io.Closer{rc, r}}, nil
	}
	r.Close()
	return nil, fmt.Errorf("no .sql file in %s", path)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk keeps objects under a root directory.
type LocalDisk struct {
	root    string
	baseURL string
}

// NewLocalDisk roots the disk at root, made absolute against the working
// directory.
func NewLocalDisk(root, baseURL string) *LocalDisk {
	if !filepath.IsAbs(root) {
		cwd, _ := os.Getwd()
		root = filepath.Join(cwd, root)
	}
	return &LocalDisk{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// abs maps path inside root; ".." segments cannot climb out.
func (d *LocalDisk) abs(path string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	return filepath.Join(d.root, clean)
}

func (d *LocalDisk) Put(_ context.Context, path string, r io.Reader, _ string) error {
	full := d.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage/local: mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("storage/local: create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("storage/local: write %s: %w", path, err)
	}
	return f.Close()
}

func (d *LocalDisk) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(d.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("storage/local: open %s: %w", path, err)
	}
	return f, nil
}

func (d *LocalDisk) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(d.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *LocalDisk) Delete(_ context.Context, path string) error {
	err := os.Remove(d.abs(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage/local: delete %s: %w", path, err)
	}
	return nil
}

func (d *LocalDisk) URL(path string) string {
	return d.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(path), "/")
}

// Handler serves the disk's files read-only; mount it under STORAGE_URL's path.
func (d *LocalDisk) Handler() http.Handler {
	return http.FileServer(http.Dir(d.root))
}

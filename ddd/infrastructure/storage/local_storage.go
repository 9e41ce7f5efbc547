package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps clip artifacts under the clips root on local disk.
type LocalStorage struct {
	root string
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

// Root returns the clips root.
func (s *LocalStorage) Root() string { return s.root }

// Path resolves dir under the root. It refuses anything that would escape the root.
func (s *LocalStorage) Path(dir string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(dir))
	if clean == "/" {
		return "", fmt.Errorf("empty artifact dir")
	}
	full := filepath.Join(s.root, clean)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("artifact dir %q escapes clips root", dir)
	}
	return full, nil
}

// Publish copies nothing when the encoder already wrote into the root.
func (s *LocalStorage) Publish(_ context.Context, dir, localDir string) error {
	target, err := s.Path(dir)
	if err != nil {
		return err
	}
	if filepath.Clean(localDir) == target {
		return nil
	}
	return copyTree(localDir, target)
}

// Remove deletes dir and returns the bytes it held. A missing directory is not an error.
func (s *LocalStorage) Remove(_ context.Context, dir string) (int64, error) {
	target, err := s.Path(dir)
	if err != nil {
		return 0, err
	}
	size, err := dirSize(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if err := os.RemoveAll(target); err != nil {
		return 0, fmt.Errorf("remove %s: %w", target, err)
	}
	return size, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

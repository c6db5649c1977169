package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// RemoveError reports the first path a tree removal could not delete.
type RemoveError struct {
	Path string
	Err  error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("failed to remove %s: %v", e.Path, e.Err)
}

func (e *RemoveError) Unwrap() error { return e.Err }

// RemoveTree deletes path depth-first: every child is removed before its
// parent directory. The walk stops at the first failure, which is returned as
// a *RemoveError naming the path that could not be removed. A missing path is
// not an error. Symlinks are removed, never followed.
func RemoveTree(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &RemoveError{Path: path, Err: err}
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return &RemoveError{Path: path, Err: err}
		}
		for _, entry := range entries {
			if err := RemoveTree(filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &RemoveError{Path: path, Err: err}
	}
	return nil
}

// ListDirs returns the absolute paths of the direct subdirectories of dir,
// sorted by name. Regular files and symlinks are ignored. A missing dir yields
// an empty list.
func ListDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	root := absPath(dir)
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// DirSize returns the total size and number of regular files below dir.
// A missing dir is empty.
func DirSize(dir string) (size int64, count int, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		count++
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("error walking directory %s: %w", dir, err)
	}
	return size, count, nil
}

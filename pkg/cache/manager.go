// Package cache inspects and cleans the distribution cache.
//
// The cache is laid out as <dir>/<distName>/<key>/ holding the archive with its
// .part, .checksum and .lock siblings, and the extraction directory.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/filelock"
	"github.com/glorpus-work/distboot/pkg/fsutil"
)

const (
	lockSuffix     = ".lock"
	partSuffix     = ".part"
	checksumSuffix = ".checksum"
)

// DefaultManager implements the Manager interface for cache operations.
type DefaultManager struct {
	directory string
}

// NewManager creates a new cache manager rooted at directory.
func NewManager(directory string) *DefaultManager {
	return &DefaultManager{
		directory: directory,
	}
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.directory
}

// SetDirectory sets the cache directory path.
func (cm *DefaultManager) SetDirectory(dir string) error {
	if dir == "" {
		return errors.ErrCacheDirectory
	}
	cm.directory = dir
	return nil
}

// GetInfo walks the cache and returns its sizes.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	if cm.directory == "" {
		return nil, errors.ErrCacheDirectory
	}
	info := &Info{Directory: cm.directory}

	entries, err := cm.entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		files, err := archiveFiles(e.Dir)
		if err != nil {
			return nil, err
		}
		info.ArchiveFiles += len(files)
		info.ArchiveSize += e.ArchiveSize
		info.DistributionSize += e.DistributionSize
		if e.Extracted {
			info.Distributions++
		}
	}
	info.TotalSize = info.ArchiveSize + info.DistributionSize
	info.Entries = entries
	return info, nil
}

// Clean removes cached files according to the specified options. Each entry
// is cleaned while holding the lock an install of it would take, so a
// running install is waited for until ctx is done.
func (cm *DefaultManager) Clean(ctx context.Context, options CleanOptions) (*CleanResult, error) {
	if cm.directory == "" {
		return nil, errors.ErrCacheDirectory
	}
	if !options.Archives && !options.Distributions {
		options.All = true
	}

	entries, err := cm.entries()
	if err != nil {
		return nil, err
	}

	result := &CleanResult{}
	for _, e := range entries {
		if err := cleanEntry(ctx, e, options, result); err != nil {
			return nil, err
		}
	}
	result.TotalFreed = result.ArchiveFreed + result.DistributionFreed

	logger.Debug("cache cleaned", logger.Fields{
		"directory":          cm.directory,
		"archive_freed":      result.ArchiveFreed,
		"distribution_freed": result.DistributionFreed,
	})
	return result, nil
}

func cleanEntry(ctx context.Context, e Entry, options CleanOptions, result *CleanResult) error {
	unlock, err := lockEntry(ctx, e.Dir)
	if err != nil {
		return errors.Wrapf(err, "failed to lock %s", e.Name)
	}
	defer unlock()

	if options.All || options.Distributions {
		freed, err := cleanDistributions(e.Dir)
		if err != nil {
			return errors.Wrapf(err, "failed to clean distributions of %s", e.Name)
		}
		result.DistributionFreed += freed
	}
	if options.All || options.Archives {
		freed, err := cleanArchives(e.Dir)
		if err != nil {
			return errors.Wrapf(err, "failed to clean archives of %s", e.Name)
		}
		result.ArchiveFreed += freed
	}
	return nil
}

// lockEntry acquires, in sorted order, every lock an install of the entry may
// hold: existing lock files and <archive>.lock for each archive present.
func lockEntry(ctx context.Context, keyDir string) (func(), error) {
	dirEntries, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", keyDir)
	}
	paths := make(map[string]bool)
	for _, entry := range dirEntries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, lockSuffix):
			paths[filepath.Join(keyDir, name)] = true
		case strings.HasSuffix(name, partSuffix), strings.HasSuffix(name, checksumSuffix):
		default:
			paths[filepath.Join(keyDir, name+lockSuffix)] = true
		}
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var held []*filelock.Lock
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(); err != nil {
				logger.Warn("failed to release cache lock", logger.Fields{"path": held[i].Path(), "error": err.Error()})
			}
		}
	}
	for _, p := range sorted {
		lock, err := filelock.Acquire(ctx, p)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}

// entries lists every <distName>/<key> directory below the cache root.
func (cm *DefaultManager) entries() ([]Entry, error) {
	names, err := fsutil.ListDirs(cm.directory)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cache directory")
	}

	var entries []Entry
	for _, nameDir := range names {
		keys, err := fsutil.ListDirs(nameDir)
		if err != nil {
			return nil, err
		}
		for _, keyDir := range keys {
			e, err := describe(filepath.Base(nameDir), keyDir)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func describe(name, keyDir string) (Entry, error) {
	e := Entry{Name: name, Key: filepath.Base(keyDir), Dir: keyDir}

	files, err := archiveFiles(keyDir)
	if err != nil {
		return e, err
	}
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			return e, errors.Wrapf(err, "failed to stat %s", f)
		}
		e.ArchiveSize += st.Size()
	}

	dirs, err := fsutil.ListDirs(keyDir)
	if err != nil {
		return e, err
	}
	for _, d := range dirs {
		size, _, err := fsutil.DirSize(d)
		if err != nil {
			return e, err
		}
		e.DistributionSize += size
		roots, err := fsutil.ListDirs(d)
		if err != nil {
			return e, err
		}
		if len(roots) > 0 {
			e.Extracted = true
		}
	}
	return e, nil
}

// archiveFiles returns the regular files of a key directory, lock files excluded.
func archiveFiles(keyDir string) ([]string, error) {
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", keyDir)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasSuffix(entry.Name(), lockSuffix) {
			continue
		}
		files = append(files, filepath.Join(keyDir, entry.Name()))
	}
	return files, nil
}

func cleanArchives(keyDir string) (int64, error) {
	files, err := archiveFiles(keyDir)
	if err != nil {
		return 0, err
	}
	var freed int64
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			return freed, errors.Wrapf(err, "failed to stat %s", f)
		}
		if err := fsutil.RemoveIfExists(f); err != nil {
			return freed, errors.Wrapf(err, "failed to remove %s", f)
		}
		freed += st.Size()
	}
	return freed, nil
}

func cleanDistributions(keyDir string) (int64, error) {
	dirs, err := fsutil.ListDirs(keyDir)
	if err != nil {
		return 0, err
	}
	var freed int64
	for _, d := range dirs {
		size, _, err := fsutil.DirSize(d)
		if err != nil {
			return freed, err
		}
		if err := fsutil.RemoveTree(d); err != nil {
			return freed, err
		}
		freed += size
	}
	return freed, nil
}

package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/errors"
)

// CacheOperation renders cache management results for the command line.
type CacheOperation struct {
	manager Manager
}

// NewCacheOperation creates a new cache operation instance.
func NewCacheOperation(manager Manager) *CacheOperation {
	return &CacheOperation{
		manager: manager,
	}
}

// Clean cleans the cache and describes what was freed.
func (op *CacheOperation) Clean(ctx context.Context, all, archives, distributions bool) (string, error) {
	options := CleanOptions{
		All:           all,
		Archives:      archives,
		Distributions: distributions,
	}

	logger.Debug("Cleaning cache", logger.Fields{
		"all":           options.All,
		"archives":      options.Archives,
		"distributions": options.Distributions,
	})

	result, err := op.manager.Clean(ctx, options)
	if err != nil {
		return "", fmt.Errorf("failed to clean cache: %w", err)
	}

	if result.TotalFreed == 0 {
		return "No files were removed from the cache.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Successfully cleaned cache. Freed %s of disk space.", humanize.Bytes(uint64(result.TotalFreed)))
	if result.ArchiveFreed > 0 {
		fmt.Fprintf(&b, "\n- Archives: %s", humanize.Bytes(uint64(result.ArchiveFreed)))
	}
	if result.DistributionFreed > 0 {
		fmt.Fprintf(&b, "\n- Distributions: %s", humanize.Bytes(uint64(result.DistributionFreed)))
	}
	return b.String(), nil
}

// GetInfo describes the cache contents.
func (op *CacheOperation) GetInfo() (string, error) {
	info, err := op.manager.GetInfo()
	if err != nil {
		return "", fmt.Errorf("failed to get cache info: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Cache Information:
  Directory:     %s
  Total Size:    %s
  Archives:      %s (%d files)
  Distributions: %s (%d extracted)`,
		info.Directory,
		humanize.Bytes(uint64(info.TotalSize)),
		humanize.Bytes(uint64(info.ArchiveSize)),
		info.ArchiveFiles,
		humanize.Bytes(uint64(info.DistributionSize)),
		info.Distributions,
	)
	for _, e := range info.Entries {
		state := "not extracted"
		if e.Extracted {
			state = "extracted"
		}
		fmt.Fprintf(&b, "\n  - %s [%s] %s, %s", e.Name, e.Key, humanize.Bytes(uint64(e.ArchiveSize+e.DistributionSize)), state)
	}
	return b.String(), nil
}

// GetDirectory returns the cache directory path.
func (op *CacheOperation) GetDirectory() string {
	return op.manager.GetDirectory()
}

// SetDirectory sets a new cache directory.
func (op *CacheOperation) SetDirectory(dir string) error {
	if dir == "" {
		return errors.ErrCacheDirectory
	}

	logger.Debug("Setting cache directory", logger.Fields{"directory": dir})
	return op.manager.SetDirectory(dir)
}

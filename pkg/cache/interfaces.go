package cache

import "context"

// Manager defines the interface for cache management operations.
type Manager interface {
	Clean(ctx context.Context, options CleanOptions) (*CleanResult, error)
	GetInfo() (*Info, error)
	GetDirectory() string
	SetDirectory(dir string) error
}

// CleanOptions specifies what to clean from the cache. With nothing set,
// everything is cleaned.
type CleanOptions struct {
	All           bool
	Archives      bool // downloaded archives, checksums and partial downloads
	Distributions bool // extracted distribution trees
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	TotalFreed        int64
	ArchiveFreed      int64
	DistributionFreed int64
}

// Entry is one cached distribution, i.e. one <distName>/<key> directory.
type Entry struct {
	Name             string
	Key              string
	Dir              string
	ArchiveSize      int64
	DistributionSize int64
	Extracted        bool
}

// Info represents cache information.
type Info struct {
	Directory        string
	TotalSize        int64
	ArchiveSize      int64
	ArchiveFiles     int
	DistributionSize int64
	Distributions    int
	Entries          []Entry
}

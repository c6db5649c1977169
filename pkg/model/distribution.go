// Package model holds the value types exchanged between the distboot
// configuration layer, the path resolver and the installer.
package model

import "net/url"

// DefaultDistributionPath is the cache sub-path distributions are stored under.
const DefaultDistributionPath = "wrapper/dists"

// Configuration describes one install request. It is built once by the
// caller and never modified by the installer.
type Configuration struct {
	// DistributionURL locates the distribution archive.
	DistributionURL *url.URL
	// ChecksumURL locates a text file holding the expected checksum of the archive.
	ChecksumURL *url.URL
	// ChecksumAlgorithm names the algorithm used to verify the archive (e.g. "sha256").
	ChecksumAlgorithm string

	AlwaysDownload bool
	AlwaysUnpack   bool
	VerifyDownload bool

	// DistributionBase is the cache root.
	DistributionBase string
	// DistributionPath is the path below DistributionBase, DefaultDistributionPath when empty.
	DistributionPath string
}

// DistributionLocation returns the distribution URL as a string, or "" when unset.
func (c Configuration) DistributionLocation() string {
	if c.DistributionURL == nil {
		return ""
	}
	return c.DistributionURL.String()
}

// ChecksumLocation returns the checksum URL as a string, or "" when unset.
func (c Configuration) ChecksumLocation() string {
	if c.ChecksumURL == nil {
		return ""
	}
	return c.ChecksumURL.String()
}

// LocalDistribution is where a Configuration lives on disk.
type LocalDistribution struct {
	// ArchivePath is the canonical location of the downloaded archive.
	ArchivePath string
	// DistributionDir is the directory the archive is extracted into.
	DistributionDir string
}

// PartPath is the in-progress download path for the archive.
func (d LocalDistribution) PartPath() string {
	return d.ArchivePath + ".part"
}

// ChecksumPath is where the expected checksum is cached.
func (d LocalDistribution) ChecksumPath() string {
	return d.ArchivePath + ".checksum"
}

// LockPath is the advisory lock file guarding this cache entry.
func (d LocalDistribution) LockPath() string {
	return d.ArchivePath + ".lock"
}

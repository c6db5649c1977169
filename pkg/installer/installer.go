// Package installer makes a distribution archive available on local disk:
// it downloads, optionally verifies and unpacks the archive into the cache
// and returns the single root directory it contains.
package installer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/checksum"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/fsutil"
	"github.com/glorpus-work/distboot/pkg/model"
)

// Installer ties the resolver, fetcher, checksum registry and extractor
// together. Locker, Permissions and Executable are optional.
type Installer struct {
	Resolver    PathResolver
	Fetcher     Fetcher
	Checksums   ChecksumVerifier
	Extractor   Extractor
	Locker      Locker           // NopLocker when nil
	Permissions PermissionSetter // no permission step when nil
	Executable  string           // DefaultExecutable when empty
	Hooks       Hooks
}

// Install makes the distribution described by cfg available and returns its
// root directory. The cache entry is locked for the duration of the call.
func (i *Installer) Install(ctx context.Context, cfg model.Configuration) (string, error) {
	if err := i.check(); err != nil {
		return "", err
	}
	if cfg.DistributionURL == nil {
		return "", fmt.Errorf("distribution URL is not set: %w", errors.ErrMissingDistribution)
	}
	dist := location(cfg.DistributionURL)

	var algorithm checksum.Algorithm
	if cfg.VerifyDownload {
		a, err := i.verification(cfg)
		if err != nil {
			return "", err
		}
		algorithm = a
	}

	local, err := i.Resolver.Resolve(cfg)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve paths for '%s'", dist)
	}
	logger.Debug("resolved distribution", logger.Fields{
		"url":     dist,
		"archive": local.ArchivePath,
		"dir":     local.DistributionDir,
	})

	unlock, err := i.locker().Lock(ctx, local.LockPath())
	if err != nil {
		return "", errors.Wrapf(err, "failed to lock cache entry for '%s'", dist)
	}
	defer func() {
		if err := unlock.Unlock(); err != nil {
			logger.Warn("failed to release cache lock", logger.Fields{"path": local.LockPath(), "error": err.Error()})
		}
	}()

	downloaded := false
	if cfg.AlwaysDownload || !fsutil.IsFile(local.ArchivePath) {
		if err := i.download(ctx, cfg, local, algorithm); err != nil {
			return "", err
		}
		downloaded = true
	}

	dirs, err := fsutil.ListDirs(local.DistributionDir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list %s", local.DistributionDir)
	}

	if downloaded || cfg.AlwaysUnpack || len(dirs) == 0 {
		dirs, err = i.unpack(ctx, dist, local, dirs)
		if err != nil {
			return "", err
		}
	}

	if len(dirs) != 1 {
		return "", fmt.Errorf("distribution '%s' contains too many directories. Expected to find exactly 1 directory: %w",
			dist, errors.ErrStructure)
	}

	emit(i.Hooks, Event{Phase: PhaseDone, ID: dist, Msg: dirs[0]})
	return dirs[0], nil
}

func (i *Installer) check() error {
	switch {
	case i.Resolver == nil:
		return fmt.Errorf("path resolver is not configured")
	case i.Fetcher == nil:
		return fmt.Errorf("fetcher is not configured")
	case i.Checksums == nil:
		return fmt.Errorf("checksum verifier is not configured")
	case i.Extractor == nil:
		return fmt.Errorf("extractor is not configured")
	}
	return nil
}

func (i *Installer) locker() Locker {
	if i.Locker == nil {
		return NopLocker{}
	}
	return i.Locker
}

// download fetches the archive to its .part sibling, verifies it when asked
// and renames it over the canonical archive. A failed verification leaves
// the canonical archive untouched.
func (i *Installer) download(ctx context.Context, cfg model.Configuration, local model.LocalDistribution, algorithm checksum.Algorithm) error {
	dist := location(cfg.DistributionURL)
	part := local.PartPath()
	if err := fsutil.EnsureFileDir(part); err != nil {
		return errors.Wrapf(err, "failed to create cache directory for '%s'", dist)
	}
	if err := fsutil.RemoveIfExists(part); err != nil {
		return errors.Wrapf(err, "failed to remove stale download %s", part)
	}

	emit(i.Hooks, Event{Phase: PhaseDownloading, ID: dist, Msg: "Downloading " + dist})
	if err := i.Fetcher.Fetch(ctx, cfg.DistributionURL, part); err != nil {
		return err
	}

	if cfg.VerifyDownload {
		if err := i.verify(ctx, cfg, local, part, algorithm); err != nil {
			return err
		}
	}

	if err := fsutil.Move(part, local.ArchivePath); err != nil {
		return errors.Wrapf(err, "failed to promote %s", part)
	}
	return nil
}

// verification checks the verification settings before anything is fetched.
func (i *Installer) verification(cfg model.Configuration) (checksum.Algorithm, error) {
	dist := location(cfg.DistributionURL)
	if cfg.ChecksumURL == nil {
		return nil, fmt.Errorf("cannot verify '%s': %w: %w", dist, errors.ErrInvalidConfiguration, errors.ErrMissingChecksumURL)
	}
	algorithm, err := i.Checksums.Lookup(cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("cannot verify '%s': %w: %w", dist, errors.ErrInvalidConfiguration, err)
	}
	return algorithm, nil
}

// verify checks archivePath against the checksum published at cfg.ChecksumURL.
// The checksum is cached next to the archive.
func (i *Installer) verify(ctx context.Context, cfg model.Configuration, local model.LocalDistribution, archivePath string, algorithm checksum.Algorithm) error {
	dist := location(cfg.DistributionURL)
	sum := location(cfg.ChecksumURL)

	checksumPath := local.ChecksumPath()
	part := checksumPath + ".part"
	if err := fsutil.RemoveIfExists(part); err != nil {
		return errors.Wrapf(err, "failed to remove stale checksum %s", part)
	}

	emit(i.Hooks, Event{Phase: PhaseVerifying, ID: dist, Msg: "Verifying with " + sum})
	if err := i.Fetcher.Fetch(ctx, cfg.ChecksumURL, part); err != nil {
		return err
	}
	if err := fsutil.Move(part, checksumPath); err != nil {
		return errors.Wrapf(err, "failed to promote %s", part)
	}

	expected, err := readChecksum(checksumPath)
	if err != nil {
		return fmt.Errorf("distribution '%s' failed to verify against '%s': %w", dist, sum, err)
	}

	ok, err := verifyFile(algorithm, archivePath, expected)
	if err != nil {
		return errors.Wrapf(err, "failed to hash %s", archivePath)
	}
	if !ok {
		return fmt.Errorf("distribution '%s' failed to verify against '%s': %w", dist, sum, errors.ErrChecksumMismatch)
	}
	logger.Debug("checksum verified", logger.Fields{"algorithm": algorithm.Name(), "archive": archivePath})
	return nil
}

func readChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return checksum.ReadValue(f)
}

func verifyFile(algorithm checksum.Algorithm, path, expected string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	return algorithm.Verify(f, expected)
}

// unpack replaces the current contents of the extraction directory with the
// archive's and returns the new top-level directories.
func (i *Installer) unpack(ctx context.Context, dist string, local model.LocalDistribution, existing []string) ([]string, error) {
	for _, dir := range existing {
		emit(i.Hooks, Event{Phase: PhaseDeleting, ID: dist, Msg: "Deleting directory " + dir})
		if err := fsutil.RemoveTree(dir); err != nil {
			return nil, errors.Wrapf(err, "failed to delete %s", dir)
		}
	}

	archivePath, distDir := absolute(local.ArchivePath), absolute(local.DistributionDir)
	emit(i.Hooks, Event{Phase: PhaseUnpacking, ID: dist, Msg: fmt.Sprintf("Unzipping %s to %s", archivePath, distDir)})
	if err := i.Extractor.Extract(ctx, local.ArchivePath, local.DistributionDir); err != nil {
		return nil, errors.Wrapf(err, "failed to unpack '%s'", dist)
	}

	dirs, err := fsutil.ListDirs(local.DistributionDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", local.DistributionDir)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("distribution '%s' does not contain any directories. Expected to find exactly 1 directory: %w",
			dist, errors.ErrStructure)
	}

	i.makeExecutable(ctx, dist, dirs[0])
	return dirs, nil
}

// makeExecutable applies the permission step. Failures are reported, never returned.
func (i *Installer) makeExecutable(ctx context.Context, dist, root string) {
	if i.Permissions == nil {
		return
	}
	executable := i.Executable
	if executable == "" {
		executable = DefaultExecutable
	}
	target := filepath.Join(root, filepath.FromSlash(executable))

	if err := i.Permissions.MakeExecutable(ctx, target); err != nil {
		logger.Warn("failed to set executable permissions", logger.Fields{"path": target, "error": err.Error()})
		emit(i.Hooks, Event{Phase: PhaseWarning, ID: dist, Msg: "Could not set executable permissions for: " + target})
		emit(i.Hooks, Event{Phase: PhaseWarning, ID: dist, Msg: "Please do this manually if you want to use the distribution."})
		return
	}
	emit(i.Hooks, Event{Phase: PhasePermissions, ID: dist, Msg: "Set executable permissions for: " + target})
}

func location(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Package resolver maps a configuration to its deterministic cache paths.
package resolver

import (
	"crypto/md5" //nolint:gosec // cache key, not a security boundary
	"fmt"
	"math/big"
	"path"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/model"
)

var archiveExtensions = []string{".tar.gz", ".tgz", ".zip", ".tar"}

// Resolver computes archive and extraction paths below the configured cache root.
type Resolver struct{}

// New returns a Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve returns the archive path and extraction directory for cfg:
//
//	<base>/<distPath>/<distName>/<key>/<archiveName>
//	<base>/<distPath>/<distName>/<key>/<distName>
func (r *Resolver) Resolve(cfg model.Configuration) (model.LocalDistribution, error) {
	if cfg.DistributionURL == nil {
		return model.LocalDistribution{}, fmt.Errorf("distribution URL is not set: %w", errors.ErrInvalidPath)
	}
	if cfg.DistributionBase == "" {
		return model.LocalDistribution{}, fmt.Errorf("distribution base is not set: %w", errors.ErrInvalidPath)
	}

	archiveName := ArchiveName(cfg.DistributionURL.Path)
	if archiveName == "" {
		return model.LocalDistribution{}, fmt.Errorf("cannot derive archive name from %s: %w",
			cfg.DistributionURL.Redacted(), errors.ErrInvalidPath)
	}
	distName := DistName(archiveName)

	distPath := cfg.DistributionPath
	if distPath == "" {
		distPath = model.DefaultDistributionPath
	}
	if filepath.IsAbs(distPath) {
		return model.LocalDistribution{}, fmt.Errorf("distribution path %q must be relative: %w", distPath, errors.ErrInvalidPath)
	}

	root := filepath.Join(cfg.DistributionBase, filepath.FromSlash(distPath), distName, Key(cfg.DistributionLocation()))
	return model.LocalDistribution{
		ArchivePath:     filepath.Join(root, archiveName),
		DistributionDir: filepath.Join(root, distName),
	}, nil
}

// Key is the base-36 MD5 of the distribution URL.
func Key(location string) string {
	sum := md5.Sum([]byte(location)) //nolint:gosec
	return new(big.Int).SetBytes(sum[:]).Text(36)
}

// ArchiveName is the last segment of a URL path.
func ArchiveName(urlPath string) string {
	name := path.Base(urlPath)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// DistName strips the archive extension from an archive name.
func DistName(archiveName string) string {
	lower := strings.ToLower(archiveName)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) && len(archiveName) > len(ext) {
			return archiveName[:len(archiveName)-len(ext)]
		}
	}
	if i := strings.LastIndex(archiveName, "."); i > 0 {
		return archiveName[:i]
	}
	return archiveName
}

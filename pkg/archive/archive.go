// Package archive unpacks distribution archives and builds them for tests
// and fixtures. Zip, tar and compressed tar archives are supported.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/fsutil"
	"github.com/mholt/archives"
)

// Manager handles archive extraction and creation.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Extract unpacks archivePath into destDir, visiting entries in the order
// they are stored in the archive. Directory entries are created eagerly;
// file entries are streamed to a new or truncated file. Parent directories of
// a file are created even when the archive has no entry for them. Entries
// resolving outside destDir are rejected.
func (am *Manager) Extract(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = file.Close() }()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), file)
	if err != nil {
		return fmt.Errorf("failed to identify archive %s: %w", archivePath, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("format %s of %s cannot be extracted", format.Extension(), archivePath)
	}
	// zip needs random access, so hand the extractor the file itself rather
	// than the buffered stream returned by Identify.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind archive: %w", err)
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	destDir, err = filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("invalid destination directory: %w", err)
	}

	handler := func(ctx context.Context, info archives.FileInfo) error {
		return am.extractEntry(info, destDir)
	}
	if err := extractor.Extract(ctx, file, handler); err != nil {
		return fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}
	return nil
}

// Create archives the contents of sourceDir into archivePath. The format is
// chosen from the extension: .zip, .tar, .tar.gz or .tgz.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	format, err := formatFor(archivePath)
	if err != nil {
		return err
	}

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}

	if err := format.Archive(ctx, out, files); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	return out.Close()
}

func formatFor(archivePath string) (archives.Archiver, error) {
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return archives.Zip{}, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}, nil
	case strings.HasSuffix(name, ".tar"):
		return archives.Tar{}, nil
	default:
		return nil, fmt.Errorf("unsupported archive extension %s", filepath.Ext(archivePath))
	}
}

// targetPath maps an archive entry name into destDir.
func targetPath(destDir, nameInArchive string) (string, bool, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(nameInArchive, "\\", "/"))
	if cleaned == "/" {
		return "", false, nil
	}
	if strings.Contains(nameInArchive, "..") {
		for _, part := range strings.Split(strings.ReplaceAll(nameInArchive, "\\", "/"), "/") {
			if part == ".." {
				return "", false, fmt.Errorf("entry %q escapes destination: %w", nameInArchive, errors.ErrInvalidPath)
			}
		}
	}
	return filepath.Join(destDir, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), true, nil
}

// extractEntry writes one archive entry below destDir.
func (am *Manager) extractEntry(info archives.FileInfo, destDir string) error {
	target, ok, err := targetPath(destDir, info.NameInArchive)
	if err != nil || !ok {
		return err
	}

	if info.IsDir() {
		if err := checkInside(destDir, target); err != nil {
			return err
		}
		return os.MkdirAll(target, fsutil.DirModeDefault)
	}

	if err := checkInside(destDir, filepath.Dir(target)); err != nil {
		return err
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		return am.writeSymlink(info, target, destDir)
	}

	if !info.Mode().IsRegular() {
		logger.Debug("skipping special archive entry", logger.Fields{"entry": info.NameInArchive, "mode": info.Mode().String()})
		return nil
	}
	return am.writeRegularFile(info, target)
}

// writeSymlink recreates a symlink entry. Tar carries the target in the
// header; zip stores it as the entry's content.
func (am *Manager) writeSymlink(info archives.FileInfo, target, destDir string) error {
	linkTarget := info.LinkTarget
	if linkTarget == "" {
		src, err := info.Open()
		if err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", info.NameInArchive, err)
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return fmt.Errorf("failed to read symlink target %s: %w", info.NameInArchive, err)
		}
		linkTarget = string(data)
	}
	if err := validateSymlinkTarget(target, linkTarget, destDir); err != nil {
		return err
	}

	if err := fsutil.EnsureFileDir(target); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", info.NameInArchive, err)
	}
	_ = os.Remove(target)
	return os.Symlink(linkTarget, target)
}

// writeRegularFile streams a file entry to target, keeping its permission bits.
func (am *Manager) writeRegularFile(info archives.FileInfo, target string) error {
	src, err := info.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", info.NameInArchive, err)
	}
	defer func() { _ = src.Close() }()

	if err := fsutil.EnsureFileDir(target); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", info.NameInArchive, err)
	}

	// An existing symlink at target would be written through.
	if fi, err := os.Lstat(target); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("failed to replace symlink %s: %w", target, err)
		}
	}

	perm := info.Mode().Perm()
	if perm == 0 {
		perm = fsutil.FileModeDefault
	}
	dst, err := fsutil.CreateFilePerm(target, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy file %s: %w", info.NameInArchive, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}

	if err := os.Chmod(target, perm); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", target, err)
	}
	if modTime := info.ModTime(); !modTime.IsZero() {
		if err := os.Chtimes(target, modTime, modTime); err != nil {
			return fmt.Errorf("failed to set modification time for %s: %w", target, err)
		}
	}
	return nil
}

// validateSymlinkTarget rejects absolute link targets and relative ones that
// leave destDir once resolved against the link's own directory.
func validateSymlinkTarget(linkPath, linkTarget, destDir string) error {
	if linkTarget == "" || filepath.IsAbs(linkTarget) || strings.HasPrefix(linkTarget, "/") || strings.HasPrefix(linkTarget, "\\") {
		return fmt.Errorf("symlink %s -> %q points outside destination: %w", linkPath, linkTarget, errors.ErrInvalidPath)
	}
	resolved := filepath.Join(filepath.Dir(linkPath), filepath.FromSlash(linkTarget))
	if !within(destDir, resolved) {
		return fmt.Errorf("symlink %s -> %q points outside destination: %w", linkPath, linkTarget, errors.ErrInvalidPath)
	}
	return nil
}

// checkInside resolves the deepest existing ancestor of dir (dir included)
// through symlinks and rejects it unless it stays below destDir.
func checkInside(destDir, dir string) error {
	root, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination %s: %w", destDir, err)
	}
	for current := dir; ; {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			if !within(root, resolved) {
				return fmt.Errorf("%s resolves to %s outside destination: %w", dir, resolved, errors.ErrInvalidPath)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve %s: %w", current, err)
		}
		parent := filepath.Dir(current)
		if current == destDir || parent == current {
			return nil
		}
		current = parent
	}
}

// within reports whether p is dir or lies below it. Both must be absolute and clean.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Package filelock provides an advisory, cross-process exclusive lock backed
// by a regular file.
package filelock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/fsutil"
)

// DefaultPollInterval is how often a held lock is retried.
const DefaultPollInterval = 100 * time.Millisecond

// Lock is a held lock. The lock file is left in place on Unlock so that
// waiters never lock a file that is about to be unlinked.
type Lock struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Acquire blocks until the lock at path is held or ctx is done, polling
// every DefaultPollInterval.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	return AcquireWithInterval(ctx, path, DefaultPollInterval)
}

// AcquireWithInterval is Acquire with a custom poll interval.
func AcquireWithInterval(ctx context.Context, path string, interval time.Duration) (*Lock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path cannot be empty: %w", errors.ErrInvalidPath)
	}
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, errors.Wrapf(err, "create lock directory for %s", path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, fsutil.FileModeDefault)
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file %s", path)
	}

	waited := false
	for {
		locked, err := tryLock(file)
		if err != nil {
			_ = file.Close()
			return nil, errors.Wrapf(err, "lock %s", path)
		}
		if locked {
			break
		}
		if !waited {
			logger.Debug("waiting for cache lock", logger.Fields{"path": path})
			waited = true
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = file.Close()
			return nil, fmt.Errorf("%s: %w: %w", path, errors.ErrLockTimeout, ctx.Err())
		case <-timer.C:
		}
	}

	l := &Lock{path: path, file: file}
	if err := l.writeMetadata(); err != nil {
		logger.Debug("could not record lock owner", logger.Fields{"path": path, "error": err.Error()})
	}
	return l, nil
}

// writeMetadata records the owning pid and acquisition time for humans
// inspecting a stuck lock.
func (l *Lock) writeMetadata() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	data := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := l.file.WriteAt([]byte(data), 0); err != nil {
		return err
	}
	return l.file.Sync()
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Unlock releases the lock. Calling it more than once is a no-op.
func (l *Lock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	unlockErr := unlock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return errors.Wrapf(unlockErr, "unlock %s", l.path)
	}
	return closeErr
}

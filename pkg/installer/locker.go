package installer

import (
	"context"

	"github.com/glorpus-work/distboot/pkg/filelock"
)

// FileLocker takes an advisory file lock next to the cached archive.
type FileLocker struct{}

// Lock blocks until the lock at path is held or ctx is done.
func (FileLocker) Lock(ctx context.Context, path string) (Unlocker, error) {
	l, err := filelock.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// NopLocker performs no locking.
type NopLocker struct{}

// Lock returns immediately.
func (NopLocker) Lock(context.Context, string) (Unlocker, error) {
	return nopUnlocker{}, nil
}

type nopUnlocker struct{}

func (nopUnlocker) Unlock() error { return nil }

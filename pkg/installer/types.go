//go:generate mockgen -destination=./mocks/installer.go . PathResolver,Fetcher,ChecksumVerifier,Extractor,Locker,Unlocker,PermissionSetter

package installer

import (
	"context"
	"net/url"

	"github.com/glorpus-work/distboot/pkg/checksum"
	"github.com/glorpus-work/distboot/pkg/model"
)

// DefaultExecutable is made executable inside the extracted distribution root.
const DefaultExecutable = "bin/mvn"

// PathResolver maps a configuration to its cache paths.
type PathResolver interface {
	Resolve(cfg model.Configuration) (model.LocalDistribution, error)
}

// Fetcher writes the resource at src to dest.
type Fetcher interface {
	Fetch(ctx context.Context, src *url.URL, dest string) error
}

// ChecksumVerifier looks up checksum algorithms by name.
type ChecksumVerifier interface {
	Lookup(name string) (checksum.Algorithm, error)
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Locker serializes installs sharing a cache entry.
type Locker interface {
	Lock(ctx context.Context, path string) (Unlocker, error)
}

// Unlocker releases a lock taken by a Locker.
type Unlocker interface {
	Unlock() error
}

// PermissionSetter marks a file executable.
type PermissionSetter interface {
	MakeExecutable(ctx context.Context, path string) error
}

// Event is a progress notification. Msg is the human-readable line.
type Event struct {
	Phase string // downloading|verifying|deleting|unpacking|permissions|warning|done
	ID    string // distribution location
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Event phases.
const (
	PhaseDownloading = "downloading"
	PhaseVerifying   = "verifying"
	PhaseDeleting    = "deleting"
	PhaseUnpacking   = "unpacking"
	PhasePermissions = "permissions"
	PhaseWarning     = "warning"
	PhaseDone        = "done"
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

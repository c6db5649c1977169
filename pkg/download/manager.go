// Package download fetches distribution archives and checksum files from
// http(s) and file URLs.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/auth"
	pkgerrors "github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/fsutil"
)

// DefaultUserAgent is sent when no version-specific user agent is configured.
const DefaultUserAgent = "distboot"

// Manager writes the bytes behind a URL to a local file. It does not retry;
// temp files and promotion are the caller's business.
type Manager struct {
	client        *http.Client
	userAgent     string
	authenticator auth.Authenticator
	getenv        func(string) string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithAuthenticator sets the credentials used when neither the URL nor the
// environment supply any.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(m *Manager) { m.authenticator = a }
}

// WithEnv replaces the environment lookup used for DISTBOOT_USERNAME and
// DISTBOOT_PASSWORD.
func WithEnv(getenv func(string) string) Option {
	return func(m *Manager) { m.getenv = getenv }
}

// WithHTTPClient replaces the HTTP client. The timeout argument of
// NewManager is ignored when this option is used.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// NewManager creates a new download manager with the given timeout and user agent.
func NewManager(timeout time.Duration, userAgent string, opts ...Option) *Manager {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	m := &Manager{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		getenv:    os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch copies src to dest, creating dest's parent directory. Any failure is
// reported as ErrTransport.
func (m *Manager) Fetch(ctx context.Context, src *url.URL, dest string) error {
	if src == nil {
		return fmt.Errorf("nil URL: %w", pkgerrors.ErrTransport)
	}
	if err := fsutil.EnsureFileDir(dest); err != nil {
		return fmt.Errorf("could not create download dir for %s: %w: %w", dest, pkgerrors.ErrTransport, err)
	}

	switch strings.ToLower(src.Scheme) {
	case "http", "https":
		return m.fetchHTTP(ctx, src, dest)
	case "file":
		return fetchFile(src, dest)
	default:
		return fmt.Errorf("unsupported URL scheme %q in %s: %w", src.Scheme, src.Redacted(), pkgerrors.ErrTransport)
	}
}

func (m *Manager) fetchHTTP(ctx context.Context, src *url.URL, dest string) error {
	resp, err := m.doRequest(ctx, src)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	logger.Debug("downloading", logger.Fields{"url": src.Redacted(), "dest": dest, "size": resp.ContentLength})
	if err := writeToFile(resp.Body, dest); err != nil {
		return fmt.Errorf("failed to download %s: %w: %w", src.Redacted(), pkgerrors.ErrTransport, err)
	}
	return nil
}

func (m *Manager) doRequest(ctx context.Context, src *url.URL) (*http.Response, error) {
	target := *src
	target.User = nil
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w: %w", src.Redacted(), pkgerrors.ErrTransport, err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	if a := auth.Select(src, m.authenticator, m.getenv); a != nil {
		if err := a.Apply(req); err != nil {
			return nil, fmt.Errorf("failed to apply %s authentication: %w: %w", a.Type(), pkgerrors.ErrTransport, err)
		}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download of %s failed: %w: %w", src.Redacted(), pkgerrors.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d for %s: %w", resp.StatusCode, src.Redacted(), pkgerrors.ErrTransport)
	}
	return resp, nil
}

func fetchFile(src *url.URL, dest string) error {
	path := src.Path
	if src.Opaque != "" {
		path = src.Opaque
	}
	// file:///C:/dir on windows parses with a leading slash before the drive.
	if len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	in, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w: %w", src.Redacted(), pkgerrors.ErrTransport, err)
	}
	defer func() { _ = in.Close() }()

	if err := writeToFile(in, dest); err != nil {
		return fmt.Errorf("failed to copy %s: %w: %w", src.Redacted(), pkgerrors.ErrTransport, err)
	}
	return nil
}

func writeToFile(r io.Reader, dest string) error {
	out, err := fsutil.CreateFilePerm(dest, fsutil.FileModeDefault)
	if err != nil {
		return pkgerrors.Wrap(err, "could not create file")
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return pkgerrors.Wrap(err, "could not write file")
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return pkgerrors.Wrap(err, "could not sync file")
	}
	if err := out.Close(); err != nil {
		return pkgerrors.Wrap(err, "could not close file")
	}
	return nil
}

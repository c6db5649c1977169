package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/distboot/pkg/auth"
	mock_auth "github.com/glorpus-work/distboot/pkg/auth/mocks"
	pkgerrors "github.com/glorpus-work/distboot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func noEnv(string) string { return "" }

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		userAgent  string
		expectedUA string
	}{
		{
			name:       "default user agent",
			timeout:    time.Second,
			expectedUA: "distboot",
		},
		{
			name:       "custom user agent",
			timeout:    2 * time.Second,
			userAgent:  "distboot/1.2.3",
			expectedUA: "distboot/1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.timeout, tt.userAgent)
			require.NotNil(t, m)
			assert.Equal(t, tt.timeout, m.client.Timeout)
			assert.Equal(t, tt.expectedUA, m.userAgent)
		})
	}
}

func TestFetch_HTTP(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectError    bool
		expectErrorMsg string
	}{
		{
			name: "successful download",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("test content"))
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expectError:    true,
			expectErrorMsg: "unexpected status code: 404",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError:    true,
			expectErrorMsg: "unexpected status code: 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "nested", "dist.zip.part")
			m := NewManager(5*time.Second, "", WithEnv(noEnv))
			err := m.Fetch(context.Background(), mustParse(t, server.URL+"/dist.zip"), dest)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrTransport)
				assert.Contains(t, err.Error(), tt.expectErrorMsg)
				return
			}
			require.NoError(t, err)
			content, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Equal(t, "test content", string(content))
		})
	}
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	m := NewManager(time.Second, "distboot/0.4.0", WithEnv(noEnv))
	require.NoError(t, m.Fetch(context.Background(), mustParse(t, server.URL), filepath.Join(t.TempDir(), "out")))
	assert.Equal(t, "distboot/0.4.0", gotUA)
}

func TestFetch_Credentials(t *testing.T) {
	type seen struct {
		user, pass string
		ok         bool
	}
	var got seen
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.user, got.pass, got.ok = r.BasicAuth()
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	t.Run("userinfo", func(t *testing.T) {
		got = seen{}
		u := mustParse(t, server.URL+"/dist.zip")
		u.User = url.UserPassword("alice", "secret")

		m := NewManager(time.Second, "", WithEnv(noEnv))
		require.NoError(t, m.Fetch(context.Background(), u, filepath.Join(t.TempDir(), "out")))
		assert.Equal(t, seen{"alice", "secret", true}, got)
	})

	t.Run("environment", func(t *testing.T) {
		got = seen{}
		env := map[string]string{auth.EnvUsername: "bob", auth.EnvPassword: "pw"}
		m := NewManager(time.Second, "", WithEnv(func(k string) string { return env[k] }))
		require.NoError(t, m.Fetch(context.Background(), mustParse(t, server.URL), filepath.Join(t.TempDir(), "out")))
		assert.Equal(t, seen{"bob", "pw", true}, got)
	})

	t.Run("none", func(t *testing.T) {
		got = seen{}
		m := NewManager(time.Second, "", WithEnv(noEnv))
		require.NoError(t, m.Fetch(context.Background(), mustParse(t, server.URL), filepath.Join(t.TempDir(), "out")))
		assert.False(t, got.ok)
	})
}

func TestFetch_ConfiguredAuthenticator(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Token")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctrl := gomock.NewController(t)
	authenticator := mock_auth.NewMockAuthenticator(ctrl)
	authenticator.EXPECT().Apply(gomock.Any()).DoAndReturn(func(req *http.Request) error {
		req.Header.Set("X-Token", "abc")
		return nil
	})

	m := NewManager(time.Second, "", WithEnv(noEnv), WithAuthenticator(authenticator))
	require.NoError(t, m.Fetch(context.Background(), mustParse(t, server.URL), filepath.Join(t.TempDir(), "out")))
	assert.Equal(t, "abc", gotToken)
}

func TestFetch_AuthenticatorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	authenticator := mock_auth.NewMockAuthenticator(ctrl)
	authenticator.EXPECT().Apply(gomock.Any()).Return(fmt.Errorf("token expired"))
	authenticator.EXPECT().Type().Return(auth.BearerAuthType)

	m := NewManager(time.Second, "", WithEnv(noEnv), WithAuthenticator(authenticator))
	err := m.Fetch(context.Background(), mustParse(t, "http://127.0.0.1:1/x"), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrTransport)
	assert.Contains(t, err.Error(), "bearer")
	assert.Contains(t, err.Error(), "token expired")
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.zip")
	require.NoError(t, os.WriteFile(src, []byte("local bytes"), 0o644))

	dest := filepath.Join(dir, "cache", "dist.zip.part")
	m := NewManager(time.Second, "")
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(src)}
	require.NoError(t, m.Fetch(context.Background(), u, dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "local bytes", string(content))

	missing := &url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(dir, "missing.zip"))}
	err = m.Fetch(context.Background(), missing, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrTransport)
}

func TestFetch_Errors(t *testing.T) {
	m := NewManager(time.Second, "", WithEnv(noEnv))
	dest := filepath.Join(t.TempDir(), "out")

	err := m.Fetch(context.Background(), nil, dest)
	assert.ErrorIs(t, err, pkgerrors.ErrTransport)

	err = m.Fetch(context.Background(), mustParse(t, "ftp://example.com/dist.zip"), dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrTransport)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestFetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(time.Second, "", WithEnv(noEnv))
	err := m.Fetch(ctx, mustParse(t, server.URL), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

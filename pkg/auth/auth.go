// Package auth applies credentials to distribution and checksum downloads.
//
//go:generate mockgen -destination=./mocks/auth.go . Authenticator
package auth

import (
	"net/http"
	"net/url"
)

// Environment variables consulted for basic credentials.
const (
	EnvUsername = "DISTBOOT_USERNAME"
	EnvPassword = "DISTBOOT_PASSWORD"
)

// Authenticator applies credentials to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type names an authentication scheme.
type Type string

// Authentication types.
const (
	BasicAuthType  Type = "basic"
	HeaderAuthType Type = "header"
	BearerAuthType Type = "bearer"
)

// BasicAuth sends HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Apply sets the Authorization header.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Type returns BasicAuthType.
func (b BasicAuth) Type() Type { return BasicAuthType }

// HeaderAuth sends arbitrary headers, e.g. a private repository token.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply sets every configured header.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns HeaderAuthType.
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// BearerAuth sends a bearer token.
type BearerAuth struct {
	Token string
}

// Apply sets the Authorization header.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns BearerAuthType.
func (b BearerAuth) Type() Type { return BearerAuthType }

// FromURL returns basic credentials embedded in the URL's userinfo, or nil.
func FromURL(u *url.URL) Authenticator {
	if u == nil || u.User == nil || u.User.Username() == "" {
		return nil
	}
	password, _ := u.User.Password()
	return BasicAuth{Username: u.User.Username(), Password: password}
}

// FromEnv returns basic credentials from DISTBOOT_USERNAME and
// DISTBOOT_PASSWORD, or nil when either is unset.
func FromEnv(getenv func(string) string) Authenticator {
	if getenv == nil {
		return nil
	}
	username, password := getenv(EnvUsername), getenv(EnvPassword)
	if username == "" || password == "" {
		return nil
	}
	return BasicAuth{Username: username, Password: password}
}

// Select picks the authenticator for a request to u. Userinfo in the URL wins,
// then the environment, then the configured fallback (which may be nil).
func Select(u *url.URL, configured Authenticator, getenv func(string) string) Authenticator {
	if a := FromURL(u); a != nil {
		return a
	}
	if a := FromEnv(getenv); a != nil {
		return a
	}
	return configured
}

package config

import (
	"github.com/glorpus-work/distboot/pkg/auth"
	"github.com/glorpus-work/distboot/pkg/errors"
)

// AuthConfig holds the credentials used for distribution and checksum downloads.
// At most one scheme may be set.
type AuthConfig struct {
	BasicAuth  *BasicAuth  `yaml:"basic,omitempty"`
	HeaderAuth *HeaderAuth `yaml:"header,omitempty"`
	BearerAuth *BearerAuth `yaml:"bearer,omitempty"`
}

// BasicAuth holds configuration for HTTP Basic Authentication.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HeaderAuth holds configuration for custom header-based authentication.
type HeaderAuth struct {
	Headers map[string]string `yaml:"headers"`
}

// BearerAuth holds configuration for Bearer token authentication.
type BearerAuth struct {
	Token string `yaml:"token"`
}

// ToAuthenticator converts the BasicAuth configuration to an Authenticator.
func (b *BasicAuth) ToAuthenticator() auth.Authenticator {
	return auth.BasicAuth{Username: b.Username, Password: b.Password}
}

// ToAuthenticator converts the HeaderAuth configuration to an Authenticator.
func (h *HeaderAuth) ToAuthenticator() auth.Authenticator {
	return auth.HeaderAuth{Headers: h.Headers}
}

// ToAuthenticator converts the BearerAuth configuration to an Authenticator.
func (b *BearerAuth) ToAuthenticator() auth.Authenticator {
	return auth.BearerAuth{Token: b.Token}
}

// ToAuthenticator returns the configured authenticator, or nil when none is set.
func (a *AuthConfig) ToAuthenticator() auth.Authenticator {
	if a == nil {
		return nil
	}
	switch {
	case a.BasicAuth != nil:
		return a.BasicAuth.ToAuthenticator()
	case a.HeaderAuth != nil:
		return a.HeaderAuth.ToAuthenticator()
	case a.BearerAuth != nil:
		return a.BearerAuth.ToAuthenticator()
	default:
		return nil
	}
}

// Validate rejects configurations naming more than one scheme.
func (a *AuthConfig) Validate() error {
	set := 0
	for _, ok := range []bool{a.BasicAuth != nil, a.HeaderAuth != nil, a.BearerAuth != nil} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return errors.Wrap(errors.ErrInvalidConfiguration, "auth: only one of basic, header or bearer may be set")
	}
	return nil
}

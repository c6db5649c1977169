package config

import (
	"testing"

	"github.com/glorpus-work/distboot/pkg/auth"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestAuthConfig_ToAuthenticator(t *testing.T) {
	tests := []struct {
		name     string
		config   *AuthConfig
		expected auth.Authenticator
	}{
		{name: "nil config", config: nil, expected: nil},
		{name: "empty config", config: &AuthConfig{}, expected: nil},
		{
			name:     "basic",
			config:   &AuthConfig{BasicAuth: &BasicAuth{Username: "user", Password: "pass"}},
			expected: auth.BasicAuth{Username: "user", Password: "pass"},
		},
		{
			name:     "header",
			config:   &AuthConfig{HeaderAuth: &HeaderAuth{Headers: map[string]string{"X-API-Key": "k"}}},
			expected: auth.HeaderAuth{Headers: map[string]string{"X-API-Key": "k"}},
		},
		{
			name:     "bearer",
			config:   &AuthConfig{BearerAuth: &BearerAuth{Token: "tok"}},
			expected: auth.BearerAuth{Token: "tok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.ToAuthenticator())
		})
	}
}

func TestAuthConfig_YAML(t *testing.T) {
	var s Settings
	err := yaml.Unmarshal([]byte(`auth:
  header:
    headers:
      X-Private-Token: abc
`), &s)
	assert.NoError(t, err)
	assert.Equal(t, auth.HeaderAuth{Headers: map[string]string{"X-Private-Token": "abc"}}, s.Auth.ToAuthenticator())
}

func TestAuthConfig_Validate(t *testing.T) {
	assert.NoError(t, (&AuthConfig{}).Validate())
	assert.NoError(t, (&AuthConfig{BearerAuth: &BearerAuth{}}).Validate())
	assert.ErrorIs(t, (&AuthConfig{BasicAuth: &BasicAuth{}, HeaderAuth: &HeaderAuth{}}).Validate(), errors.ErrInvalidConfiguration)
}

// Package config loads the project wrapper file and the user settings that
// together describe an install, and turns them into a model.Configuration.
//
// The wrapper file (.distboot/wrapper.yaml in the project) names the
// distribution; settings.yaml in the user home, optionally overlaid by
// .distboot/settings.yaml in the project, holds network, logging and
// credential settings.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/distboot/pkg/checksum"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/fsutil"
	"github.com/glorpus-work/distboot/pkg/model"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// Wrapper describes the distribution a project uses.
type Wrapper struct {
	DistributionURL   string `yaml:"distributionUrl"`
	ChecksumURL       string `yaml:"checksumUrl,omitempty"`
	ChecksumAlgorithm string `yaml:"checksumAlgorithm,omitempty"`
	AlwaysDownload    bool   `yaml:"alwaysDownload,omitempty"`
	AlwaysUnpack      bool   `yaml:"alwaysUnpack,omitempty"`
	VerifyDownload    bool   `yaml:"verifyDownload,omitempty"`
	DistributionBase  string `yaml:"distributionBase,omitempty"`
	DistributionPath  string `yaml:"distributionPath,omitempty"`
	Executable        string `yaml:"executable,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout,omitempty"`
	Auth        *AuthConfig   `yaml:"auth,omitempty"`

	// Output settings
	LogLevel     string `yaml:"log_level,omitempty"`     // debug, info, warn, error
	OutputFormat string `yaml:"output_format,omitempty"` // text, json
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout:  DefaultHTTPTimeout,
		LogLevel:     DefaultLogLevel,
		OutputFormat: "text",
	}
}

// LoadWrapper reads a wrapper file. A missing file yields an empty Wrapper.
func LoadWrapper(path string) (*Wrapper, error) {
	var w Wrapper
	if err := loadYAML(path, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadWrapperFromReader decodes a wrapper file from r.
func LoadWrapperFromReader(r io.Reader) (*Wrapper, error) {
	var w Wrapper
	if err := decodeYAML(r, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadSettings reads a settings file without applying defaults. A missing
// file yields zero Settings.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if err := loadYAML(path, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func loadYAML(path string, out interface{}) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	if err := decodeYAML(file, out); err != nil {
		return errors.Wrapf(err, "in %s", path)
	}
	return nil
}

func decodeYAML(r io.Reader, out interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "failed to read config data")
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	return nil
}

// Save writes the wrapper file atomically, creating its directory.
func (w *Wrapper) Save(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "invalid config path")
	}
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(w); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}
	_ = encoder.Close()
	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to write config")
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}
	return nil
}

// Overlay returns s with every field set in other replacing its value.
func (s Settings) Overlay(other Settings) Settings {
	if other.HTTPTimeout != 0 {
		s.HTTPTimeout = other.HTTPTimeout
	}
	if other.Auth != nil {
		s.Auth = other.Auth
	}
	if other.LogLevel != "" {
		s.LogLevel = other.LogLevel
	}
	if other.OutputFormat != "" {
		s.OutputFormat = other.OutputFormat
	}
	return s
}

// Validate checks if the settings are valid.
func (s Settings) Validate() error {
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	validFormats := map[string]bool{"": true, "text": true, "json": true}
	if !validFormats[strings.ToLower(s.OutputFormat)] {
		return errors.Wrapf(errors.ErrInvalidConfiguration, "invalid output format %q, must be text or json", s.OutputFormat)
	}
	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	if s.Auth != nil {
		if err := s.Auth.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the wrapper for missing or unparsable values.
func (w *Wrapper) Validate() error {
	if w == nil || strings.TrimSpace(w.DistributionURL) == "" {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, errors.ErrMissingDistribution)
	}
	if _, err := parseLocation("distributionUrl", w.DistributionURL); err != nil {
		return err
	}
	if w.ChecksumURL != "" {
		if _, err := parseLocation("checksumUrl", w.ChecksumURL); err != nil {
			return err
		}
	}
	if w.VerifyDownload && w.ChecksumURL == "" {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, errors.ErrMissingChecksumURL)
	}
	if _, err := checksum.NewRegistry().Lookup(w.ChecksumAlgorithm); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, err)
	}
	if w.DistributionPath != "" && filepath.IsAbs(w.DistributionPath) {
		return errors.Wrapf(errors.ErrInvalidConfiguration, "distributionPath %q must be relative", w.DistributionPath)
	}
	return nil
}

// ToConfiguration validates the wrapper and builds the install request.
// An empty distributionBase falls back to userHome.
func (w *Wrapper) ToConfiguration(userHome string) (model.Configuration, error) {
	if err := w.Validate(); err != nil {
		return model.Configuration{}, err
	}

	dist, _ := parseLocation("distributionUrl", w.DistributionURL)
	cfg := model.Configuration{
		DistributionURL:   dist,
		ChecksumAlgorithm: w.ChecksumAlgorithm,
		AlwaysDownload:    w.AlwaysDownload,
		AlwaysUnpack:      w.AlwaysUnpack,
		VerifyDownload:    w.VerifyDownload,
		DistributionBase:  w.DistributionBase,
		DistributionPath:  w.DistributionPath,
	}
	if w.ChecksumURL != "" {
		cfg.ChecksumURL, _ = parseLocation("checksumUrl", w.ChecksumURL)
	}
	if cfg.ChecksumAlgorithm == "" {
		cfg.ChecksumAlgorithm = checksum.DefaultAlgorithm
	}
	if cfg.DistributionBase == "" {
		cfg.DistributionBase = userHome
	}
	if cfg.DistributionPath == "" {
		cfg.DistributionPath = model.DefaultDistributionPath
	}
	return cfg, nil
}

// parseLocation accepts absolute URLs and bare local paths, which become file URLs.
func parseLocation(key, raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if filepath.IsAbs(raw) && !strings.Contains(raw, "://") {
		return &url.URL{Scheme: "file", Path: filepath.ToSlash(raw)}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfiguration, "%s %q: %v", key, raw, err)
	}
	if u.Scheme == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfiguration, "%s %q must be an absolute URL", key, raw)
	}
	return u, nil
}

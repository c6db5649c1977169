package config

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/glorpus-work/distboot/pkg/fsutil"
	"github.com/glorpus-work/distboot/pkg/model"
)

// EnvUserHome overrides the default user home.
const EnvUserHome = "DISTBOOT_USER_HOME"

// File names below the user home and the project's .distboot directory.
const (
	ProjectDirName   = ".distboot"
	WrapperFileName  = "wrapper.yaml"
	SettingsFileName = "settings.yaml"
)

// LoadOptions locate the files Load reads.
type LoadOptions struct {
	ProjectDir string              // current directory when empty
	UserHome   string              // from the --user-home flag; wins over the environment
	Getenv     func(string) string // os.Getenv when nil
}

// Loaded is the merged configuration for one invocation.
type Loaded struct {
	ProjectDir  string
	UserHome    string
	WrapperPath string
	Wrapper     *Wrapper
	Settings    Settings
}

// ResolveUserHome picks the user home: the explicit value, then
// DISTBOOT_USER_HOME, then ~/.distboot.
func ResolveUserHome(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if env := getenv(EnvUserHome); env != "" {
		return filepath.Abs(env)
	}
	return fsutil.DefaultUserHome()
}

// WrapperPath is the wrapper file of the project in projectDir.
func WrapperPath(projectDir string) string {
	return filepath.Join(projectDir, ProjectDirName, WrapperFileName)
}

// Load reads the wrapper file and the user and project settings. Settings
// are defaulted, overlaid (project over user) and validated; the wrapper is
// validated later by ToConfiguration so that command line overrides apply first.
func Load(opts LoadOptions) (*Loaded, error) {
	projectDir := opts.ProjectDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to determine working directory")
		}
		projectDir = wd
	}
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, errors.Wrap(err, "invalid project directory")
	}

	userHome, err := ResolveUserHome(opts.UserHome, opts.Getenv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to determine user home")
	}

	userSettings, err := LoadSettings(filepath.Join(userHome, SettingsFileName))
	if err != nil {
		return nil, err
	}
	projectSettings, err := LoadSettings(filepath.Join(projectDir, ProjectDirName, SettingsFileName))
	if err != nil {
		return nil, err
	}
	settings := DefaultSettings().Overlay(userSettings).Overlay(projectSettings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	wrapperPath := WrapperPath(projectDir)
	wrapper, err := LoadWrapper(wrapperPath)
	if err != nil {
		return nil, err
	}

	return &Loaded{
		ProjectDir:  projectDir,
		UserHome:    userHome,
		WrapperPath: wrapperPath,
		Wrapper:     wrapper,
		Settings:    settings,
	}, nil
}

// CacheDir is the directory distributions are cached under for this
// project: <distributionBase>/<distributionPath>.
func (l *Loaded) CacheDir() string {
	base := l.Wrapper.DistributionBase
	if base == "" {
		base = l.UserHome
	}
	path := l.Wrapper.DistributionPath
	if path == "" {
		path = model.DefaultDistributionPath
	}
	return filepath.Join(base, filepath.FromSlash(path))
}

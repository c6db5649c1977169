package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "distboot"

	// UserHomeDirName is the per-user directory below the OS home directory.
	UserHomeDirName = "." + AppName
)

// DefaultUserHome returns ~/.distboot. Distributions are cached below it unless
// the wrapper configuration names another distribution base.
func DefaultUserHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, UserHomeDirName), nil
}

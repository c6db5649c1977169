package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform is an OS/architecture pair.
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// Current returns the platform this binary runs on.
func Current() Platform {
	return Platform{OS: NormalizeOS(runtime.GOOS), Arch: runtime.GOARCH}
}

// String returns "os/arch".
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// HasExecutableBit reports whether files on this platform carry POSIX
// executable permissions.
func (p Platform) HasExecutableBit() bool {
	return !IsWindows(p.OS)
}

// IsWindows reports whether osName names a Windows flavour. The check is a
// case-insensitive substring match so values like "Windows 11" also qualify.
func IsWindows(osName string) bool {
	return strings.Contains(strings.ToLower(osName), OSWindows)
}

// NormalizeOS lower-cases an OS name and maps common aliases.
func NormalizeOS(os string) string {
	os = strings.ToLower(strings.TrimSpace(os))
	switch os {
	case "win", "win32", "win64":
		return OSWindows
	case "macos", "osx", "mac":
		return OSDarwin
	default:
		return os
	}
}

package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	p := Current()
	assert.Equal(t, runtime.GOOS, p.OS)
	assert.Equal(t, runtime.GOARCH, p.Arch)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, p.String())
	assert.Equal(t, runtime.GOOS != OSWindows, p.HasExecutableBit())
}

func TestIsWindows(t *testing.T) {
	tests := []struct {
		osName   string
		expected bool
	}{
		{osName: "windows", expected: true},
		{osName: "Windows 11", expected: true},
		{osName: "WINDOWS", expected: true},
		{osName: "linux", expected: false},
		{osName: "darwin", expected: false},
		{osName: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.osName, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsWindows(tt.osName))
		})
	}
}

func TestNormalizeOS(t *testing.T) {
	tests := map[string]string{
		"Linux":  OSLinux,
		"win":    OSWindows,
		"osx":    OSDarwin,
		"darwin": OSDarwin,
		"plan9":  "plan9",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeOS(in), in)
	}
}

// Package perm marks files inside an installed distribution as executable.
package perm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/glorpus-work/distboot/pkg/platform"
)

// Setter makes a single file executable.
type Setter interface {
	MakeExecutable(ctx context.Context, path string) error
}

// ChmodSetter shells out to chmod(1) and sets mode 755.
type ChmodSetter struct {
	// Command is the chmod binary, "chmod" when empty.
	Command string
}

// MakeExecutable runs "chmod 755 path". A nonzero exit is reported with the
// command's output.
func (c ChmodSetter) MakeExecutable(ctx context.Context, path string) error {
	command := c.Command
	if command == "" {
		command = "chmod"
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, command, "755", path)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%s 755 %s: %w: %s", command, path, err, msg)
		}
		return fmt.Errorf("%s 755 %s: %w", command, path, err)
	}
	return nil
}

// NopSetter is used on platforms without executable bits.
type NopSetter struct{}

// MakeExecutable does nothing.
func (NopSetter) MakeExecutable(context.Context, string) error { return nil }

// ForPlatform picks the setter for p.
func ForPlatform(p platform.Platform) Setter {
	if !p.HasExecutableBit() {
		return NopSetter{}
	}
	return ChmodSetter{}
}

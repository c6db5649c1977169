package cli

import (
	"fmt"

	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X github.com/glorpus-work/distboot/internal/cli.Version=...".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ParseVersion validates the build version.
func ParseVersion() (*version.Version, error) {
	v, err := version.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %w", Version, errors.ErrInvalidVersion, err)
	}
	return v, nil
}

// UserAgent is sent with every download, "distboot/<version>". An invalid
// build version is left out.
func UserAgent() string {
	v, err := ParseVersion()
	if err != nil {
		return "distboot"
	}
	return "distboot/" + v.String()
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for distboot",
		RunE:  runVersion,
	}

	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	if _, err := ParseVersion(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "distboot version %s\n", Version)
	fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
	return nil
}

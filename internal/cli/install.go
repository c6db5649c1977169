package cli

import (
	"fmt"
	"io"

	"github.com/glorpus-work/distboot/pkg/archive"
	"github.com/glorpus-work/distboot/pkg/checksum"
	"github.com/glorpus-work/distboot/pkg/config"
	"github.com/glorpus-work/distboot/pkg/download"
	"github.com/glorpus-work/distboot/pkg/installer"
	"github.com/glorpus-work/distboot/pkg/perm"
	"github.com/glorpus-work/distboot/pkg/platform"
	"github.com/glorpus-work/distboot/pkg/resolver"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the project's distribution",
		Long: `Download, verify and unpack the distribution named in .distboot/wrapper.yaml
and print the directory it was unpacked to. A cached distribution is reused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd, overrides)
		},
	}

	cmd.Flags().BoolVar(&overrides.AlwaysDownload, "always-download", false, "Download the archive even if it is cached")
	cmd.Flags().BoolVar(&overrides.AlwaysUnpack, "always-unpack", false, "Unpack the archive even if it was unpacked before")
	cmd.Flags().BoolVar(&overrides.VerifyDownload, "verify", false, "Verify downloads against the checksum URL")
	cmd.Flags().StringVar(&overrides.DistributionURL, "url", "", "Distribution URL (overrides the wrapper file)")
	cmd.Flags().StringVar(&overrides.ChecksumURL, "checksum-url", "", "Checksum URL (overrides the wrapper file)")
	cmd.Flags().StringVar(&overrides.ChecksumAlgorithm, "checksum-algorithm", "", "Checksum algorithm (sha256, sha512, ...)")
	cmd.Flags().StringVar(&overrides.DistributionBase, "distribution-base", "", "Directory distributions are cached under")

	return cmd
}

func runInstall(cmd *cobra.Command, overrides config.Overrides) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}

	wrapper := overrides.Apply(loaded.Wrapper)
	cfg, err := wrapper.ToConfiguration(loaded.UserHome)
	if err != nil {
		return fmt.Errorf("invalid wrapper configuration in %s: %w", loaded.WrapperPath, err)
	}

	out := cmd.OutOrStdout()
	inst := newInstaller(loaded.Settings, wrapper.Executable, out)

	root, err := inst.Install(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to install distribution: %w", err)
	}

	fmt.Fprintln(out, root)
	return nil
}

func newInstaller(settings config.Settings, executable string, out io.Writer) *installer.Installer {
	fetcher := download.NewManager(settings.HTTPTimeout, UserAgent(),
		download.WithAuthenticator(settings.Auth.ToAuthenticator()))

	return &installer.Installer{
		Resolver:    resolver.New(),
		Fetcher:     fetcher,
		Checksums:   checksum.NewRegistry(),
		Extractor:   archive.NewManager(),
		Locker:      installer.FileLocker{},
		Permissions: perm.ForPlatform(platform.Current()),
		Executable:  executable,
		Hooks: installer.Hooks{OnEvent: func(e installer.Event) {
			if e.Phase == installer.PhaseDone {
				return
			}
			fmt.Fprintln(out, e.Msg)
		}},
	}
}

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/config"
	"github.com/glorpus-work/distboot/pkg/errors"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View the effective configuration and create wrapper files",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the merged wrapper and settings values",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		wrapper config.Wrapper
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the wrapper file",
		Long:  "Create .distboot/wrapper.yaml in the project directory",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(&wrapper, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing wrapper file")
	cmd.Flags().StringVar(&wrapper.DistributionURL, "url", "", "Distribution URL")
	cmd.Flags().StringVar(&wrapper.ChecksumURL, "checksum-url", "", "Checksum URL")
	cmd.Flags().StringVar(&wrapper.ChecksumAlgorithm, "checksum-algorithm", "", "Checksum algorithm")
	cmd.Flags().BoolVar(&wrapper.VerifyDownload, "verify", false, "Verify downloads against the checksum URL")
	cmd.Flags().StringVar(&wrapper.Executable, "executable", "", "Path of the executable inside the distribution")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")

	settingsMap := loaded.ToMap()
	for _, key := range config.SortedKeys(settingsMap) {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", key, settingsMap[key])
	}

	return tabWriter.Flush()
}

func runConfigInit(wrapper *config.Wrapper, force bool) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(loaded.WrapperPath); err == nil && !force {
		return fmt.Errorf("%s (use --force to overwrite): %w", loaded.WrapperPath, errors.ErrConfigFileExists)
	}
	if err := wrapper.Validate(); err != nil {
		return err
	}
	if err := wrapper.Save(loaded.WrapperPath); err != nil {
		return fmt.Errorf("failed to save wrapper file: %w", err)
	}

	logger.Success("Wrapper file created", logger.Fields{"path": loaded.WrapperPath})
	return nil
}

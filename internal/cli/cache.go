package cli

import (
	"fmt"

	"github.com/glorpus-work/distboot/pkg/cache"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the distribution cache",
		Long:  "Clean, show information about, and locate the distribution cache",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var (
		all           bool
		archives      bool
		distributions bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the distribution cache",
		Long:  "Remove cached archives and unpacked distributions to free up disk space",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheClean(cmd, all, archives, distributions)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clean all cached files")
	cmd.Flags().BoolVar(&archives, "archives", false, "Clean only downloaded archives")
	cmd.Flags().BoolVar(&distributions, "distributions", false, "Clean only unpacked distributions")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display the size and contents of the distribution cache",
		RunE:  runCacheInfo,
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the distribution cache directory",
		RunE:  runCacheDir,
	}
}

func cacheOperation() (*cache.CacheOperation, error) {
	loaded, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.NewCacheOperation(cache.NewManager(loaded.CacheDir())), nil
}

func runCacheClean(cmd *cobra.Command, all, archives, distributions bool) error {
	op, err := cacheOperation()
	if err != nil {
		return err
	}

	msg, err := op.Clean(cmd.Context(), all, archives, distributions)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	op, err := cacheOperation()
	if err != nil {
		return err
	}

	info, err := op.GetInfo()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), info)
	return nil
}

func runCacheDir(cmd *cobra.Command, _ []string) error {
	op, err := cacheOperation()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), op.GetDirectory())
	return nil
}

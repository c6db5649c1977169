package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/distboot/internal/cli"
	"github.com/spf13/cobra"
)

var (
	projectDir string
	userHome   string
	logLevel   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distboot",
		Short: "Bootstrap a project's tool distribution",
		Long: `distboot downloads the tool distribution a project names in
.distboot/wrapper.yaml, verifies and unpacks it into a per-user cache
and prints where it lives:
- install: fetch, verify and unpack the distribution
- cache: inspect and clean the distribution cache
- config: show the effective configuration or create a wrapper file`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "project directory (default: current directory)")
	cmd.PersistentFlags().StringVar(&userHome, "user-home", "", "user home (default: $DISTBOOT_USER_HOME or ~/.distboot)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Set up CLI pkg variables
	cli.ProjectDir = &projectDir
	cli.UserHome = &userHome
	cli.LogLevel = &logLevel

	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewCacheCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/asad/sasfetch/internal/apperr"
	"github.com/asad/sasfetch/internal/config"
)

var (
	// Version is set at build time via ldflags.
	// Example: go build -ldflags "-X github.com/asad/sasfetch/internal/cli.Version=1.0.0"
	Version = "dev"
)

// Flag names. Config keys they override are listed in flagKeys.
const (
	flagSASURL          = "sas-url"
	flagEnvFile         = "env-file"
	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
	flagDateSource      = "date-source"
	flagDateLayout      = "date-layout"
	flagDateMetadataKey = "date-metadata-key"
	flagOutput          = "output"
	flagFormat          = "format"
)

var flagKeys = map[string]string{
	config.KeySASURL:          flagSASURL,
	config.KeyLogLevel:        flagLogLevel,
	config.KeyLogFormat:       flagLogFormat,
	config.KeyDateSource:      flagDateSource,
	config.KeyDateLayout:      flagDateLayout,
	config.KeyDateMetadataKey: flagDateMetadataKey,
	config.KeyOutputDir:       flagOutput,
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sasfetch",
		Short: "Azure Blob Storage report downloader",
		Long: `sasfetch lists and downloads report files from an Azure Blob Storage
container using a pre-issued Shared Access Signature (SAS) URL.

The SAS URL is read from --sas-url, the BASE_SAS_URL environment variable,
or BASE_SAS_URL in a local .env file, in that order.

Downloads can be filtered by the UTC date a blob was last modified, or by a
date found in its name or metadata (see --date-source).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagSASURL, "", "Full container SAS URL (overrides BASE_SAS_URL)")
	flags.String(flagEnvFile, config.DefaultEnvFile, "dotenv file to read settings from")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn, error")
	flags.String(flagLogFormat, "", "Log format: json or console")
	flags.String(flagDateSource, "", "Where a blob's date comes from: modified, name or metadata")
	flags.String(flagDateLayout, "", "Go time layout for dates in names or metadata (default 2006-01-02)")
	flags.String(flagDateMetadataKey, "", "Metadata key holding the date when --date-source=metadata")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newDownloadAllCommand())
	rootCmd.AddCommand(newDownloadSinceCommand())
	rootCmd.AddCommand(newDownloadDateCommand())
	rootCmd.AddCommand(newDownloadRangeCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sasfetch version %s\n", Version)
		},
	}
}

// Run executes the CLI with args and returns the process exit code.
// Failures are printed to stderr as a single line.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperr.KindOf(err).ExitCode()
	}
	return 0
}

// Execute is the entry point for the CLI. It should be called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

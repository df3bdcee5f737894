package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asad/sasfetch/internal/logging"
	"github.com/asad/sasfetch/internal/reports"
	"github.com/asad/sasfetch/internal/store"
)

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(flagOutput, "o", "downloads", "Output directory")
}

func newDownloadAllCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download-all",
		Short: "Download every blob",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, reports.AllFilter())
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newDownloadSinceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download-since DATE",
		Short: "Download blobs modified on or after a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reports.SinceFilter(args[0])
			if err != nil {
				return err
			}
			return runDownload(cmd, f)
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newDownloadDateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download-date DATE",
		Short: "Download blobs modified on an exact UTC date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reports.ExactFilter(args[0])
			if err != nil {
				return err
			}
			return runDownload(cmd, f)
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newDownloadRangeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download-range START END",
		Short: "Download blobs modified in an inclusive UTC date range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reports.RangeFilter(args[0], args[1])
			if err != nil {
				return err
			}
			return runDownload(cmd, f)
		},
	}
	addOutputFlag(cmd)
	return cmd
}

// runDownload lists the container, applies f and downloads the selection.
// Date arguments are already validated, so a bad date never reaches the network.
func runDownload(cmd *cobra.Command, f reports.Filter) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	all, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	selected := reports.Select(all, f, a.resolver)

	a.logger.Info("starting download",
		logging.String("filter", f.Mode.String()),
		logging.String("date_source", string(a.resolver.Source)),
		logging.Int("listed", len(all)),
		logging.Int("selected", len(selected)),
		logging.String("output_dir", a.cfg.OutputDir),
	)

	label := f.Label()
	if label != "" {
		label = " " + label
	}
	fmt.Fprintf(out, "Found %s%s. Downloading...\n", pluralBlobs(len(selected)), label)

	downloader := reports.NewDownloader(a.client, store.NewLocalStore(a.cfg.OutputDir), a.logger)
	results, err := downloader.Download(ctx, selected, func(r reports.DownloadResult) {
		if !r.OK() {
			fmt.Fprintf(out, "  !! %s\n", r.Record.Name)
			return
		}
		if f.Mode == reports.ModeAll {
			fmt.Fprintf(out, "  -> %s\n", r.Path)
			return
		}
		fmt.Fprintf(out, "  -> %s (%s)\n", r.Path, formatModified(r.Record))
	})

	if err != nil {
		fmt.Fprintln(out, "Done with failures:")
		for _, r := range results {
			if !r.OK() {
				fmt.Fprintf(out, "  %v\n", r.Err)
			}
		}
		if skipped := len(selected) - len(results); skipped > 0 {
			fmt.Fprintf(out, "  skipped %s after interrupt\n", pluralBlobs(skipped))
		}
		return err
	}

	fmt.Fprintln(out, "Done.")
	return nil
}

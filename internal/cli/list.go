package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/asad/sasfetch/internal/apperr"
	"github.com/asad/sasfetch/internal/reports"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all blobs in the container",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.Flags().String(flagFormat, "table", "Output format: table, json or yaml")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString(flagFormat)
	switch format {
	case "table", "json", "yaml":
	default:
		return apperr.New(apperr.KindValidation, "", "unknown format %q (want table, json or yaml)", format)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.client.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeTable(out, records)
		return nil
	}
}

// writeTable prints the name/size/date listing.
func writeTable(w io.Writer, records []reports.BlobRecord) {
	fmt.Fprintf(w, "%-60s %10s  %s\n", "Name", "Size", "Last Modified")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range records {
		size := "?"
		if r.Size > 0 {
			size = humanize.IBytes(uint64(r.Size))
		}
		fmt.Fprintf(w, "%-60s %10s  %s\n", r.Name, size, formatModified(r))
	}
	fmt.Fprintf(w, "\nTotal: %s\n", pluralBlobs(len(records)))
}

func formatModified(r reports.BlobRecord) string {
	if r.LastModified.IsZero() {
		return "?"
	}
	return r.LastModified.UTC().Format(http.TimeFormat)
}

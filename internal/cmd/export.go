package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/annolab/emlkit/internal/exporter"
)

type exportOptions struct {
	Output string
}

func newCmdExport(f *Factory) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export <dataset-name>",
		Short: "Export delivered messages as a redacted zip",
		Long: `Export a dataset's DELIVERED jobs into a zip archive.

Each message is reassembled with the redactions of its latest annotation
version applied. Jobs without annotations are exported unchanged.`,
		Example: `  emlkit export batch-2024-01
  emlkit export batch-2024-01 -o deliverable.zip`,
		GroupID: "dataset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(f, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output zip path (default <dataset-name>.zip)")

	return cmd
}

func runExport(f *Factory, opts *exportOptions, name string) error {
	st, err := f.Store()
	if err != nil {
		return err
	}

	ds, err := st.GetDatasetByName(name)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == "" {
		out = name + ".zip"
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}

	res, err := exporter.ExportZip(file, st, ds.ID)
	if err != nil {
		file.Close()
		os.Remove(out)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Fprintf(f.Out, "Exported %d messages (%d bytes) to %s\n", res.Files, res.Bytes, out)
	return nil
}

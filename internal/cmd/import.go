package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/annolab/emlkit/internal/importer"
)

type importOptions struct {
	Concurrency int
	Verbose     bool
}

func newCmdImport(f *Factory) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <dataset-name> <path>",
		Short: "Import .eml files into a new dataset",
		Long: `Import email messages into a new dataset.

The path may be a directory tree of .eml files, a .zip archive, or an
.mbox mailbox. Messages are deduplicated by content hash against the
batch itself, earlier datasets, and the excluded-hash blocklist.`,
		Example: `  # Import a directory
  emlkit import batch-2024-01 ./emails

  # Import a zip archive with 8 workers
  emlkit import batch-2024-01 upload.zip --concurrency 8`,
		GroupID: "dataset",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(f, opts, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Number of import workers (default 2x CPUs)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log per-file progress")

	return cmd
}

func runImport(f *Factory, opts *importOptions, name, path string) error {
	src, err := detectSource(path)
	if err != nil {
		return err
	}

	st, err := f.Store()
	if err != nil {
		return err
	}
	cfg, err := f.Config()
	if err != nil {
		return err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Import.Concurrency
	}

	res, err := importer.New(st, concurrency).WithVerbose(opts.Verbose).Run(name, src)
	if err != nil {
		return err
	}

	fmt.Fprintf(f.Out, "Imported %d of %d messages into %q (%d duplicates, %d excluded, %d failed)\n",
		res.Imported, res.TotalFound, name, res.Duplicates, res.Excluded, res.Failed)
	for _, file := range res.FailedFiles {
		fmt.Fprintf(f.ErrOut, "  failed: %s\n", file)
	}
	return nil
}

// detectSource picks a source implementation from the path: a directory,
// a .zip archive, or an .mbox mailbox.
func detectSource(path string) (importer.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return importer.NewDirSource(path), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return importer.NewZipSource(path), nil
	case ".mbox":
		return importer.NewMboxSource(path), nil
	}
	return nil, fmt.Errorf("unsupported source %s: expected a directory, .zip, or .mbox", path)
}

// Package cmd implements the emlkit command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// NewCmdRoot creates the root command for the CLI.
func NewCmdRoot(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emlkit <command> [flags]",
		Short: "Email annotation toolkit",
		Long:  "Import, de-identify, and export email annotation datasets from the command line.",
		Example: `  $ emlkit import batch-2024-01 ./emails
  $ emlkit export batch-2024-01 -o redacted.zip
  $ emlkit verify-offsets --dataset batch-2024-01`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Enable suggestions for typos
	cmd.SuggestionsMinimumDistance = 2

	cmd.PersistentFlags().StringVar(&f.ConfigPath, "config", "", "Path to config file")

	cmd.AddGroup(&cobra.Group{
		ID:    "dataset",
		Title: "Dataset commands",
	})
	cmd.AddGroup(&cobra.Group{
		ID:    "annotation",
		Title: "Annotation commands",
	})
	cmd.AddGroup(&cobra.Group{
		ID:    "utility",
		Title: "Utility commands",
	})

	cmd.AddCommand(newCmdImport(f))
	cmd.AddCommand(newCmdExport(f))
	cmd.AddCommand(newCmdImportExcludedHashes(f))

	cmd.AddCommand(newCmdClasses(f))
	cmd.AddCommand(newCmdVerifyOffsets(f))
	cmd.AddCommand(newCmdFixOffsets(f))
	cmd.AddCommand(newCmdTrimWhitespace(f))

	cmd.AddCommand(newCmdVersion(f))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	f := NewFactory()
	defer f.Close()

	if err := NewCmdRoot(f).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

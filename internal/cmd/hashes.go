package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/annolab/emlkit/internal/store"
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newCmdImportExcludedHashes(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-excluded-hashes <csv-file>",
		Short: "Load the excluded-hash blocklist from a CSV file",
		Long: `Add content hashes to the blocklist consulted during import.

Each row is content_hash,file_name,note — only the hash is required,
and it must be 64 lowercase hex characters (SHA-256). A header row is
skipped automatically. Hashes already on the blocklist are left alone.`,
		Example: `  emlkit import-excluded-hashes test-fixtures.csv`,
		GroupID: "dataset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportExcludedHashes(f, args[0])
		},
	}
	return cmd
}

func runImportExcludedHashes(f *Factory, path string) error {
	st, err := f.Store()
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	added, existing, invalid := 0, 0, 0
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if len(rec) == 0 {
			continue
		}

		hash := strings.TrimSpace(rec[0])
		if !hashPattern.MatchString(hash) {
			// Tolerate a header row, complain about anything else.
			if line > 1 || hash == "" {
				invalid++
				fmt.Fprintf(f.ErrOut, "line %d: invalid hash %q\n", line, hash)
			}
			continue
		}

		known, err := st.ExcludedHashes([]string{hash})
		if err != nil {
			return err
		}
		if known[hash] {
			existing++
			continue
		}

		h := &store.ExcludedFileHash{ContentHash: hash}
		if len(rec) > 1 {
			h.FileName = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			h.Note = strings.TrimSpace(rec[2])
		}
		if err := st.AddExcludedHash(h); err != nil {
			return err
		}
		added++
	}

	fmt.Fprintf(f.Out, "Added %d excluded hashes (%d already present, %d invalid rows)\n",
		added, existing, invalid)
	return nil
}

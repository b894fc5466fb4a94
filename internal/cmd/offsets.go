package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/annolab/emlkit/internal/annotate"
	"github.com/annolab/emlkit/internal/section"
	"github.com/annolab/emlkit/internal/store"
)

// annotationVisit is one annotation of a job's latest version, paired with
// the content of the section it addresses. hasSection is false when the
// stored section index is out of range for the message.
type annotationVisit struct {
	dataset    *store.Dataset
	job        *store.Job
	ann        *store.StoredAnnotation
	content    string
	hasSection bool
}

// forEachAnnotation walks the latest annotation version of every job,
// either in one dataset or across all of them, building each job's
// sections once.
func forEachAnnotation(st store.Store, datasetName string, visit func(v *annotationVisit) error) error {
	var datasets []*store.Dataset
	if datasetName != "" {
		ds, err := st.GetDatasetByName(datasetName)
		if err != nil {
			return err
		}
		datasets = []*store.Dataset{ds}
	} else {
		var err error
		datasets, err = st.ListDatasets()
		if err != nil {
			return err
		}
	}

	for _, ds := range datasets {
		jobs, err := st.ListJobs(ds.ID)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			version, err := st.LatestAnnotationVersion(job.ID)
			if errors.Is(err, store.ErrNoVersions) {
				continue
			}
			if err != nil {
				return err
			}
			anns, err := st.AnnotationsForVersion(version.ID)
			if err != nil {
				return err
			}
			if len(anns) == 0 {
				continue
			}

			content, err := job.Content()
			if err != nil {
				return fmt.Errorf("failed to read content of %s: %w", job.FileName, err)
			}
			sections := section.Build(content)

			for _, ann := range anns {
				v := &annotationVisit{dataset: ds, job: job, ann: ann}
				if sec := section.Find(sections, ann.SectionIndex); sec != nil {
					v.content = sec.Content
					v.hasSection = true
				}
				if err := visit(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// sliceUnits returns the content covered by a UTF-16 range, clamped for
// display.
func sliceUnits(content string, start, end int) string {
	units := annotate.Units(content)
	if start < 0 {
		start = 0
	}
	if end > len(units) {
		end = len(units)
	}
	if end <= start {
		return ""
	}
	return annotate.FromUnits(units[start:end])
}

func newCmdVerifyOffsets(f *Factory) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "verify-offsets",
		Short: "Report annotations whose offsets no longer match their text",
		Long: `Check every annotation of each job's latest version against the
message content: the stored range must still select the recorded
original text. Mismatches are reported, not modified.`,
		GroupID: "annotation",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifyOffsets(f, dataset)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Restrict to one dataset")

	return cmd
}

func runVerifyOffsets(f *Factory, dataset string) error {
	st, err := f.Store()
	if err != nil {
		return err
	}

	checked, mismatched, missing := 0, 0, 0
	err = forEachAnnotation(st, dataset, func(v *annotationVisit) error {
		checked++
		if !v.hasSection {
			missing++
			fmt.Fprintf(f.Out, "MISSING SECTION  %s: annotation %s addresses section %d\n",
				v.job.FileName, v.ann.ID, v.ann.SectionIndex)
			return nil
		}
		if annotate.Verify(v.content, v.ann.ToAnnotation()) {
			return nil
		}
		mismatched++
		fmt.Fprintf(f.Out, "MISMATCH  %s %s [%d,%d): stored %q, content has %q\n",
			v.job.FileName, v.ann.ClassName, v.ann.StartOffset, v.ann.EndOffset,
			v.ann.OriginalText, sliceUnits(v.content, v.ann.StartOffset, v.ann.EndOffset))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(f.Out, "Checked %d annotations: %d verified, %d mismatched, %d missing sections\n",
		checked, checked-mismatched-missing, mismatched, missing)
	return nil
}

func newCmdFixOffsets(f *Factory) *cobra.Command {
	var dataset string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "fix-offsets",
		Short: "Convert code-point offsets to UTF-16 code units",
		Long: `Repair annotations recorded in Unicode code-point space by legacy
tooling. Offsets are converted to UTF-16 code units and written back
only when the converted range selects the recorded original text.`,
		GroupID: "annotation",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixOffsets(f, dataset, dryRun)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Restrict to one dataset")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without writing")

	return cmd
}

func runFixOffsets(f *Factory, dataset string, dryRun bool) error {
	st, err := f.Store()
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintln(f.Out, "DRY RUN — no changes written")
	}

	checked, fixed, failed := 0, 0, 0
	err = forEachAnnotation(st, dataset, func(v *annotationVisit) error {
		checked++
		if !v.hasSection {
			failed++
			return nil
		}
		ann := v.ann.ToAnnotation()
		if annotate.Verify(v.content, ann) {
			return nil
		}

		start, end, ok := annotate.FixCodePointOffsets(v.content, ann)
		if !ok {
			failed++
			fmt.Fprintf(f.Out, "UNFIXABLE  %s %s [%d,%d): conversion does not recover %q\n",
				v.job.FileName, v.ann.ClassName, v.ann.StartOffset, v.ann.EndOffset, v.ann.OriginalText)
			return nil
		}

		fixed++
		fmt.Fprintf(f.Out, "FIX  %s %s: [%d,%d) -> [%d,%d)\n",
			v.job.FileName, v.ann.ClassName, v.ann.StartOffset, v.ann.EndOffset, start, end)
		if dryRun {
			return nil
		}
		return st.UpdateAnnotationSpan(v.ann.ID, start, end, v.ann.OriginalText)
	})
	if err != nil {
		return err
	}

	action := "fixed"
	if dryRun {
		action = "would be fixed"
	}
	fmt.Fprintf(f.Out, "Checked %d annotations: %d %s, %d unfixable\n", checked, fixed, action, failed)
	return nil
}

func newCmdTrimWhitespace(f *Factory) *cobra.Command {
	var dataset string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "trim-whitespace",
		Short: "Shrink annotation ranges over leading and trailing whitespace",
		Long: `Annotators sometimes select extra whitespace around a span. This
command shrinks such ranges and updates the recorded text, writing back
only ranges whose trimmed content verifies against the message.`,
		GroupID: "annotation",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrimWhitespace(f, dataset, dryRun)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Restrict to one dataset")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without writing")

	return cmd
}

func runTrimWhitespace(f *Factory, dataset string, dryRun bool) error {
	st, err := f.Store()
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintln(f.Out, "DRY RUN — no changes written")
	}

	checked, trimmed, allWhitespace, failed := 0, 0, 0, 0
	err = forEachAnnotation(st, dataset, func(v *annotationVisit) error {
		checked++

		stripped := strings.TrimSpace(v.ann.OriginalText)
		if stripped == v.ann.OriginalText {
			return nil
		}
		if stripped == "" {
			allWhitespace++
			fmt.Fprintf(f.Out, "SKIP  %s %s: annotation is all whitespace\n", v.job.FileName, v.ann.ClassName)
			return nil
		}
		if !v.hasSection {
			failed++
			return nil
		}

		start, end, changed := annotate.TrimWhitespace(v.content, v.ann.ToAnnotation())
		if !changed || sliceUnits(v.content, start, end) != stripped {
			failed++
			fmt.Fprintf(f.Out, "SKIP  %s %s [%d,%d): trimmed range does not verify\n",
				v.job.FileName, v.ann.ClassName, v.ann.StartOffset, v.ann.EndOffset)
			return nil
		}

		trimmed++
		fmt.Fprintf(f.Out, "TRIM  %s %s: [%d,%d) -> [%d,%d) %q\n",
			v.job.FileName, v.ann.ClassName, v.ann.StartOffset, v.ann.EndOffset, start, end, stripped)
		if dryRun {
			return nil
		}
		return st.UpdateAnnotationSpan(v.ann.ID, start, end, stripped)
	})
	if err != nil {
		return err
	}

	action := "trimmed"
	if dryRun {
		action = "would be trimmed"
	}
	fmt.Fprintf(f.Out, "Checked %d annotations: %d %s, %d all-whitespace, %d skipped\n",
		checked, trimmed, action, allWhitespace, failed)
	return nil
}

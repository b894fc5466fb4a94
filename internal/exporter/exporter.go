// Package exporter writes a dataset's delivered messages into a zip
// archive, applying each job's latest annotation version as redactions.
package exporter

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"

	"github.com/annolab/emlkit/internal/redact"
	"github.com/annolab/emlkit/internal/store"
)

// Result summarizes one export.
type Result struct {
	Files int
	Bytes int64
}

// ExportZip writes the dataset's DELIVERED jobs into w as a zip archive.
// Each entry is the reassembled message with the latest annotation
// version's redactions applied; jobs without an annotation version are
// written unchanged. Entry names are REDACTED_<short id>_<file name>.
func ExportZip(w io.Writer, st store.Store, datasetID uuid.UUID) (*Result, error) {
	jobs, err := st.ListJobsByStatus(datasetID, store.JobDelivered)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivered jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("dataset has no delivered jobs to export")
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	result := &Result{}
	for _, job := range jobs {
		content, err := job.Content()
		if err != nil {
			return nil, fmt.Errorf("failed to read content of %s: %w", job.FileName, err)
		}

		out, err := redactedContent(st, job.ID, content)
		if err != nil {
			return nil, fmt.Errorf("failed to redact %s: %w", job.FileName, err)
		}

		entry, err := zw.Create(entryName(job))
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry for %s: %w", job.FileName, err)
		}
		if _, err := entry.Write([]byte(out)); err != nil {
			return nil, fmt.Errorf("failed to write zip entry for %s: %w", job.FileName, err)
		}
		result.Files++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	result.Bytes = cw.n
	return result, nil
}

// redactedContent applies the job's latest annotation version to the raw
// message. No version, or no stored content, passes the message through
// untouched.
func redactedContent(st store.Store, jobID uuid.UUID, content string) (string, error) {
	if content == "" {
		return content, nil
	}

	version, err := st.LatestAnnotationVersion(jobID)
	if errors.Is(err, store.ErrNoVersions) {
		return content, nil
	}
	if err != nil {
		return "", err
	}

	stored, err := st.AnnotationsForVersion(version.ID)
	if err != nil {
		return "", err
	}
	return redact.Reassemble(content, store.ToAnnotations(stored)), nil
}

func entryName(job *store.Job) string {
	return fmt.Sprintf("REDACTED_%s_%s", job.ID.String()[:8], path.Base(job.FileName))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

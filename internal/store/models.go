package store

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/annolab/emlkit/internal/annotate"
)

// DatasetStatus tracks a dataset through ingestion.
type DatasetStatus string

const (
	DatasetUploading  DatasetStatus = "UPLOADING"
	DatasetExtracting DatasetStatus = "EXTRACTING"
	DatasetReady      DatasetStatus = "READY"
	DatasetFailed     DatasetStatus = "FAILED"
)

// JobStatus tracks one message through the annotation workflow.
type JobStatus string

const (
	JobUploaded             JobStatus = "UPLOADED"
	JobAssignedAnnotator    JobStatus = "ASSIGNED_ANNOTATOR"
	JobAnnotationInProgress JobStatus = "ANNOTATION_IN_PROGRESS"
	JobSubmittedForQA       JobStatus = "SUBMITTED_FOR_QA"
	JobAssignedQA           JobStatus = "ASSIGNED_QA"
	JobQAInProgress         JobStatus = "QA_IN_PROGRESS"
	JobQARejected           JobStatus = "QA_REJECTED"
	JobQAAccepted           JobStatus = "QA_ACCEPTED"
	JobDelivered            JobStatus = "DELIVERED"
)

// AnnotationSource records which workflow stage authored a version.
type AnnotationSource string

const (
	SourceAnnotator AnnotationSource = "ANNOTATOR"
	SourceQA        AnnotationSource = "QA"
)

// Dataset is one uploaded batch of messages.
type Dataset struct {
	ID             uuid.UUID
	Name           string
	UploadDate     time.Time
	FileCount      int
	DuplicateCount int
	ExcludedCount  int
	Status         DatasetStatus
	ErrorMessage   string
}

// Job is one ingested message. Content is held zlib-compressed; use
// SetContent and Content rather than touching ContentCompressed directly.
type Job struct {
	ID                uuid.UUID
	DatasetID         uuid.UUID
	FileName          string
	ContentCompressed []byte
	ContentHash       string
	Status            JobStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SetContent compresses the raw message into the job and records its hash.
func (j *Job) SetContent(content string) {
	j.ContentCompressed = compress([]byte(content))
	j.ContentHash = HashContent(content)
}

// Content decompresses the stored raw message. A job without content
// returns an empty string.
func (j *Job) Content() (string, error) {
	if len(j.ContentCompressed) == 0 {
		return "", nil
	}
	r, err := zlib.NewReader(bytes.NewReader(j.ContentCompressed))
	if err != nil {
		return "", fmt.Errorf("failed to decompress job content: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decompress job content: %w", err)
	}
	return string(data), nil
}

// AnnotationClass is one entry of the PII class registry. Classes are
// soft-deleted so historical annotations keep resolving their class name.
type AnnotationClass struct {
	ID           uuid.UUID
	Name         string
	DisplayLabel string
	Color        string
	Description  string
	Deleted      bool
}

// AnnotationVersion is one saved annotation set for a job. Version numbers
// count up per job; redaction always uses the highest one.
type AnnotationVersion struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	VersionNumber int
	Source        AnnotationSource
	CreatedAt     time.Time
}

// StoredAnnotation is the persisted form of one annotated range.
type StoredAnnotation struct {
	ID           uuid.UUID
	VersionID    uuid.UUID
	ClassName    string
	Tag          string
	SectionIndex int
	StartOffset  int
	EndOffset    int
	OriginalText string
}

// ToAnnotation converts the stored record into the form the overlay and
// redaction algorithms take.
func (a *StoredAnnotation) ToAnnotation() annotate.Annotation {
	return annotate.Annotation{
		SectionIndex: a.SectionIndex,
		StartOffset:  a.StartOffset,
		EndOffset:    a.EndOffset,
		Tag:          a.Tag,
		ClassName:    a.ClassName,
		OriginalText: a.OriginalText,
	}
}

// ToAnnotations converts a batch of stored annotations.
func ToAnnotations(stored []*StoredAnnotation) []annotate.Annotation {
	anns := make([]annotate.Annotation, 0, len(stored))
	for _, a := range stored {
		anns = append(anns, a.ToAnnotation())
	}
	return anns
}

// ExcludedFileHash blocklists a message by content hash. Files matching an
// excluded hash are counted but never imported.
type ExcludedFileHash struct {
	ID          uuid.UUID
	ContentHash string
	FileName    string
	Note        string
	CreatedAt   time.Time
}

// HashContent returns the sha256 hex digest used for deduplication.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// The prepare helpers fill in ids, timestamps, and initial statuses before
// insert so callers only set what they care about.

func prepareDataset(ds *Dataset) {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	if ds.UploadDate.IsZero() {
		ds.UploadDate = time.Now().UTC()
	}
	if ds.Status == "" {
		ds.Status = DatasetUploading
	}
}

func prepareJob(job *Job) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = JobUploaded
	}
}

func prepareClass(c *AnnotationClass) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.DisplayLabel == "" {
		c.DisplayLabel = c.Name
	}
}

func prepareVersion(v *AnnotationVersion) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	if v.Source == "" {
		v.Source = SourceAnnotator
	}
}

func prepareAnnotation(a *StoredAnnotation) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
}

func prepareExcludedHash(h *ExcludedFileHash) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
}

func compress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

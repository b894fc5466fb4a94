// Package store persists datasets, ingested messages, annotation classes,
// and versioned annotation sets behind a backend-neutral interface. Two
// backends exist: SQLite for single-user installs and PostgreSQL for shared
// deployments. Raw message content is zlib-compressed at rest and addressed
// by its sha256 hash for deduplication.
package store

import (
	"errors"
	"fmt"

	"github.com/annolab/emlkit/internal/config"
	"github.com/google/uuid"
)

var (
	// ErrDatasetNotFound is returned when no dataset matches the lookup.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrJobNotFound is returned when no job matches the lookup.
	ErrJobNotFound = errors.New("job not found")
	// ErrClassNotFound is returned when no annotation class matches the name.
	ErrClassNotFound = errors.New("annotation class not found")
	// ErrAnnotationNotFound is returned when no annotation matches the id.
	ErrAnnotationNotFound = errors.New("annotation not found")
	// ErrNoVersions is returned when a job has no annotation versions yet.
	ErrNoVersions = errors.New("job has no annotation versions")
)

// Store is the persistence interface shared by both backends.
type Store interface {
	Open() error
	Close() error

	CreateDataset(ds *Dataset) error
	GetDataset(id uuid.UUID) (*Dataset, error)
	GetDatasetByName(name string) (*Dataset, error)
	ListDatasets() ([]*Dataset, error)
	UpdateDataset(ds *Dataset) error
	DeleteDataset(id uuid.UUID) error

	CreateJob(job *Job) error
	CreateJobsBatch(jobs []*Job) error
	GetJob(id uuid.UUID) (*Job, error)
	ListJobs(datasetID uuid.UUID) ([]*Job, error)
	ListJobsByStatus(datasetID uuid.UUID, status JobStatus) ([]*Job, error)
	UpdateJobStatus(id uuid.UUID, status JobStatus) error
	ExistingContentHashes(hashes []string) (map[string]bool, error)

	CreateAnnotationClass(c *AnnotationClass) error
	ListAnnotationClasses(includeDeleted bool) ([]*AnnotationClass, error)
	DeleteAnnotationClass(name string) error

	CreateAnnotationVersion(v *AnnotationVersion) error
	LatestAnnotationVersion(jobID uuid.UUID) (*AnnotationVersion, error)
	CreateAnnotationsBatch(anns []*StoredAnnotation) error
	AnnotationsForVersion(versionID uuid.UUID) ([]*StoredAnnotation, error)
	UpdateAnnotationSpan(id uuid.UUID, start, end int, originalText string) error

	AddExcludedHash(h *ExcludedFileHash) error
	ExcludedHashes(hashes []string) (map[string]bool, error)
	ListExcludedHashes() ([]*ExcludedFileHash, error)
}

// New creates a store for the configured backend. The store must be opened
// before use and closed when done.
func New(cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return NewSQLite(cfg.Store.Path), nil
	case "postgres":
		return NewPostgres(&cfg.Store), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Store.Driver)
	}
}

// scanner covers both sql.Row and sql.Rows so the per-record scan helpers
// can be shared between list and get queries.
type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (*Dataset, error) {
	ds := &Dataset{}
	err := s.Scan(&ds.ID, &ds.Name, &ds.UploadDate, &ds.FileCount,
		&ds.DuplicateCount, &ds.ExcludedCount, &ds.Status, &ds.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func scanJob(s scanner) (*Job, error) {
	job := &Job{}
	err := s.Scan(&job.ID, &job.DatasetID, &job.FileName, &job.ContentCompressed,
		&job.ContentHash, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func scanClass(s scanner) (*AnnotationClass, error) {
	c := &AnnotationClass{}
	err := s.Scan(&c.ID, &c.Name, &c.DisplayLabel, &c.Color, &c.Description, &c.Deleted)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanVersion(s scanner) (*AnnotationVersion, error) {
	v := &AnnotationVersion{}
	err := s.Scan(&v.ID, &v.JobID, &v.VersionNumber, &v.Source, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanAnnotation(s scanner) (*StoredAnnotation, error) {
	a := &StoredAnnotation{}
	err := s.Scan(&a.ID, &a.VersionID, &a.ClassName, &a.Tag,
		&a.SectionIndex, &a.StartOffset, &a.EndOffset, &a.OriginalText)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanExcludedHash(s scanner) (*ExcludedFileHash, error) {
	h := &ExcludedFileHash{}
	err := s.Scan(&h.ID, &h.ContentHash, &h.FileName, &h.Note, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return h, nil
}

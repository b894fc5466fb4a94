package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// sqlite limits the number of bound variables, so IN lists are chunked
const hashChunkSize = 500

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite creates a SQLite store for the given database path. Use
// ":memory:" for a throwaway in-memory database.
func NewSQLite(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Open opens the database and initializes the schema.
func (s *SQLiteStore) Open() error {
	// Ensure the directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// The _time_format=sqlite parameter tells the driver to parse RFC3339
	// timestamps; the pragma turns on foreign keys so deletes cascade
	dsn := s.path + "?_time_format=sqlite&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateDataset inserts a new dataset, assigning id, upload date, and
// initial status when unset.
func (s *SQLiteStore) CreateDataset(ds *Dataset) error {
	prepareDataset(ds)
	_, err := s.db.Exec(`
		INSERT INTO datasets (id, name, upload_date, file_count, duplicate_count, excluded_count, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ds.ID, ds.Name, ds.UploadDate, ds.FileCount, ds.DuplicateCount, ds.ExcludedCount, ds.Status, ds.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// GetDataset retrieves a dataset by id.
func (s *SQLiteStore) GetDataset(id uuid.UUID) (*Dataset, error) {
	ds, err := scanDataset(s.db.QueryRow(`
		SELECT id, name, upload_date, file_count, duplicate_count, excluded_count, status, error_message
		FROM datasets WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// GetDatasetByName retrieves a dataset by its unique name.
func (s *SQLiteStore) GetDatasetByName(name string) (*Dataset, error) {
	ds, err := scanDataset(s.db.QueryRow(`
		SELECT id, name, upload_date, file_count, duplicate_count, excluded_count, status, error_message
		FROM datasets WHERE name = ?
	`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset by name: %w", err)
	}
	return ds, nil
}

// ListDatasets returns all datasets, newest upload first.
func (s *SQLiteStore) ListDatasets() ([]*Dataset, error) {
	rows, err := s.db.Query(`
		SELECT id, name, upload_date, file_count, duplicate_count, excluded_count, status, error_message
		FROM datasets ORDER BY upload_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// UpdateDataset writes back a dataset's counters, status, and error text.
func (s *SQLiteStore) UpdateDataset(ds *Dataset) error {
	res, err := s.db.Exec(`
		UPDATE datasets
		SET name = ?, file_count = ?, duplicate_count = ?, excluded_count = ?, status = ?, error_message = ?
		WHERE id = ?
	`, ds.Name, ds.FileCount, ds.DuplicateCount, ds.ExcludedCount, ds.Status, ds.ErrorMessage, ds.ID)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	return requireRow(res, ErrDatasetNotFound)
}

// DeleteDataset removes a dataset and everything under it.
func (s *SQLiteStore) DeleteDataset(id uuid.UUID) error {
	res, err := s.db.Exec("DELETE FROM datasets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return requireRow(res, ErrDatasetNotFound)
}

// CreateJob inserts a single job.
func (s *SQLiteStore) CreateJob(job *Job) error {
	prepareJob(job)
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, dataset_id, file_name, content, content_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.DatasetID, job.FileName, job.ContentCompressed, job.ContentHash, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// CreateJobsBatch inserts jobs in one transaction with a prepared
// statement, the fast path for dataset ingestion.
func (s *SQLiteStore) CreateJobsBatch(jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO jobs (id, dataset_id, file_name, content, content_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		prepareJob(job)
		_, err := stmt.Exec(job.ID, job.DatasetID, job.FileName, job.ContentCompressed,
			job.ContentHash, job.Status, job.CreatedAt, job.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert job %s: %w", job.FileName, err)
		}
	}
	return tx.Commit()
}

// GetJob retrieves a job by id.
func (s *SQLiteStore) GetJob(id uuid.UUID) (*Job, error) {
	job, err := scanJob(s.db.QueryRow(`
		SELECT id, dataset_id, file_name, content, content_hash, status, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns a dataset's jobs ordered by file name.
func (s *SQLiteStore) ListJobs(datasetID uuid.UUID) ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, dataset_id, file_name, content, content_hash, status, created_at, updated_at
		FROM jobs WHERE dataset_id = ? ORDER BY file_name
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return collectJobs(rows)
}

// ListJobsByStatus returns a dataset's jobs in one workflow status.
func (s *SQLiteStore) ListJobsByStatus(datasetID uuid.UUID, status JobStatus) ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, dataset_id, file_name, content, content_hash, status, created_at, updated_at
		FROM jobs WHERE dataset_id = ? AND status = ? ORDER BY file_name
	`, datasetID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}
	return collectJobs(rows)
}

// UpdateJobStatus moves a job to a new workflow status.
func (s *SQLiteStore) UpdateJobStatus(id uuid.UUID, status JobStatus) error {
	res, err := s.db.Exec(`
		UPDATE jobs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return requireRow(res, ErrJobNotFound)
}

// ExistingContentHashes reports which of the given hashes already have a
// job in the store.
func (s *SQLiteStore) ExistingContentHashes(hashes []string) (map[string]bool, error) {
	return s.matchHashes("jobs", hashes)
}

// CreateAnnotationClass inserts a class registry entry.
func (s *SQLiteStore) CreateAnnotationClass(c *AnnotationClass) error {
	prepareClass(c)
	_, err := s.db.Exec(`
		INSERT INTO annotation_classes (id, name, display_label, color, description, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.DisplayLabel, c.Color, c.Description, c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to create annotation class: %w", err)
	}
	return nil
}

// ListAnnotationClasses returns the class registry ordered by name.
// Soft-deleted classes are included only on request.
func (s *SQLiteStore) ListAnnotationClasses(includeDeleted bool) ([]*AnnotationClass, error) {
	query := `
		SELECT id, name, display_label, color, description, deleted
		FROM annotation_classes
	`
	if !includeDeleted {
		query += " WHERE deleted = 0"
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotation classes: %w", err)
	}
	defer rows.Close()

	var classes []*AnnotationClass
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// DeleteAnnotationClass soft-deletes a class by name so existing
// annotations keep resolving it.
func (s *SQLiteStore) DeleteAnnotationClass(name string) error {
	res, err := s.db.Exec("UPDATE annotation_classes SET deleted = 1 WHERE name = ? AND deleted = 0", name)
	if err != nil {
		return fmt.Errorf("failed to delete annotation class: %w", err)
	}
	return requireRow(res, ErrClassNotFound)
}

// CreateAnnotationVersion inserts a version, numbering it after the job's
// current highest version when no number is set.
func (s *SQLiteStore) CreateAnnotationVersion(v *AnnotationVersion) error {
	prepareVersion(v)
	if v.VersionNumber == 0 {
		err := s.db.QueryRow(`
			SELECT COALESCE(MAX(version_number), 0) + 1 FROM annotation_versions WHERE job_id = ?
		`, v.JobID).Scan(&v.VersionNumber)
		if err != nil {
			return fmt.Errorf("failed to number annotation version: %w", err)
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO annotation_versions (id, job_id, version_number, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.JobID, v.VersionNumber, v.Source, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create annotation version: %w", err)
	}
	return nil
}

// LatestAnnotationVersion returns the highest-numbered version for a job.
func (s *SQLiteStore) LatestAnnotationVersion(jobID uuid.UUID) (*AnnotationVersion, error) {
	v, err := scanVersion(s.db.QueryRow(`
		SELECT id, job_id, version_number, source, created_at
		FROM annotation_versions WHERE job_id = ?
		ORDER BY version_number DESC LIMIT 1
	`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoVersions
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest annotation version: %w", err)
	}
	return v, nil
}

// CreateAnnotationsBatch inserts a version's annotations in one
// transaction.
func (s *SQLiteStore) CreateAnnotationsBatch(anns []*StoredAnnotation) error {
	if len(anns) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO annotations (id, version_id, class_name, tag, section_index, start_offset, end_offset, original_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare annotation insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range anns {
		prepareAnnotation(a)
		_, err := stmt.Exec(a.ID, a.VersionID, a.ClassName, a.Tag,
			a.SectionIndex, a.StartOffset, a.EndOffset, a.OriginalText)
		if err != nil {
			return fmt.Errorf("failed to insert annotation: %w", err)
		}
	}
	return tx.Commit()
}

// AnnotationsForVersion returns a version's annotations in section and
// offset order.
func (s *SQLiteStore) AnnotationsForVersion(versionID uuid.UUID) ([]*StoredAnnotation, error) {
	rows, err := s.db.Query(`
		SELECT id, version_id, class_name, tag, section_index, start_offset, end_offset, original_text
		FROM annotations WHERE version_id = ?
		ORDER BY section_index, start_offset
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	var anns []*StoredAnnotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		anns = append(anns, a)
	}
	return anns, rows.Err()
}

// UpdateAnnotationSpan rewrites one annotation's stored range and covered
// text, used by the offset repair commands.
func (s *SQLiteStore) UpdateAnnotationSpan(id uuid.UUID, start, end int, originalText string) error {
	res, err := s.db.Exec(`
		UPDATE annotations SET start_offset = ?, end_offset = ?, original_text = ? WHERE id = ?
	`, start, end, originalText, id)
	if err != nil {
		return fmt.Errorf("failed to update annotation offsets: %w", err)
	}
	return requireRow(res, ErrAnnotationNotFound)
}

// AddExcludedHash adds a content hash to the import blocklist.
func (s *SQLiteStore) AddExcludedHash(h *ExcludedFileHash) error {
	prepareExcludedHash(h)
	_, err := s.db.Exec(`
		INSERT INTO excluded_file_hashes (id, content_hash, file_name, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, h.ID, h.ContentHash, h.FileName, h.Note, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add excluded hash: %w", err)
	}
	return nil
}

// ExcludedHashes reports which of the given hashes are blocklisted.
func (s *SQLiteStore) ExcludedHashes(hashes []string) (map[string]bool, error) {
	return s.matchHashes("excluded_file_hashes", hashes)
}

// ListExcludedHashes returns the whole blocklist, newest first.
func (s *SQLiteStore) ListExcludedHashes() ([]*ExcludedFileHash, error) {
	rows, err := s.db.Query(`
		SELECT id, content_hash, file_name, note, created_at
		FROM excluded_file_hashes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list excluded hashes: %w", err)
	}
	defer rows.Close()

	var out []*ExcludedFileHash
	for rows.Next() {
		h, err := scanExcludedHash(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan excluded hash: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// matchHashes checks hashes against a table's content_hash column in
// chunks that stay under the bound-variable limit.
func (s *SQLiteStore) matchHashes(table string, hashes []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for start := 0; start < len(hashes); start += hashChunkSize {
		chunk := hashes[start:min(start+hashChunkSize, len(hashes))]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, h := range chunk {
			args[i] = h
		}

		rows, err := s.db.Query(
			"SELECT content_hash FROM "+table+" WHERE content_hash IN ("+placeholders+")", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to match content hashes: %w", err)
		}
		for rows.Next() {
			var h string
			if err := rows.Scan(&h); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan content hash: %w", err)
			}
			found[h] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return found, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

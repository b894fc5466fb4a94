package store

import (
	"testing"

	"github.com/google/uuid"
)

// SetupTestStore creates an in-memory sqlite store for testing.
// The store is closed automatically when the test finishes.
func SetupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s := NewSQLite(":memory:")
	if err := s.Open(); err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// MakeTestDataset creates and stores a dataset with the given name.
func MakeTestDataset(t *testing.T, s Store, name string) *Dataset {
	t.Helper()

	ds := &Dataset{Name: name}
	if err := s.CreateDataset(ds); err != nil {
		t.Fatalf("failed to create test dataset: %v", err)
	}
	return ds
}

// MakeTestJob creates and stores a job holding the given message text.
func MakeTestJob(t *testing.T, s Store, datasetID uuid.UUID, fileName, content string) *Job {
	t.Helper()

	job := &Job{DatasetID: datasetID, FileName: fileName}
	job.SetContent(content)
	if err := s.CreateJob(job); err != nil {
		t.Fatalf("failed to create test job: %v", err)
	}
	return job
}

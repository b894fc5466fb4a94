// Package importer ingests .eml files from directories, zip archives, and
// mbox files into datasets, deduplicating by content hash.
package importer

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/annolab/emlkit/internal/codec"
	"github.com/annolab/emlkit/internal/store"
)

// Importer runs import pipelines against a store.
type Importer struct {
	store       store.Store
	concurrency int
	verbose     bool

	// Progress, when set, is called after each file is read and hashed.
	Progress func(done, total int, name string)
}

// New creates an importer. A concurrency of zero or less selects a default
// sized for I/O-bound file reading.
func New(st store.Store, concurrency int) *Importer {
	if concurrency < 1 {
		concurrency = runtime.NumCPU() * 2
	}
	return &Importer{store: st, concurrency: concurrency}
}

// WithVerbose enables progress logging.
func (imp *Importer) WithVerbose(v bool) *Importer {
	imp.verbose = v
	return imp
}

// Result contains statistics about an import operation.
type Result struct {
	DatasetID   uuid.UUID
	TotalFound  int
	Imported    int
	Duplicates  int
	Excluded    int
	Failed      int
	FailedFiles []string
}

// Run imports every message the source yields into a new dataset with the
// given name. Messages whose content hash already exists in the store, or
// appears earlier in the same batch, count as duplicates; blocklisted
// hashes count as excluded. The dataset ends READY, or FAILED when the
// pipeline cannot finish.
func (imp *Importer) Run(datasetName string, src Source) (*Result, error) {
	ds := &store.Dataset{Name: datasetName, Status: store.DatasetExtracting}
	if err := imp.store.CreateDataset(ds); err != nil {
		return nil, fmt.Errorf("failed to create dataset %q: %w", datasetName, err)
	}

	result, err := imp.runPipeline(ds, src)
	if err != nil {
		ds.Status = store.DatasetFailed
		ds.ErrorMessage = err.Error()
		if uerr := imp.store.UpdateDataset(ds); uerr != nil {
			log.Printf("failed to mark dataset %s failed: %v", ds.ID, uerr)
		}
		return nil, err
	}

	ds.FileCount = result.Imported
	ds.DuplicateCount = result.Duplicates
	ds.ExcludedCount = result.Excluded
	ds.Status = store.DatasetReady
	if err := imp.store.UpdateDataset(ds); err != nil {
		return nil, fmt.Errorf("failed to finalize dataset: %w", err)
	}

	result.DatasetID = ds.ID
	return result, nil
}

func (imp *Importer) runPipeline(ds *store.Dataset, src Source) (*Result, error) {
	files, err := src.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .eml messages found in source")
	}

	result := &Result{
		TotalFound:  len(files),
		FailedFiles: make([]string, 0),
	}

	if imp.verbose {
		log.Printf("Found %d messages to import with %d workers", result.TotalFound, imp.concurrency)
	}

	fileChan := make(chan workItem, len(files))
	resultChan := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < imp.concurrency; i++ {
		wg.Add(1)
		go imp.worker(&wg, fileChan, resultChan)
	}

	for i, f := range files {
		fileChan <- workItem{index: i, file: f}
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	processed := make([]fileResult, 0, len(files))
	for res := range resultChan {
		if imp.Progress != nil {
			imp.Progress(len(processed)+1, result.TotalFound, res.name)
		}
		if imp.verbose && (len(processed)+1)%100 == 0 {
			log.Printf("Processed %d/%d messages...", len(processed)+1, result.TotalFound)
		}
		processed = append(processed, res)
	}

	// Restore source order so duplicate resolution is deterministic.
	sort.Slice(processed, func(i, j int) bool { return processed[i].index < processed[j].index })

	hashes := make([]string, 0, len(processed))
	for _, res := range processed {
		if res.err == nil {
			hashes = append(hashes, res.hash)
		}
	}
	existing, err := imp.store.ExistingContentHashes(hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing hashes: %w", err)
	}
	excluded, err := imp.store.ExcludedHashes(hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to check excluded hashes: %w", err)
	}

	seen := make(map[string]bool)
	var jobs []*store.Job
	for _, res := range processed {
		switch {
		case res.err != nil:
			log.Printf("Error reading %s: %v", res.name, res.err)
			result.Failed++
			result.FailedFiles = append(result.FailedFiles, res.name)
		case seen[res.hash] || existing[res.hash]:
			result.Duplicates++
		case excluded[res.hash]:
			result.Excluded++
		default:
			seen[res.hash] = true
			job := &store.Job{DatasetID: ds.ID, FileName: res.name}
			job.SetContent(res.text)
			jobs = append(jobs, job)
		}
	}

	if err := imp.store.CreateJobsBatch(jobs); err != nil {
		return nil, fmt.Errorf("failed to store jobs: %w", err)
	}
	result.Imported = len(jobs)

	if imp.verbose {
		log.Printf("Import complete: %d imported, %d duplicates, %d excluded, %d failed",
			result.Imported, result.Duplicates, result.Excluded, result.Failed)
	}
	return result, nil
}

type workItem struct {
	index int
	file  File
}

type fileResult struct {
	index int
	name  string
	text  string
	hash  string
	err   error
}

// worker reads, decodes, and hashes files from the work channel.
func (imp *Importer) worker(wg *sync.WaitGroup, fileChan <-chan workItem, resultChan chan<- fileResult) {
	defer wg.Done()

	for item := range fileChan {
		resultChan <- imp.processFile(item)
	}
}

func (imp *Importer) processFile(item workItem) fileResult {
	data := item.file.Content
	if data == nil {
		var err error
		data, err = os.ReadFile(item.file.Path)
		if err != nil {
			return fileResult{index: item.index, name: item.file.Name, err: err}
		}
	}

	text := decodeText(data)
	return fileResult{
		index: item.index,
		name:  item.file.Name,
		text:  text,
		hash:  store.HashContent(text),
	}
}

// decodeText interprets raw message bytes as UTF-8, falling back to
// Latin-1 so no byte sequence is ever rejected.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return codec.DecodeBytes(data, "iso-8859-1")
}

package cmd

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annolab/emlkit/internal/config"
	"github.com/annolab/emlkit/internal/importer"
	"github.com/annolab/emlkit/internal/store"
)

func testFactory(t *testing.T) (*Factory, store.Store) {
	t.Helper()
	st := store.SetupTestStore(t)
	f := &Factory{Out: io.Discard, ErrOut: io.Discard, cfg: config.Default(), st: st}
	return f, st
}

func runCommand(t *testing.T, f *Factory, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	f.Out = out
	f.ErrOut = out

	root := NewCmdRoot(f)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func seedAnnotatedJob(t *testing.T, st store.Store, dsName, fileName, raw string,
	anns ...*store.StoredAnnotation) (*store.Job, *store.AnnotationVersion) {
	t.Helper()

	ds := store.MakeTestDataset(t, st, dsName)
	job := store.MakeTestJob(t, st, ds.ID, fileName, raw)

	v := &store.AnnotationVersion{JobID: job.ID}
	require.NoError(t, st.CreateAnnotationVersion(v))
	for _, a := range anns {
		a.VersionID = v.ID
	}
	require.NoError(t, st.CreateAnnotationsBatch(anns))
	return job, v
}

func TestImportExportRoundTrip(t *testing.T) {
	f, st := testFactory(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.eml"),
		[]byte("Subject: Hi\r\n\r\nHello John"), 0644))

	out, err := runCommand(t, f, "import", "batch", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 of 1")

	ds, err := st.GetDatasetByName("batch")
	require.NoError(t, err)
	jobs, err := st.ListJobs(ds.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, st.UpdateJobStatus(jobs[0].ID, store.JobDelivered))

	v := &store.AnnotationVersion{JobID: jobs[0].ID, Source: store.SourceQA}
	require.NoError(t, st.CreateAnnotationVersion(v))
	require.NoError(t, st.CreateAnnotationsBatch([]*store.StoredAnnotation{{
		VersionID:    v.ID,
		ClassName:    "PERSON_NAME",
		Tag:          "[NAME_1]",
		SectionIndex: 1,
		StartOffset:  6,
		EndOffset:    10,
		OriginalText: "John",
	}}))

	zipPath := filepath.Join(t.TempDir(), "out.zip")
	out, err = runCommand(t, f, "export", "batch", "-o", zipPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 messages")

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello [NAME_1]")
	assert.NotContains(t, string(data), "John")
}

func TestImportRejectsUnknownSource(t *testing.T) {
	f, _ := testFactory(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := runCommand(t, f, "import", "batch", path)
	assert.Error(t, err)
}

func TestExportUnknownDataset(t *testing.T) {
	f, _ := testFactory(t)

	_, err := runCommand(t, f, "export", "missing")
	assert.ErrorIs(t, err, store.ErrDatasetNotFound)
}

func TestVerifyOffsetsCommand(t *testing.T) {
	f, st := testFactory(t)
	seedAnnotatedJob(t, st, "ds", "a.eml", "Subject: x\r\n\r\nHello John",
		&store.StoredAnnotation{
			ClassName: "PERSON_NAME", SectionIndex: 1,
			StartOffset: 6, EndOffset: 10, OriginalText: "John",
		},
		&store.StoredAnnotation{
			ClassName: "EMAIL", SectionIndex: 1,
			StartOffset: 0, EndOffset: 4, OriginalText: "ZZZZ",
		},
		&store.StoredAnnotation{
			ClassName: "PHONE", SectionIndex: 9,
			StartOffset: 0, EndOffset: 2, OriginalText: "xx",
		})

	out, err := runCommand(t, f, "verify-offsets")
	require.NoError(t, err)
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "MISSING SECTION")
	assert.Contains(t, out, "Checked 3 annotations: 1 verified, 1 mismatched, 1 missing sections")
}

func TestVerifyOffsetsUnknownDataset(t *testing.T) {
	f, _ := testFactory(t)

	_, err := runCommand(t, f, "verify-offsets", "--dataset", "missing")
	assert.ErrorIs(t, err, store.ErrDatasetNotFound)
}

func TestFixOffsetsCommand(t *testing.T) {
	f, st := testFactory(t)

	// "John" sits at code points [3,7) but UTF-16 units [5,9) because the
	// two emoji are surrogate pairs.
	_, v := seedAnnotatedJob(t, st, "ds", "a.eml", "Subject: x\r\n\r\n\U0001F600\U0001F600 John x",
		&store.StoredAnnotation{
			ClassName: "PERSON_NAME", SectionIndex: 1,
			StartOffset: 3, EndOffset: 7, OriginalText: "John",
		})

	out, err := runCommand(t, f, "fix-offsets", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY RUN")
	assert.Contains(t, out, "[3,7) -> [5,9)")

	anns, err := st.AnnotationsForVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, anns[0].StartOffset)

	out, err = runCommand(t, f, "fix-offsets")
	require.NoError(t, err)
	assert.Contains(t, out, "1 fixed")

	anns, err = st.AnnotationsForVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, anns[0].StartOffset)
	assert.Equal(t, 9, anns[0].EndOffset)

	out, err = runCommand(t, f, "verify-offsets")
	require.NoError(t, err)
	assert.Contains(t, out, "0 mismatched")
}

func TestTrimWhitespaceCommand(t *testing.T) {
	f, st := testFactory(t)

	_, v := seedAnnotatedJob(t, st, "ds", "a.eml", "Subject: x\r\n\r\na John b",
		&store.StoredAnnotation{
			ClassName: "PERSON_NAME", SectionIndex: 1,
			StartOffset: 1, EndOffset: 7, OriginalText: " John ",
		})

	out, err := runCommand(t, f, "trim-whitespace", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[1,7) -> [2,6)")

	anns, err := st.AnnotationsForVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, " John ", anns[0].OriginalText)

	out, err = runCommand(t, f, "trim-whitespace")
	require.NoError(t, err)
	assert.Contains(t, out, "1 trimmed")

	anns, err = st.AnnotationsForVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, anns[0].StartOffset)
	assert.Equal(t, 6, anns[0].EndOffset)
	assert.Equal(t, "John", anns[0].OriginalText)
}

func TestClassesCommands(t *testing.T) {
	f, _ := testFactory(t)

	_, err := runCommand(t, f, "classes", "add", "PERSON_NAME",
		"--label", "Person Name", "--color", "#ffcc00")
	require.NoError(t, err)

	out, err := runCommand(t, f, "classes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PERSON_NAME")
	assert.Contains(t, out, "Person Name")
	assert.Contains(t, out, "#ffcc00")

	_, err = runCommand(t, f, "classes", "remove", "PERSON_NAME")
	require.NoError(t, err)

	out, err = runCommand(t, f, "classes", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "PERSON_NAME")

	out, err = runCommand(t, f, "classes", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "PERSON_NAME")
	assert.Contains(t, out, "(deleted)")
}

func TestImportExcludedHashesCommand(t *testing.T) {
	f, st := testFactory(t)

	hash := store.HashContent("blocked message")
	csvPath := filepath.Join(t.TempDir(), "excluded.csv")
	csvData := "hash,filename,note\n" +
		hash + ",spam.eml,known fixture\n" +
		"nothex,bad.eml,\n" +
		hash + ",spam.eml,duplicate row\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csvData), 0644))

	out, err := runCommand(t, f, "import-excluded-hashes", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 1 excluded hashes (1 already present, 1 invalid rows)")

	listed, err := st.ListExcludedHashes()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, hash, listed[0].ContentHash)
	assert.Equal(t, "spam.eml", listed[0].FileName)
	assert.Equal(t, "known fixture", listed[0].Note)
}

func TestVersionCommand(t *testing.T) {
	f, _ := testFactory(t)

	out, err := runCommand(t, f, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "emlkit version dev")
}

func TestDetectSource(t *testing.T) {
	dir := t.TempDir()

	src, err := detectSource(dir)
	require.NoError(t, err)
	assert.IsType(t, &importer.DirSource{}, src)

	zipPath := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("x"), 0644))
	src, err = detectSource(zipPath)
	require.NoError(t, err)
	assert.IsType(t, &importer.ZipSource{}, src)

	mboxPath := filepath.Join(dir, "a.mbox")
	require.NoError(t, os.WriteFile(mboxPath, []byte("x"), 0644))
	src, err = detectSource(mboxPath)
	require.NoError(t, err)
	assert.IsType(t, &importer.MboxSource{}, src)

	txtPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0644))
	_, err = detectSource(txtPath)
	assert.Error(t, err)

	_, err = detectSource(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

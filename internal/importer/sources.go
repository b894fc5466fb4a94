package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/annolab/emlkit/internal/scanner"
)

// File is one message yielded by a source. Content holds the raw bytes
// when the source reads them itself; otherwise Path names a file for the
// import workers to read.
type File struct {
	Name    string
	Path    string
	Content []byte
}

// Source enumerates the messages of an import.
type Source interface {
	Files() ([]File, error)
}

// DirSource imports every .eml file under a directory tree.
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Files returns the tree's .eml files, named by their slash-normalized
// relative paths. The workers read the contents later.
func (s *DirSource) Files() ([]File, error) {
	paths, err := scanner.New(s.root).Scan()
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, rel := range paths {
		files = append(files, File{
			Name: rel,
			Path: filepath.Join(s.root, filepath.FromSlash(rel)),
		})
	}
	return files, nil
}

// ZipSource imports .eml entries from a zip archive.
type ZipSource struct {
	path string
}

func NewZipSource(path string) *ZipSource {
	return &ZipSource{path: path}
}

// Files reads every .eml entry, naming each by its basename. Colliding
// basenames from different archive folders get a numeric suffix.
func (s *ZipSource) Files() ([]File, error) {
	r, err := zip.OpenReader(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer r.Close()

	seen := make(map[string]bool)
	var files []File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// macOS archives carry resource-fork noise.
		if strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		base := path.Base(f.Name)
		if strings.HasPrefix(base, ".") || !strings.EqualFold(path.Ext(base), ".eml") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip entry %s: %w", f.Name, err)
		}

		files = append(files, File{Name: uniqueName(seen, base), Content: data})
	}
	return files, nil
}

// MboxSource imports messages from an mbox file, one job per message.
type MboxSource struct {
	path string
}

func NewMboxSource(path string) *MboxSource {
	return &MboxSource{path: path}
}

// Files splits the mbox into messages named <stem>_NNNN.eml in mailbox
// order.
func (s *MboxSource) Files() ([]File, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox file: %w", err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))

	var files []File
	mr := mbox.NewReader(f)
	for i := 1; ; i++ {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox message %d: %w", i, err)
		}
		data, err := io.ReadAll(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox message %d: %w", i, err)
		}
		files = append(files, File{
			Name:    fmt.Sprintf("%s_%04d.eml", stem, i),
			Content: data,
		})
	}
	return files, nil
}

// uniqueName reserves name within the batch, appending _1, _2, ... before
// the extension when the plain name is taken.
func uniqueName(seen map[string]bool, name string) string {
	if !seen[name] {
		seen[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}

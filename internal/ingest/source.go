package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehr/hl7ingest/internal/platform/hl7v2"
)

// Extension is the file suffix the source picks up, matched case-insensitively.
const Extension = ".hl7"

// Source enumerates message files in a directory and reads them.
type Source interface {
	// List returns the matching files in dir, sorted by name. A missing
	// directory yields an error matching ErrInputDirMissing.
	List(dir string) ([]string, error)
	Read(path string) ([]byte, error)
}

// DirSource reads *.hl7 files from the local filesystem.
type DirSource struct {
	// CreateMissing makes List create an absent directory. List still
	// reports ErrInputDirMissing so the caller can tell the user where to
	// put files.
	CreateMissing bool
}

func (s DirSource) List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if s.CreateMissing {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create input folder %s: %w", dir, err)
			}
			return nil, fmt.Errorf("%w: created %s", ErrInputDirMissing, dir)
		}
		return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat input folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputDirMissing, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// utf8BOM is written at the start of text files by some Windows editors.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read returns the file content with a leading UTF-8 byte-order mark and any
// MLLP framing removed.
func (DirSource) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return bytes.TrimPrefix(hl7v2.Unframe(data), utf8BOM), nil
}

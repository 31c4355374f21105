// Package loader reads documents from the local filesystem.
package loader

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

// DefaultMaxBytes caps how much of a file is read.
const DefaultMaxBytes = 32 << 20

// ErrTooLarge is returned for files over the size cap.
var ErrTooLarge = eris.New("file exceeds size limit")

// FileLoader reads files whose extension is in an allow list. It implements
// ports.DocumentLoader.
type FileLoader struct {
	formats  map[string]bool
	maxBytes int64
}

// NewFileLoader creates a loader accepting formats (extensions without the
// dot). A non-positive maxBytes uses DefaultMaxBytes.
func NewFileLoader(formats []string, maxBytes int64) *FileLoader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	l := &FileLoader{
		formats:  make(map[string]bool, len(formats)),
		maxBytes: maxBytes,
	}
	for _, f := range formats {
		l.formats[strings.ToLower(strings.TrimPrefix(f, "."))] = true
	}
	return l
}

// Supports reports whether path has an accepted extension.
func (l *FileLoader) Supports(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ext != "" && l.formats[ext]
}

// Load reads the file at path.
func (l *FileLoader) Load(ctx context.Context, path string) (*entities.SourceFile, error) {
	if !l.Supports(path) {
		return nil, eris.Errorf("unsupported file type: %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return nil, eris.Errorf("%s is a directory", path)
	}
	if info.Size() > l.maxBytes {
		return nil, eris.Wrapf(ErrTooLarge, "%s is %d bytes", path, info.Size())
	}

	data, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "reading %s", path)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, eris.Wrapf(ErrTooLarge, "%s grew past the limit while reading", path)
	}

	return &entities.SourceFile{
		Name:    filepath.Base(path),
		Path:    path,
		Data:    data,
		ModTime: info.ModTime(),
	}, nil
}

// Scan lists supported files directly under dir, sorted by name. Hidden
// files are skipped.
func (l *FileLoader) Scan(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "listing %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !l.Supports(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

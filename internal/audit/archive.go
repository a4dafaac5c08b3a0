package audit

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/entities"
)

// archiveTimeFormat keeps archive names sortable and free of path separators.
const archiveTimeFormat = "20060102-150405"

const archiveExt = ".jsonl.gz"

// maxNameAttempts bounds the search for a free archive name within one second.
const maxNameAttempts = 1000

// Archiver writes log entries to gzip-compressed JSON-lines files.
type Archiver struct {
	Dir string
}

func NewArchiver(dir string) *Archiver {
	return &Archiver{Dir: dir}
}

// FileName returns the archive file name for an archive taken at t.
func FileName(t time.Time) string {
	return "logs-" + t.UTC().Format(archiveTimeFormat) + archiveExt
}

// Write stores entries in a new archive file and returns its path.
// The file is written under a temporary name and renamed once complete.
// An existing archive is never replaced: archives taken in the same second
// get a numeric suffix.
func (a *Archiver) Write(entries []entities.LogEntry, at time.Time) (string, error) {
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(a.Dir, ".logs-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	enc := json.NewEncoder(zw)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			tmp.Close()
			return "", fmt.Errorf("failed to encode log entry %d: %w", entries[i].ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to compress archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}

	path, err := a.reserve(at)
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return path, nil
}

// reserve creates an empty file under the first free archive name for at.
// The caller owns the returned path and replaces it with the finished archive.
func (a *Archiver) reserve(at time.Time) (string, error) {
	base := strings.TrimSuffix(FileName(at), archiveExt)
	for i := 0; i < maxNameAttempts; i++ {
		name := base + archiveExt
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, archiveExt)
		}
		path := filepath.Join(a.Dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create archive file: %w", err)
		}
		f.Close()
		return path, nil
	}
	return "", fmt.Errorf("no free archive name for %s in %s", base, a.Dir)
}

// ReadArchive decodes every entry in an archive file.
func ReadArchive(path string) ([]entities.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	var entries []entities.LogEntry
	dec := json.NewDecoder(zr)
	for dec.More() {
		var entry entities.LogEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode archive: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

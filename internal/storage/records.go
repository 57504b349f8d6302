package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alvmarrod/site-spider/internal/extract"
)

// RecordExt is the extension of every persisted page record
const RecordExt = ".json"

// RecordStore writes one JSON file per page record into a directory
type RecordStore struct {
	dir string
}

// NewRecordStore creates a store rooted at dir. The directory is created
// lazily on the first write.
func NewRecordStore(dir string) *RecordStore {
	return &RecordStore{dir: dir}
}

// Dir returns the directory records are written to
func (s *RecordStore) Dir() string {
	return s.dir
}

// EscapeURL turns a URL into a file name component by escaping every slash
func EscapeURL(rawURL string) string {
	return strings.ReplaceAll(rawURL, "/", "%2F")
}

// PathFor returns the file a record for rawURL is stored in
func (s *RecordStore) PathFor(rawURL string) string {
	return filepath.Join(s.dir, EscapeURL(rawURL)+RecordExt)
}

// Persist writes rec, replacing any earlier record for the same URL, and
// returns the path written
func (s *RecordStore) Persist(rec *extract.PageRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out := *rec
	if out.Links == nil {
		out.Links = []string{}
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	path := s.PathFor(rec.URL)
	if err := writeFileAtomic(s.dir, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads back the record stored for rawURL
func (s *RecordStore) Load(rawURL string) (*extract.PageRecord, error) {
	data, err := os.ReadFile(s.PathFor(rawURL))
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var rec extract.PageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

// writeFileAtomic writes to a temp file in dir and renames it over path, so
// readers never see a half-written record
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".record-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close record: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set record permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move record into place: %w", err)
	}
	return nil
}

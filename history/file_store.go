package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists history in a JSON key/value document on disk. Only
// StorageKey is written; other keys in the document are preserved.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file store at path, creating parent directories as needed
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath returns ~/.weatherly/storage.json
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".weatherly", "storage.json"), nil
}

// Load reads the history; a missing file or key is an empty history
func (f *FileStore) Load(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[StorageKey]
	if !ok {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s in %s: %w", StorageKey, f.path, err)
	}
	return entries, nil
}

// errCorruptDocument marks a storage file that is not a JSON object
var errCorruptDocument = errors.New("failed to parse")

// Save replaces the history under StorageKey, writing through a temp file and rename
func (f *FileStore) Save(ctx context.Context, entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if errors.Is(err, errCorruptDocument) {
		// nothing readable to preserve
		doc = make(map[string]json.RawMessage)
	} else if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	doc[StorageKey] = raw

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Close is a no-op for the file store
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) readLocked() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w %s: %w", errCorruptDocument, f.path, err)
	}
	return doc, nil
}

var _ Persister = (*FileStore)(nil)

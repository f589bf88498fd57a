package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/drewbanne/Weatherly/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	entries, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load on a missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %v", entries)
	}

	s, err := Open(ctx, fs, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Record("Accra", &models.WeatherSnapshot{City: "Accra", Temperature: 28})
	s.Record("London", nil)

	reopened, err := Open(ctx, fs, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Entries()
	if len(got) != 2 || got[0].City != "London" || got[1].City != "Accra" {
		t.Fatalf("unexpected entries after reopen: %+v", got)
	}
	if got[1].Snapshot == nil || got[1].Snapshot.Temperature != 28 {
		t.Errorf("expected Accra snapshot to survive, got %+v", got[1].Snapshot)
	}
}

func TestFileStorePreservesOtherKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte(`{"weatherly.theme": "dark"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Save(ctx, []Entry{{City: "Miami"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("stored document is not JSON: %v", err)
	}
	if string(doc["weatherly.theme"]) != `"dark"` {
		t.Errorf("foreign key lost: %s", data)
	}
	if _, ok := doc[StorageKey]; !ok {
		t.Errorf("history not stored under %s: %s", StorageKey, data)
	}
}

func TestFileStoreClearWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	fs, _ := NewFileStore(path)

	if err := fs.Save(ctx, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	var doc map[string]json.RawMessage
	json.Unmarshal(data, &doc)
	if string(doc[StorageKey]) != "[]" {
		t.Errorf("expected [], got %s", doc[StorageKey])
	}
}

func TestOpenPersisterPicksBackend(t *testing.T) {
	ctx := context.Background()

	p, err := OpenPersister(ctx, filepath.Join(t.TempDir(), "h.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", p)
	}

	p, err = OpenPersister(ctx, "sqlite3://:memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, ok := p.(*SQLStore); !ok {
		t.Errorf("expected *SQLStore, got %T", p)
	}
}

func TestOpenCorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	corrupt := []byte(`{"weatherly.recent-searches": [{"city": `)
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatal(err)
	}

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Open(ctx, fs, nil)
	if err != nil {
		t.Fatalf("Open should tolerate unreadable storage: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty history, got %v", s.Names())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != string(corrupt) {
		t.Errorf("storage should be untouched until the next save, got %s", raw)
	}

	s.Record("Accra", nil)
	reopened, err := Open(ctx, fs, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Names(); len(got) != 1 || got[0] != "Accra" {
		t.Errorf("the next save should replace the corrupt file, got %v", got)
	}
}

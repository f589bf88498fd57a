package history

import (
	"context"
	"testing"
)

func setupTestDB(t *testing.T) *SQLStore {
	t.Helper()

	// Use in-memory database for testing
	s, err := OpenSQLStore(context.Background(), "sqlite3://:memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	entries, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load on empty table: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected no history, got %v", entries)
	}

	if err := db.Save(ctx, []Entry{{City: "Lima"}, {City: "Quito"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// a second save must update the row, not conflict
	if err := db.Save(ctx, []Entry{{City: "Bogota"}, {City: "Lima"}, {City: "Quito"}}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	entries, err = db.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := names(entries)
	want := []string{"Bogota", "Lima", "Quito"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSQLStoreBacksStore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	s, err := Open(ctx, db, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"A", "B", "C", "D", "E", "F"} {
		s.Record(c, nil)
	}
	s.Record("c", nil)

	stored, err := db.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := names(stored)
	want := []string{"c", "F", "E", "D", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		driver string
		source string
		ok     bool
	}{
		{"sqlite3://history.db", "sqlite3", "history.db", true},
		{"sqlite://:memory:", "sqlite3", ":memory:", true},
		{"postgres://u:p@localhost/wthr?sslmode=disable", "postgres", "postgres://u:p@localhost/wthr?sslmode=disable", true},
		{"/home/me/.weatherly/storage.json", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, source, err := ParseDSN(tt.dsn)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseDSN(%q) error = %v, want ok=%v", tt.dsn, err, tt.ok)
			}
			if driver != tt.driver || source != tt.source {
				t.Errorf("ParseDSN(%q) = %q, %q, want %q, %q", tt.dsn, driver, source, tt.driver, tt.source)
			}
		})
	}
}

func TestRebindForPostgres(t *testing.T) {
	s := &SQLStore{driver: "postgres"}
	got := s.rebind("INSERT INTO kv (key, value) VALUES (?, ?)")
	if got != "INSERT INTO kv (key, value) VALUES ($1, $2)" {
		t.Errorf("unexpected rebind: %s", got)
	}
	s.driver = "sqlite3"
	if got := s.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite query should be unchanged, got %s", got)
	}
}

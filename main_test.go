package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/models"
)

func TestCLIQuery(t *testing.T) {
	q, err := cliQuery("  Cape Town ", "", "")
	if err != nil || q.City != "Cape Town" || q.IsCoords() {
		t.Errorf("unexpected city query %+v, %v", q, err)
	}

	q, err = cliQuery("", "5.6", "-0.18")
	if err != nil || !q.IsCoords() || q.Coords.Lat != 5.6 {
		t.Errorf("unexpected coordinate query %+v, %v", q, err)
	}

	if _, err := cliQuery("", "north", "1"); err == nil {
		t.Error("expected an error for a non-numeric latitude")
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"mode":"live","openWeatherMap":{"apiKey":"file-key"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WEATHERLY_MODE", "")
	t.Setenv("OPENWEATHERMAP_API_KEY", "")
	t.Setenv("WEATHERLY_STORAGE", filepath.Join(dir, "env.json"))

	config, err := loadConfig(&options{configFile: path, mode: "demo"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Mode != datasource.ModeDemo {
		t.Errorf("flag should override the file mode, got %q", config.Mode)
	}
	if config.OpenWeatherMap.APIKey != "file-key" {
		t.Errorf("expected the file key, got %q", config.OpenWeatherMap.APIKey)
	}
	if config.Storage != filepath.Join(dir, "env.json") {
		t.Errorf("expected the env storage, got %q", config.Storage)
	}
}

func TestLiveModeWithoutKeyIsRejected(t *testing.T) {
	t.Setenv("WEATHERLY_MODE", "")
	t.Setenv("OPENWEATHERMAP_API_KEY", "")

	_, err := loadConfig(&options{configFile: filepath.Join(t.TempDir(), "missing.json"), mode: "live"})
	if !errors.Is(err, datasource.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestDemoAppSearch(t *testing.T) {
	t.Setenv("WEATHERLY_MODE", "")
	t.Setenv("OPENWEATHERMAP_API_KEY", "")
	t.Setenv("WEATHERLY_LAT", "")
	t.Setenv("WEATHERLY_LON", "")

	dir := t.TempDir()
	a, err := newApp(&options{
		configFile: filepath.Join(dir, "missing.json"),
		mode:       "demo",
		storage:    filepath.Join(dir, "storage.json"),
		cacheTTL:   time.Minute,
	})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	state, err := a.dashboard.Search(context.Background(), models.CityQuery("Accra"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !state.Demo || state.Snapshot == nil || !state.Snapshot.Demo {
		t.Errorf("expected labeled demo data, got %+v", state)
	}
	if got := a.store.Names(); len(got) != 1 || got[0] != "Accra" {
		t.Errorf("expected history [Accra], got %v", got)
	}
}

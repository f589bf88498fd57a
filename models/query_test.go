package models

import (
	"math"
	"testing"
)

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{"city", CityQuery("London"), false},
		{"blank city", CityQuery("   "), true},
		{"coordinates", CoordsQuery(-33.92, 18.42), false},
		{"latitude out of range", CoordsQuery(90.5, 0), true},
		{"longitude out of range", CoordsQuery(0, -180.1), true},
		{"not a number", CoordsQuery(math.NaN(), 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.q.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueryKey(t *testing.T) {
	if a, b := CityQuery(" London ").Key(), CityQuery("LONDON").Key(); a != b {
		t.Errorf("city keys should ignore case and spaces: %q vs %q", a, b)
	}
	if got := CoordsQuery(5.6037, -0.187).Key(); got != "@5.60,-0.19" {
		t.Errorf("unexpected coordinate key %q", got)
	}
	if got := CityQuery("  Accra").String(); got != "Accra" {
		t.Errorf("String() = %q", got)
	}
}

func TestSnapshotLocation(t *testing.T) {
	if got := (WeatherSnapshot{City: "Accra", Country: "GH"}).Location(); got != "Accra,GH" {
		t.Errorf("Location() = %q", got)
	}
	if got := (WeatherSnapshot{City: "Accra"}).Location(); got != "Accra" {
		t.Errorf("Location() = %q", got)
	}
}

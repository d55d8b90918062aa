package models

import (
	"encoding/json"
	"testing"
)

func TestRowFollowsColumns(t *testing.T) {
	rec := OrbitalRecord{
		InternationalDesignator: "20-001A",
		CatalogID:               45000,
		SemiMinorAxisKm:         544.977,
	}
	row := rec.Row()
	if len(row) != len(Columns) {
		t.Fatalf("row has %d values, want %d", len(row), len(Columns))
	}
	if row[0] != "20-001A" || row[1] != 45000 || row[len(row)-1] != 544.977 {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestJSONKeysMatchColumns(t *testing.T) {
	data, err := json.Marshal(OrbitalRecord{Degraded: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, col := range Columns {
		if _, ok := out[col]; !ok {
			t.Errorf("json output missing column %s", col)
		}
	}
	if out[KeyDegraded] != true {
		t.Fatalf("degraded flag not emitted: %v", out)
	}
}

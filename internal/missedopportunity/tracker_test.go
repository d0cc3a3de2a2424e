package missedopportunity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAppendsToDailyFile(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fixed := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tr.clockNow = func() time.Time { return fixed }

	rec := Record{Timestamp: fixed, Token: Token{Mint: "mintA", FailedChecks: []string{"safety"}}}
	if err := tr.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := tr.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	path := filepath.Join(dir, "missed_opportunities_2026-07-31.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestRotateOnOversize(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.maxFileSize = 10
	fixed := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tr.clockNow = func() time.Time { return fixed }

	if err := tr.Record(Record{Timestamp: fixed, Token: Token{Mint: "mintA"}}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := tr.Record(Record{Timestamp: fixed, Token: Token{Mint: "mintB"}}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected rotated + fresh file, got %d entries", len(entries))
	}
}

package commands

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleSession())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out, Selection{}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines+1, err)
		}
		if _, ok := m["SessionID"]; !ok {
			t.Errorf("line %d has no SessionID: %s", lines+1, scanner.Text())
		}
		lines++
	}
	if lines != len(sampleSession()) {
		t.Errorf("expected %d lines, got %d", len(sampleSession()), lines)
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, sampleSession())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out, Selection{}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != len(sampleSession())+1 {
		t.Fatalf("expected %d records, got %d", len(sampleSession())+1, len(records))
	}
	if records[0][0] != "timestamp" || records[0][7] != "command" {
		t.Errorf("unexpected header: %v", records[0])
	}

	reply := records[3]
	if reply[6] != "line" || reply[10] != "12000" {
		t.Errorf("unexpected reply row: %v", reply)
	}
	if !strings.Contains(reply[9], "i: 3.00 A") {
		t.Errorf("reply text missing: %q", reply[9])
	}

	cmd := records[4]
	if cmd[7] != "get_cfg" || cmd[8] != "ok" {
		t.Errorf("unexpected command row: %v", cmd)
	}
}

func TestExportToSQLite(t *testing.T) {
	path := createTestLogFile(t, sampleSession())
	out := filepath.Join(t.TempDir(), "out.db")

	// Exporting twice appends.
	for n := 0; n < 2; n++ {
		if err := RunExport(path, "sqlite", out, Selection{}); err != nil {
			t.Fatalf("RunExport failed: %v", err)
		}
	}

	db, err := sql.Open("sqlite", out)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 2*len(sampleSession()) {
		t.Errorf("expected %d rows, got %d", 2*len(sampleSession()), count)
	}

	var kind string
	if err := db.QueryRow("SELECT result FROM events WHERE type = 'error' LIMIT 1").Scan(&kind); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if kind != "timeout" {
		t.Errorf("expected timeout, got %q", kind)
	}
}

func TestExportSQLiteNeedsOutput(t *testing.T) {
	path := createTestLogFile(t, sampleSession())
	if err := RunExport(path, "sqlite", "", Selection{}); !errors.Is(err, ErrOutputRequired) {
		t.Errorf("expected ErrOutputRequired, got %v", err)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleSession())
	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml"), Selection{})
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestExportSelection(t *testing.T) {
	path := createTestLogFile(t, sampleSession())
	out := filepath.Join(t.TempDir(), "errors.db")

	if err := RunExport(path, "sqlite", out, Selection{Category: "error"}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	db, err := sql.Open("sqlite", out)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	if err := RunExport(path, "jsonl", out, Selection{Layer: "frame"}); err == nil {
		t.Error("expected error for unknown layer")
	}
}

package archive

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLZstdWriter_WritesAndRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	at := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	if err := w.Write(map[string]any{"seq": 0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(map[string]any{"seq": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(map[string]any{"seq": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readLines(t, filepath.Join(dir, "events-2026-03-01-10.jsonl.zst"))
	if len(first) != 2 || first[1]["seq"] != float64(1) {
		t.Fatalf("unexpected first hour: %+v", first)
	}
	second := readLines(t, filepath.Join(dir, "events-2026-03-01-11.jsonl.zst"))
	if len(second) != 1 || second[0]["seq"] != float64(2) {
		t.Fatalf("unexpected second hour: %+v", second)
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "events")
		w.now = func() time.Time { return at }
		if err := w.Write(map[string]any{"run": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = w.Close()
	}
	lines := readLines(t, filepath.Join(dir, "events-2026-03-01-10.jsonl.zst"))
	if len(lines) != 2 {
		t.Fatalf("expected both runs preserved, got %+v", lines)
	}
}

func TestTranscriptArchive_RejectsUnencodable(t *testing.T) {
	a := NewTranscriptArchive(t.TempDir())
	defer a.Close()
	if err := a.Write(map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatalf("expected encode error")
	}
}

package eventlog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJournalWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	j := NewJournal()
	j.StartWriter(&buf)

	for tick := int64(1); tick <= 3; tick++ {
		if !j.Append(Entry{Tick: tick, Inputs: json.RawMessage(`[]`), Hash: uint64(tick) * 1000}) {
			t.Fatalf("append %d rejected", tick)
		}
	}
	j.Stop()

	entries, err := ReadEntries(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Tick != int64(i+1) || e.Hash != uint64(i+1)*1000 {
			t.Errorf("entry %d: got tick %d hash %d", i, e.Tick, e.Hash)
		}
		if e.Sequence != uint64(i+1) || e.Version != EntryVersion {
			t.Errorf("entry %d: bad header %+v", i, e)
		}
	}
}

func TestJournalHashSurvivesLargeValues(t *testing.T) {
	var buf bytes.Buffer
	j := NewJournal()
	j.StartWriter(&buf)
	j.Append(Entry{Tick: 1, Inputs: json.RawMessage(`[]`), Hash: 0xfedcba9876543210})
	j.Stop()

	entries, err := ReadEntries(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Hash != 0xfedcba9876543210 {
		t.Errorf("hash lost precision: %x", entries[0].Hash)
	}
}

func TestJournalRejectsWhenStopped(t *testing.T) {
	j := NewJournal()
	if j.Append(Entry{Tick: 1}) {
		t.Error("Expected append before Start to be rejected")
	}
}

func TestJournalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	j := NewJournal()
	if err := j.Start(path); err != nil {
		t.Fatal(err)
	}
	j.Append(Entry{Tick: 1, Inputs: json.RawMessage(`[{"kind":"noop"}]`)})
	j.Stop()

	entries, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || string(entries[0].Inputs) != `[{"kind":"noop"}]` {
		t.Errorf("unexpected entries %+v", entries)
	}

	if j.Written() != 1 {
		t.Errorf("Expected 1 written entry, got %d", j.Written())
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("journal file missing: %v", err)
	}
}

func TestJournalDropsOldestWhenFull(t *testing.T) {
	j := NewJournal()
	// Running without a writer goroutine so nothing drains the ring
	j.running.Store(true)

	for i := 0; i < BufferSize+5; i++ {
		j.Append(Entry{Tick: int64(i)})
	}
	if j.Dropped() != 5 {
		t.Errorf("Expected 5 dropped, got %d", j.Dropped())
	}

	batch := j.collectBatch(nil)
	if len(batch) != BatchFlushSize || batch[0].Tick != 5 {
		t.Errorf("Expected a full batch starting at tick 5, got %d entries", len(batch))
	}
}

func TestReadEntriesReportsLine(t *testing.T) {
	_, err := ReadEntries(strings.NewReader("{\"tick\":1}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected error naming line 2, got %v", err)
	}
}

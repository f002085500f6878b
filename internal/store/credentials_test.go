package store

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	record := Record{Username: "alice", Password: "pw", Kills: 3, Wins: 1, PlayTime: 42.5}

	if err := s.Save(record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, found, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected record found")
	}
	if loaded != record {
		t.Fatalf("expected %+v, got %+v", record, loaded)
	}
}

func TestFileStoreMissingUser(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatal("expected record absent")
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(Record{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(Record{Username: "alice", Password: "pw", Wins: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Wins != 2 {
		t.Fatalf("expected updated record, got %+v", loaded)
	}
}

func TestFileStoreRejectsUnsafeUsernames(t *testing.T) {
	s := newTestStore(t)

	for _, username := range []string{"", "../evil", "a/b", ".hidden", "white space", "semi;colon"} {
		if err := s.Save(Record{Username: username}); err == nil {
			t.Fatalf("expected rejection for %q", username)
		}
		if _, _, err := s.Load(username); err == nil {
			t.Fatalf("expected load rejection for %q", username)
		}
	}
}

func TestFileStoreAllowsFilenameSafeUsernames(t *testing.T) {
	s := newTestStore(t)

	for _, username := range []string{"alice", "Bob-2", "c_3", "d.e"} {
		if err := s.Save(Record{Username: username}); err != nil {
			t.Fatalf("unexpected rejection for %q: %v", username, err)
		}
	}
}

func TestFileStoreNoStrayTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Save(Record{Username: "alice"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "alice.json" {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("expected only alice.json, got %v", names)
	}
	if filepath.Ext(entries[0].Name()) != ".json" {
		t.Fatalf("unexpected extension on %q", entries[0].Name())
	}
}

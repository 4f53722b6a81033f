package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingCollectionLeavesZeroValue(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := map[string]int{}
	if err := s.Load("nothing", &data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("data = %v, want empty", data)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := map[string][]string{"A": {"one", "two"}}
	if err := s.Save("lists", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out := map[string][]string{}
	if err := s.Load("lists", &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out["A"]) != 2 || out["A"][1] != "two" {
		t.Errorf("out = %v", out)
	}
}

func TestCorruptJSONIsReportedNotReset(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data := map[string]int{}
	if err := s.Load("broken", &data); err == nil {
		t.Error("corrupt collection must error")
	}
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Save("counts", map[string]int{"x": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	failed := errors.New("no")
	data := map[string]int{}
	err = s.Update("counts", &data, func() error {
		data["x"] = 99
		return failed
	})
	if !errors.Is(err, failed) {
		t.Fatalf("Update error = %v", err)
	}

	fresh := map[string]int{}
	if err := s.Load("counts", &fresh); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fresh["x"] != 1 {
		t.Errorf("failed update leaked a write: %v", fresh)
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Save("config", map[string]string{"k": "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate an external edit behind the cache's back.
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"k": "new"}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cached := map[string]string{}
	if err := s.Load("config", &cached); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cached["k"] != "old" {
		t.Fatalf("expected cached value before invalidation, got %q", cached["k"])
	}

	s.Invalidate(path)
	reloaded := map[string]string{}
	if err := s.Load("config", &reloaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded["k"] != "new" {
		t.Errorf("invalidation did not force a reload: %q", reloaded["k"])
	}
}

func TestWatcherIgnorePatterns(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w, err := NewWatcher(s, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	tests := []struct {
		path   string
		ignore bool
	}{
		{"/data/expenses.json", false},
		{"/data/expenses-123.tmp", true},
		{"/data/.hidden", true},
		{"/data/budgets.json.bak", true},
	}
	for _, tt := range tests {
		if got := w.shouldIgnore(tt.path); got != tt.ignore {
			t.Errorf("shouldIgnore(%s) = %v, want %v", tt.path, got, tt.ignore)
		}
	}
}

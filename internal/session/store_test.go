package session

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	id := NewSessionID()

	turns := []struct{ role, content string }{
		{"user", "I spent 45 TL on coffee"},
		{"assistant", "Expense of 45 TL added to 'COFFEE'."},
		{"user", "how much did I spend on coffee?"},
		{"assistant", "Category 'COFFEE': 1 expense totaling 45 TL."},
	}
	for _, turn := range turns {
		if err := s.Append(id, turn.role, turn.content); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(id, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("recent = %d turns, want %d", len(got), len(turns))
	}
	for i, turn := range turns {
		if got[i].Role != turn.role || got[i].Content != turn.content {
			t.Errorf("turn %d = %s %q, want %s %q", i, got[i].Role, got[i].Content, turn.role, turn.content)
		}
	}
}

func TestRecentLimitKeepsLatestTurns(t *testing.T) {
	s := openTestStore(t)
	id := NewSessionID()

	for i := 0; i < 6; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := s.Append(id, role, string(rune('a'+i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(id, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recent = %d turns, want 2", len(got))
	}
	// The newest two, still in chronological order.
	if got[0].Content != "e" || got[1].Content != "f" {
		t.Errorf("turns = %q, %q, want e, f", got[0].Content, got[1].Content)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	a, b := NewSessionID(), NewSessionID()

	if err := s.Append(a, "user", "in session a"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(b, "user", "in session b"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.Recent(a, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Content != "in session a" {
		t.Errorf("session a turns = %+v", got)
	}
}

func TestAppendRequiresSessionID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Append("", "user", "orphan"); err == nil {
		t.Error("empty session id should be rejected")
	}
}

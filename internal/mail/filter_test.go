package mail

import "testing"

func TestImportantMatchesKeywordSubset(t *testing.T) {
	msgs := []Message{
		{ID: "1", Subject: "Lunch on friday?"},
		{ID: "2", Subject: "COMP305 Assignment 4 posted"},
		{ID: "3", Subject: "hello", Body: "the DEADLINE is tomorrow"},
		{ID: "4", Subject: "newsletter", Snippet: "your exam schedule is out"},
		{ID: "5", Subject: "receipt"},
	}

	got := Important(msgs)
	if len(got) != 3 {
		t.Fatalf("important = %d messages, want 3", len(got))
	}
	// Provider order must be preserved.
	for i, want := range []string{"2", "3", "4"} {
		if got[i].ID != want {
			t.Errorf("important[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestIsImportantCaseInsensitive(t *testing.T) {
	if !IsImportant(Message{Subject: "URGENT: server down"}) {
		t.Error("upper-case keyword in subject should match")
	}
	if IsImportant(Message{Subject: "weekly digest", Body: "nothing special"}) {
		t.Error("message without keywords should not match")
	}
}

func TestParseQueryDateBounds(t *testing.T) {
	q := ParseQuery("after:2025-03-01 before:2025-03-31 invoice")
	if q.After.IsZero() || q.Before.IsZero() {
		t.Fatalf("date bounds not parsed: %+v", q)
	}
	if len(q.Terms) != 1 || q.Terms[0] != "invoice" {
		t.Errorf("terms = %v, want [invoice]", q.Terms)
	}
}

func TestQueryMatch(t *testing.T) {
	msg := Message{
		Subject: "Invoice 2025-42",
		From:    "billing@ku.edu.tr",
		Date:    "2025-03-15",
		Body:    "please pay by the end of the month",
	}

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"subject term", "invoice", true},
		{"sender term", "billing", true},
		{"body term", "pay", true},
		{"missing term", "refund", false},
		{"wildcard sender", "*@ku.edu.tr", true},
		{"wildcard no match", "*@gmail.com", false},
		{"in date range", "after:2025-03-01 before:2025-03-31 invoice", true},
		{"before range", "after:2025-03-20 invoice", false},
		{"past range", "before:2025-03-01 invoice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseQuery(tt.query).Match(msg); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestDecodeCharset(t *testing.T) {
	// "günaydın" in windows-1254.
	raw := []byte{0x67, 0xFC, 0x6E, 0x61, 0x79, 0x64, 0xFD, 0x6E}
	if got := DecodeCharset(raw, "windows-1254"); got != "günaydın" {
		t.Errorf("windows-1254 decode = %q", got)
	}
	if got := DecodeCharset([]byte("plain"), ""); got != "plain" {
		t.Errorf("empty charset should pass through, got %q", got)
	}
	if got := DecodeCharset([]byte("plain"), "no-such-charset"); got != "plain" {
		t.Errorf("unknown charset should pass through, got %q", got)
	}
}

package mail

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// importanceKeywords flag a message as important when any of them appears
// in the subject or body, case-insensitively.
var importanceKeywords = []string{"assignment", "deadline", "exam", "urgent", "due"}

// Important returns the subset of messages whose subject or body mentions
// one of the importance keywords, preserving the input order.
func Important(msgs []Message) []Message {
	var out []Message
	for _, m := range msgs {
		if IsImportant(m) {
			out = append(out, m)
		}
	}
	return out
}

func IsImportant(m Message) bool {
	subject := strings.ToLower(m.Subject)
	body := strings.ToLower(m.Body)
	if body == "" {
		body = strings.ToLower(m.Snippet)
	}
	for _, kw := range importanceKeywords {
		if strings.Contains(subject, kw) || strings.Contains(body, kw) {
			return true
		}
	}
	return false
}

// Query is a parsed local search filter. Text terms match subject, sender
// and body as substrings; terms containing * are matched as wildcard
// patterns against subject and sender. After/Before bound the message date.
type Query struct {
	Terms  []string
	After  time.Time
	Before time.Time
}

// ParseQuery splits free text into terms and pulls out after:YYYY-MM-DD and
// before:YYYY-MM-DD bounds.
func ParseQuery(s string) Query {
	var q Query
	for _, field := range strings.Fields(s) {
		lower := strings.ToLower(field)
		switch {
		case strings.HasPrefix(lower, "after:"):
			if t, err := time.Parse("2006-01-02", lower[len("after:"):]); err == nil {
				q.After = t
				continue
			}
		case strings.HasPrefix(lower, "before:"):
			if t, err := time.Parse("2006-01-02", lower[len("before:"):]); err == nil {
				q.Before = t
				continue
			}
		}
		q.Terms = append(q.Terms, lower)
	}
	return q
}

// Match reports whether a message satisfies every term and the date bounds.
func (q Query) Match(m Message) bool {
	if !q.After.IsZero() || !q.Before.IsZero() {
		sent, err := time.Parse("2006-01-02", m.Date)
		if err != nil {
			return false
		}
		if !q.After.IsZero() && sent.Before(q.After) {
			return false
		}
		if !q.Before.IsZero() && sent.After(q.Before) {
			return false
		}
	}

	subject := strings.ToLower(m.Subject)
	from := strings.ToLower(m.From)
	body := strings.ToLower(m.Body)
	if body == "" {
		body = strings.ToLower(m.Snippet)
	}

	for _, term := range q.Terms {
		if strings.ContainsAny(term, "*?") {
			if matchPattern(term, subject) || matchPattern(term, from) {
				continue
			}
			return false
		}
		if strings.Contains(subject, term) || strings.Contains(from, term) || strings.Contains(body, term) {
			continue
		}
		return false
	}
	return true
}

// Filter applies the query to a message list, preserving order.
func (q Query) Filter(msgs []Message) []Message {
	var out []Message
	for _, m := range msgs {
		if q.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

func matchPattern(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

package classifier

import (
	"context"
	"strings"

	"github.com/yonca-ai/yonca/internal/tools"
)

// RuleClassifier routes by keyword scoring. It is the offline fallback when
// no model is configured, and the deterministic double used in tests. Its
// Call never emits a structured operation; it answers with a hint instead,
// which satisfies the classifier contract (a final answer is always a legal
// outcome).
type RuleClassifier struct {
	keywords map[Target][]string
}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		keywords: map[Target][]string{
			TargetExpense:  {"expense", "budget", "spent", "spend", "cost", "money", "tl", "lira", "payment", "paid"},
			TargetAcademic: {"assignment", "homework", "exam", "midterm", "final", "grade", "course", "deadline", "due"},
			TargetProject:  {"project", "milestone", "feature", "tech stack", "next step", "challenge"},
			TargetEmail:    {"email", "inbox", "unread", "mail", "gmail", "sender", "account"},
		},
	}
}

func (c *RuleClassifier) Route(ctx context.Context, request string, domains []Domain) (Decision, error) {
	lower := strings.ToLower(request)

	best := TargetGeneral
	bestScore := 0
	for _, d := range domains {
		score := 0
		for _, kw := range c.keywords[d.Target] {
			if containsWord(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = d.Target
			bestScore = score
		}
	}

	if best == TargetGeneral {
		return Decision{
			Target:  TargetGeneral,
			Payload: request,
			Answer:  "I can track expenses and budgets, assignments and exams, personal projects, and your email accounts. What would you like to do?",
		}, nil
	}
	return Decision{Target: best, Payload: request}, nil
}

func (c *RuleClassifier) Call(ctx context.Context, instructions, request string, defs []tools.ToolDef) (*tools.ToolCall, string, error) {
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return nil, "I could not work out which operation you meant. Available operations: " + strings.Join(names, ", "), nil
}

func containsWord(haystack, needle string) bool {
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return false
	}
	if idx > 0 && isWordChar(haystack[idx-1]) {
		return false
	}
	end := idx + len(needle)
	if end < len(haystack) && isWordChar(haystack[end]) {
		return false
	}
	return true
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

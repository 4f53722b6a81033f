package expense

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
)

// scriptedClassifier emits a fixed tool call, or a direct answer when call
// is nil.
type scriptedClassifier struct {
	call   *tools.ToolCall
	answer string
}

func (s *scriptedClassifier) Route(ctx context.Context, request string, domains []classifier.Domain) (classifier.Decision, error) {
	return classifier.Decision{Target: classifier.TargetExpense, Payload: request}, nil
}

func (s *scriptedClassifier) Call(ctx context.Context, instructions, request string, defs []tools.ToolDef) (*tools.ToolCall, string, error) {
	return s.call, s.answer, nil
}

func newTestTracker(t *testing.T, cls classifier.Classifier) *Tracker {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	tracker, err := New(s, cls)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tracker
}

func TestHandleExecutesSelectedOperation(t *testing.T) {
	cls := &scriptedClassifier{call: &tools.ToolCall{
		Name:      "add_expense",
		Arguments: json.RawMessage(`{"category": "coffee", "amount": 45, "date": "2025-03-10"}`),
	}}
	tracker := newTestTracker(t, cls)

	out, err := tracker.Handle(context.Background(), "I spent 45 TL on coffee")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(out, "COFFEE") || !strings.Contains(out, "45") {
		t.Errorf("confirmation = %q", out)
	}
}

func TestHandleRelaysDirectAnswer(t *testing.T) {
	cls := &scriptedClassifier{answer: "You have no expenses yet."}
	tracker := newTestTracker(t, cls)

	out, err := tracker.Handle(context.Background(), "talk to me about money")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != "You have no expenses yet." {
		t.Errorf("answer = %q", out)
	}
}

func TestExecuteRejectsMalformedArguments(t *testing.T) {
	tracker := newTestTracker(t, &scriptedClassifier{})

	_, err := tracker.Registry().Execute(context.Background(), "add_expense",
		json.RawMessage(`{"amount": "forty-five"}`))
	if tools.KindOf(err) != tools.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegistryExposesAllOperations(t *testing.T) {
	tracker := newTestTracker(t, &scriptedClassifier{})

	want := []string{
		"add_expense", "remove_expense", "get_expenses", "get_category_total",
		"set_budget", "get_budget", "get_budgets", "remove_budget",
		"reset_budget_spending",
	}
	got := tracker.Registry().Names()
	if len(got) != len(want) {
		t.Fatalf("operations = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operations[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

package expense

import (
	"strings"
	"testing"
	"time"

	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	l := NewLedger(s)
	l.now = func() time.Time {
		return time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	}
	return l
}

func TestAddExpenseValidation(t *testing.T) {
	l := newTestLedger(t)

	tests := []struct {
		name     string
		category string
		amount   float64
		date     string
	}{
		{"empty category", "", 10, ""},
		{"zero amount", "coffee", 0, ""},
		{"negative amount", "coffee", -5, ""},
		{"bad date", "coffee", 10, "10/03/2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.AddExpense(tt.category, tt.amount, tt.date)
			if tools.KindOf(err) != tools.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAddExpenseDefaultsToToday(t *testing.T) {
	l := newTestLedger(t)

	msg, err := l.AddExpense("coffee", 25, "")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if !strings.Contains(msg, "2025-03-10") {
		t.Errorf("confirmation should carry today's date, got %q", msg)
	}

	expenses, err := l.Expenses("coffee")
	if err != nil {
		t.Fatalf("Expenses: %v", err)
	}
	records := expenses["COFFEE"]
	if len(records) != 1 || records[0].Date != "2025-03-10" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestCategoryTotalIsSumOfRecords(t *testing.T) {
	l := newTestLedger(t)

	amounts := []float64{12.5, 30, 7.25}
	want := 0.0
	for _, a := range amounts {
		if _, err := l.AddExpense("Food", a, ""); err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
		want += a
	}

	total, count, err := l.CategoryTotal("food")
	if err != nil {
		t.Fatalf("CategoryTotal: %v", err)
	}
	if total != want {
		t.Errorf("total = %v, want %v", total, want)
	}
	if count != len(amounts) {
		t.Errorf("count = %d, want %d", count, len(amounts))
	}
}

func TestBudgetWarningOnlyWhenOverLimit(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.SetBudget("coffee", 100); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	msg, err := l.AddExpense("coffee", 60, "")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if strings.Contains(msg, "Warning") {
		t.Errorf("60/100 must not warn, got %q", msg)
	}

	msg, err = l.AddExpense("coffee", 50, "")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if !strings.Contains(msg, "Warning") {
		t.Errorf("110/100 must warn, got %q", msg)
	}
	if !strings.Contains(msg, "110") || !strings.Contains(msg, "100") {
		t.Errorf("warning should show spent and limit, got %q", msg)
	}

	b, err := l.BudgetFor("coffee")
	if err != nil {
		t.Fatalf("BudgetFor: %v", err)
	}
	if b.Spent != 110 {
		t.Errorf("spent = %v, want 110", b.Spent)
	}
}

func TestBudgetSpendingAtExactLimitDoesNotWarn(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.SetBudget("transport", 50); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	msg, err := l.AddExpense("transport", 50, "")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if strings.Contains(msg, "Warning") {
		t.Errorf("spent == limit must not warn, got %q", msg)
	}
}

func TestSetBudgetSeedsSpentFromExistingExpenses(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.AddExpense("food", 40, ""); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := l.AddExpense("food", 20, ""); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := l.SetBudget("food", 200); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	b, err := l.BudgetFor("food")
	if err != nil {
		t.Fatalf("BudgetFor: %v", err)
	}
	if b.Spent != 60 {
		t.Errorf("spent = %v, want 60", b.Spent)
	}
}

func TestSetBudgetOverwriteKeepsSpent(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.SetBudget("food", 100); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if _, err := l.AddExpense("food", 30, ""); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := l.SetBudget("food", 250); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	b, err := l.BudgetFor("food")
	if err != nil {
		t.Fatalf("BudgetFor: %v", err)
	}
	if b.Limit != 250 || b.Spent != 30 {
		t.Errorf("budget = %+v, want limit 250 spent 30", b)
	}
}

func TestRemoveExpenseAdjustsBudget(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.SetBudget("coffee", 100); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if _, err := l.AddExpense("coffee", 30, "2025-03-01"); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := l.AddExpense("coffee", 20, "2025-03-01"); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	amount := 30.0
	if _, err := l.RemoveExpense("coffee", "2025-03-01", &amount); err != nil {
		t.Fatalf("RemoveExpense: %v", err)
	}

	total, count, err := l.CategoryTotal("coffee")
	if err != nil {
		t.Fatalf("CategoryTotal: %v", err)
	}
	if total != 20 || count != 1 {
		t.Errorf("total=%v count=%d, want 20 and 1", total, count)
	}
	b, err := l.BudgetFor("coffee")
	if err != nil {
		t.Fatalf("BudgetFor: %v", err)
	}
	if b.Spent != 20 {
		t.Errorf("spent = %v, want 20", b.Spent)
	}
}

func TestRemoveExpenseNotFound(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.RemoveExpense("coffee", "2025-03-01", nil)
	if tools.KindOf(err) != tools.KindNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestExpensesUnknownCategory(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.AddExpense("food", 10, ""); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	_, err := l.Expenses("rent")
	if tools.KindOf(err) != tools.KindNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestResetBudgetSpending(t *testing.T) {
	l := newTestLedger(t)

	if _, err := l.SetBudget("food", 100); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if _, err := l.AddExpense("food", 70, ""); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if _, err := l.ResetBudgetSpending("food"); err != nil {
		t.Fatalf("ResetBudgetSpending: %v", err)
	}

	b, err := l.BudgetFor("food")
	if err != nil {
		t.Fatalf("BudgetFor: %v", err)
	}
	if b.Spent != 0 {
		t.Errorf("spent = %v, want 0", b.Spent)
	}
}

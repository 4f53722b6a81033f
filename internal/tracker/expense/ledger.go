package expense

import (
	"strconv"
	"strings"
	"time"

	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
)

const (
	expensesCollection = "expenses"
	budgetsCollection  = "budgets"

	dateLayout = "2006-01-02"
)

// Record is one recorded expense. Records are immutable once stored; the
// only removal path rewrites the whole collection.
type Record struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// Budget tracks a spending limit per category. Spent mirrors the sum of the
// category's recorded amounts and is only moved by ledger operations.
type Budget struct {
	Limit float64 `json:"limit"`
	Spent float64 `json:"spent"`
}

// Ledger owns the expense and budget collections. Amounts are Turkish Lira;
// the currency is implicit and never encoded.
type Ledger struct {
	store *store.Store
	now   func() time.Time
}

func NewLedger(s *store.Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// NormalizeCategory maps user-supplied category text to its canonical key.
func NormalizeCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

func (l *Ledger) today() string {
	return l.now().Format(dateLayout)
}

// AddExpense appends a record and rolls the amount into the category budget
// if one exists. The confirmation carries a warning clause when the budget
// limit is exceeded afterwards.
func (l *Ledger) AddExpense(category string, amount float64, date string) (string, error) {
	key := NormalizeCategory(category)
	if key == "" {
		return "", tools.Validationf("an expense needs a category")
	}
	if amount <= 0 {
		return "", tools.Validationf("expense amount must be positive, got %s", tl(amount))
	}
	if date == "" {
		date = l.today()
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return "", tools.Validationf("date must be YYYY-MM-DD, got %q", date)
	}

	expenses := map[string][]Record{}
	err := l.store.Update(expensesCollection, &expenses, func() error {
		expenses[key] = append(expenses[key], Record{Date: date, Amount: amount})
		return nil
	})
	if err != nil {
		return "", err
	}

	confirmation := "Expense of " + tl(amount) + " TL added to '" + key + "' on " + date + "."

	budgets := map[string]Budget{}
	var budgetNote string
	err = l.store.Update(budgetsCollection, &budgets, func() error {
		b, ok := budgets[key]
		if !ok {
			return nil
		}
		b.Spent += amount
		budgets[key] = b

		if b.Spent > b.Limit {
			budgetNote = " Warning: over budget, spent " + tl(b.Spent) + " TL of " + tl(b.Limit) + " TL limit (" + tl(b.Spent-b.Limit) + " TL over)."
		} else {
			budgetNote = " Budget: " + tl(b.Spent) + "/" + tl(b.Limit) + " TL (" + tl(b.Limit-b.Spent) + " TL remaining)."
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return confirmation + budgetNote, nil
}

// RemoveExpense deletes records in a category by date. With a non-nil amount
// only the first matching record goes; otherwise every record on that date.
// The category budget is decremented by the removed total, floored at zero.
func (l *Ledger) RemoveExpense(category, date string, amount *float64) (string, error) {
	key := NormalizeCategory(category)
	if key == "" {
		return "", tools.Validationf("an expense needs a category")
	}

	var removedCount int
	var removedTotal float64
	expenses := map[string][]Record{}
	err := l.store.Update(expensesCollection, &expenses, func() error {
		records, ok := expenses[key]
		if !ok || len(records) == 0 {
			return tools.NotFoundf("no expenses found for category '%s'", key)
		}

		var kept []Record
		for _, rec := range records {
			match := rec.Date == date && (amount == nil || (*amount == rec.Amount && removedCount == 0))
			if match {
				removedCount++
				removedTotal += rec.Amount
				continue
			}
			kept = append(kept, rec)
		}
		if removedCount == 0 {
			return tools.NotFoundf("no expense found for '%s' on %s", key, date)
		}

		if len(kept) == 0 {
			delete(expenses, key)
		} else {
			expenses[key] = kept
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	budgets := map[string]Budget{}
	err = l.store.Update(budgetsCollection, &budgets, func() error {
		b, ok := budgets[key]
		if !ok {
			return nil
		}
		b.Spent -= removedTotal
		if b.Spent < 0 {
			b.Spent = 0
		}
		budgets[key] = b
		return nil
	})
	if err != nil {
		return "", err
	}

	return "Removed " + strconv.Itoa(removedCount) + " expense(s) totaling " + tl(removedTotal) + " TL from '" + key + "'.", nil
}

// Expenses returns all categories, or just one when category is non-empty.
// Records keep insertion order.
func (l *Ledger) Expenses(category string) (map[string][]Record, error) {
	expenses := map[string][]Record{}
	if err := l.store.Load(expensesCollection, &expenses); err != nil {
		return nil, err
	}

	if category == "" {
		return expenses, nil
	}

	key := NormalizeCategory(category)
	records, ok := expenses[key]
	if !ok {
		return nil, tools.NotFoundf("no expenses found for category '%s'", key)
	}
	return map[string][]Record{key: records}, nil
}

// CategoryTotal is the authoritative sum of a category's recorded amounts.
func (l *Ledger) CategoryTotal(category string) (float64, int, error) {
	key := NormalizeCategory(category)
	expenses := map[string][]Record{}
	if err := l.store.Load(expensesCollection, &expenses); err != nil {
		return 0, 0, err
	}

	records, ok := expenses[key]
	if !ok {
		return 0, 0, tools.NotFoundf("no expenses found for category '%s'", key)
	}

	var total float64
	for _, rec := range records {
		total += rec.Amount
	}
	return total, len(records), nil
}

// SetBudget creates or overwrites the category budget. A new budget seeds
// spent from the recorded expense sum so the spent-equals-sum invariant
// holds from the start; an overwrite keeps the accumulator.
func (l *Ledger) SetBudget(category string, limit float64) (string, error) {
	key := NormalizeCategory(category)
	if key == "" {
		return "", tools.Validationf("a budget needs a category")
	}
	if limit <= 0 {
		return "", tools.Validationf("budget limit must be positive, got %s", tl(limit))
	}

	spent := 0.0
	expenses := map[string][]Record{}
	if err := l.store.Load(expensesCollection, &expenses); err != nil {
		return "", err
	}
	for _, rec := range expenses[key] {
		spent += rec.Amount
	}

	var existed bool
	budgets := map[string]Budget{}
	err := l.store.Update(budgetsCollection, &budgets, func() error {
		if prev, ok := budgets[key]; ok {
			existed = true
			spent = prev.Spent
		}
		budgets[key] = Budget{Limit: limit, Spent: spent}
		return nil
	})
	if err != nil {
		return "", err
	}

	if existed {
		return "Budget for '" + key + "' updated to " + tl(limit) + " TL limit. Currently spent: " + tl(spent) + " TL.", nil
	}
	if spent > 0 {
		return "Budget for '" + key + "' created with " + tl(limit) + " TL limit. Current spending: " + tl(spent) + " TL (" + tl(limit-spent) + " TL remaining).", nil
	}
	return "Budget for '" + key + "' created with " + tl(limit) + " TL limit.", nil
}

// Budgets returns all budgets keyed by category.
func (l *Ledger) Budgets() (map[string]Budget, error) {
	budgets := map[string]Budget{}
	if err := l.store.Load(budgetsCollection, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

func (l *Ledger) BudgetFor(category string) (Budget, error) {
	key := NormalizeCategory(category)
	budgets, err := l.Budgets()
	if err != nil {
		return Budget{}, err
	}
	b, ok := budgets[key]
	if !ok {
		return Budget{}, tools.NotFoundf("no budget found for category '%s'", key)
	}
	return b, nil
}

func (l *Ledger) RemoveBudget(category string) (string, error) {
	key := NormalizeCategory(category)
	budgets := map[string]Budget{}
	err := l.store.Update(budgetsCollection, &budgets, func() error {
		if _, ok := budgets[key]; !ok {
			return tools.NotFoundf("no budget found for category '%s'", key)
		}
		delete(budgets, key)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Budget for '" + key + "' removed.", nil
}

// ResetBudgetSpending zeroes the accumulator, e.g. at the start of a month.
func (l *Ledger) ResetBudgetSpending(category string) (string, error) {
	key := NormalizeCategory(category)
	var prev float64
	budgets := map[string]Budget{}
	err := l.store.Update(budgetsCollection, &budgets, func() error {
		b, ok := budgets[key]
		if !ok {
			return tools.NotFoundf("no budget found for category '%s'", key)
		}
		prev = b.Spent
		b.Spent = 0
		budgets[key] = b
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Budget '" + key + "' spending reset: " + tl(prev) + " to 0 TL.", nil
}

// tl formats an amount the way the confirmations print money: no trailing
// zeros, no currency symbol.
func tl(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

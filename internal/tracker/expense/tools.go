package expense

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
	"github.com/yonca-ai/yonca/internal/tracker"
)

const instructions = `You manage the user's expenses and budgets. Record expenses per category,
keep budget limits, and report spending. The currency is Turkish Lira (TL).
If no date is given for an expense, leave the date argument empty so today is used.`

// Tracker is the expense domain engine: the ledger plus its operation
// registry and the classifier-assisted dispatch step.
type Tracker struct {
	ledger   *Ledger
	cls      classifier.Classifier
	registry *tools.Registry
}

func New(s *store.Store, cls classifier.Classifier) (*Tracker, error) {
	t := &Tracker{
		ledger:   NewLedger(s),
		cls:      cls,
		registry: tools.NewRegistry(),
	}

	err := t.registry.RegisterAll(
		&addExpenseTool{t.ledger},
		&removeExpenseTool{t.ledger},
		&getExpensesTool{t.ledger},
		&categoryTotalTool{t.ledger},
		&setBudgetTool{t.ledger},
		&getBudgetTool{t.ledger},
		&getBudgetsTool{t.ledger},
		&removeBudgetTool{t.ledger},
		&resetBudgetTool{t.ledger},
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) Target() classifier.Target {
	return classifier.TargetExpense
}

func (t *Tracker) Description() string {
	return "Money: adding and viewing expenses, creating and checking budgets, spending totals, payments in TL."
}

func (t *Tracker) Handle(ctx context.Context, request string) (string, error) {
	return tracker.Dispatch(ctx, t.cls, t.registry, instructions, request)
}

// Registry exposes the operation set, mainly for tests.
func (t *Tracker) Registry() *tools.Registry {
	return t.registry
}

type addExpenseTool struct {
	ledger *Ledger
}

func (t *addExpenseTool) Name() string { return "add_expense" }

func (t *addExpenseTool) Description() string {
	return "Record an expense in a category. Updates the category budget if one exists and warns when the limit is exceeded."
}

func (t *addExpenseTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Expense category, e.g. coffee, food, transport"},
			"amount": {"type": "number", "description": "Amount spent in TL, must be positive"},
			"date": {"type": "string", "description": "Date of the expense (YYYY-MM-DD). Omit for today."}
		},
		"required": ["category", "amount"]
	}`)
}

func (t *addExpenseTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
		Date     string  `json:"date"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid add_expense arguments: %v", err)
	}
	return t.ledger.AddExpense(req.Category, req.Amount, req.Date)
}

type removeExpenseTool struct {
	ledger *Ledger
}

func (t *removeExpenseTool) Name() string { return "remove_expense" }

func (t *removeExpenseTool) Description() string {
	return "Remove expenses from a category by date. With an amount only the first matching record is removed."
}

func (t *removeExpenseTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Expense category"},
			"date": {"type": "string", "description": "Date of the expense(s) to remove (YYYY-MM-DD)"},
			"amount": {"type": "number", "description": "Optional exact amount to match"}
		},
		"required": ["category", "date"]
	}`)
}

func (t *removeExpenseTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string   `json:"category"`
		Date     string   `json:"date"`
		Amount   *float64 `json:"amount"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid remove_expense arguments: %v", err)
	}
	return t.ledger.RemoveExpense(req.Category, req.Date, req.Amount)
}

type getExpensesTool struct {
	ledger *Ledger
}

func (t *getExpensesTool) Name() string { return "get_expenses" }

func (t *getExpensesTool) Description() string {
	return "List recorded expenses, all categories or a single one."
}

func (t *getExpensesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Optional category filter"}
		},
		"required": []
	}`)
}

func (t *getExpensesTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_expenses arguments: %v", err)
	}

	expenses, err := t.ledger.Expenses(req.Category)
	if err != nil {
		return "", err
	}
	if len(expenses) == 0 {
		return "No expenses recorded yet.", nil
	}

	categories := make([]string, 0, len(expenses))
	for key := range expenses {
		categories = append(categories, key)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, key := range categories {
		b.WriteString(key + ":\n")
		for _, rec := range expenses[key] {
			b.WriteString("  " + rec.Date + "  " + tl(rec.Amount) + " TL\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type categoryTotalTool struct {
	ledger *Ledger
}

func (t *categoryTotalTool) Name() string { return "get_category_total" }

func (t *categoryTotalTool) Description() string {
	return "Total amount spent in a category."
}

func (t *categoryTotalTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Category to sum"}
		},
		"required": ["category"]
	}`)
}

func (t *categoryTotalTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_category_total arguments: %v", err)
	}

	total, count, err := t.ledger.CategoryTotal(req.Category)
	if err != nil {
		return "", err
	}
	key := NormalizeCategory(req.Category)
	return "Category '" + key + "': " + pluralize(count, "expense") + " totaling " + tl(total) + " TL.", nil
}

type setBudgetTool struct {
	ledger *Ledger
}

func (t *setBudgetTool) Name() string { return "set_budget" }

func (t *setBudgetTool) Description() string {
	return "Create or change the spending limit for a category. Existing spending is kept."
}

func (t *setBudgetTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Budget category"},
			"limit": {"type": "number", "description": "Spending limit in TL, must be positive"}
		},
		"required": ["category", "limit"]
	}`)
}

func (t *setBudgetTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string  `json:"category"`
		Limit    float64 `json:"limit"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid set_budget arguments: %v", err)
	}
	return t.ledger.SetBudget(req.Category, req.Limit)
}

type getBudgetTool struct {
	ledger *Ledger
}

func (t *getBudgetTool) Name() string { return "get_budget" }

func (t *getBudgetTool) Description() string {
	return "Budget status for one category: limit, spent and remaining."
}

func (t *getBudgetTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Budget category"}
		},
		"required": ["category"]
	}`)
}

func (t *getBudgetTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_budget arguments: %v", err)
	}

	b, err := t.ledger.BudgetFor(req.Category)
	if err != nil {
		return "", err
	}
	key := NormalizeCategory(req.Category)
	return "Budget '" + key + "': " + tl(b.Spent) + "/" + tl(b.Limit) + " TL (" + tl(b.Limit-b.Spent) + " TL remaining).", nil
}

type getBudgetsTool struct {
	ledger *Ledger
}

func (t *getBudgetsTool) Name() string { return "get_budgets" }

func (t *getBudgetsTool) Description() string {
	return "List every budget with its limit and spending."
}

func (t *getBudgetsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *getBudgetsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	budgets, err := t.ledger.Budgets()
	if err != nil {
		return "", err
	}
	if len(budgets) == 0 {
		return "No budgets set yet.", nil
	}

	categories := make([]string, 0, len(budgets))
	for key := range budgets {
		categories = append(categories, key)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, key := range categories {
		budget := budgets[key]
		b.WriteString(key + ": " + tl(budget.Spent) + "/" + tl(budget.Limit) + " TL\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type removeBudgetTool struct {
	ledger *Ledger
}

func (t *removeBudgetTool) Name() string { return "remove_budget" }

func (t *removeBudgetTool) Description() string {
	return "Delete a budget category entirely. Recorded expenses are untouched."
}

func (t *removeBudgetTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Budget category to remove"}
		},
		"required": ["category"]
	}`)
}

func (t *removeBudgetTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid remove_budget arguments: %v", err)
	}
	return t.ledger.RemoveBudget(req.Category)
}

type resetBudgetTool struct {
	ledger *Ledger
}

func (t *resetBudgetTool) Name() string { return "reset_budget_spending" }

func (t *resetBudgetTool) Description() string {
	return "Reset a budget's spent amount to zero, e.g. at the start of a new month."
}

func (t *resetBudgetTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"category": {"type": "string", "description": "Budget category to reset"}
		},
		"required": ["category"]
	}`)
}

func (t *resetBudgetTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid reset_budget_spending arguments: %v", err)
	}
	return t.ledger.ResetBudgetSpending(req.Category)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return tl(float64(n)) + " " + word + "s"
}

package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/yonca-ai/yonca/internal/tools"
)

var testDomains = []Domain{
	{Target: TargetExpense, Description: "money"},
	{Target: TargetAcademic, Description: "coursework"},
	{Target: TargetProject, Description: "projects"},
	{Target: TargetEmail, Description: "mail"},
}

func TestRuleClassifierRouting(t *testing.T) {
	c := NewRuleClassifier()

	tests := []struct {
		request string
		want    Target
	}{
		{"I spent 45 TL on coffee today", TargetExpense},
		{"set my food budget to 2000", TargetExpense},
		{"when is my COMP305 assignment due?", TargetAcademic},
		{"I got 85 on the midterm", TargetAcademic},
		{"add a milestone to my project", TargetProject},
		{"any unread mail in my inbox?", TargetEmail},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			d, err := c.Route(context.Background(), tt.request, testDomains)
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if d.Target != tt.want {
				t.Errorf("target = %s, want %s", d.Target, tt.want)
			}
			if d.Target != TargetGeneral && d.Payload != tt.request {
				t.Errorf("payload = %q, want the verbatim request", d.Payload)
			}
		})
	}
}

func TestRuleClassifierFallsBackToGeneral(t *testing.T) {
	c := NewRuleClassifier()

	d, err := c.Route(context.Background(), "what is the weather like?", testDomains)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if d.Target != TargetGeneral {
		t.Errorf("target = %s, want general", d.Target)
	}
	if d.Answer == "" {
		t.Error("general decision should carry a direct answer")
	}
}

func TestRuleClassifierCallAnswersWithHint(t *testing.T) {
	c := NewRuleClassifier()
	defs := []tools.ToolDef{
		{Name: "add_expense", Description: "record an expense"},
		{Name: "set_budget", Description: "set a budget"},
	}

	call, answer, err := c.Call(context.Background(), "instructions", "spent 10", defs)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if call != nil {
		t.Errorf("rule classifier must not emit structured calls, got %+v", call)
	}
	if !strings.Contains(answer, "add_expense") {
		t.Errorf("answer should list operation names, got %q", answer)
	}
}

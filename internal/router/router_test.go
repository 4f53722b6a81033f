package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/tools"
)

// scriptedClassifier returns a fixed decision for Route.
type scriptedClassifier struct {
	decision classifier.Decision
	err      error
}

func (s *scriptedClassifier) Route(ctx context.Context, request string, domains []classifier.Domain) (classifier.Decision, error) {
	return s.decision, s.err
}

func (s *scriptedClassifier) Call(ctx context.Context, instructions, request string, defs []tools.ToolDef) (*tools.ToolCall, string, error) {
	return nil, "", nil
}

type stubTracker struct {
	target  classifier.Target
	reply   string
	err     error
	gotText string
}

func (s *stubTracker) Target() classifier.Target { return s.target }
func (s *stubTracker) Description() string       { return "stub domain" }

func (s *stubTracker) Handle(ctx context.Context, request string) (string, error) {
	s.gotText = request
	return s.reply, s.err
}

func TestRouteForwardsVerbatimRequest(t *testing.T) {
	tracker := &stubTracker{target: classifier.TargetExpense, reply: "recorded"}
	cls := &scriptedClassifier{decision: classifier.Decision{
		Target:  classifier.TargetExpense,
		Payload: "I spent 45 TL on coffee",
	}}
	r := New(cls, tracker)

	got := r.Route(context.Background(), "I spent 45 TL on coffee")
	if got != "recorded" {
		t.Errorf("response = %q, want tracker reply", got)
	}
	if tracker.gotText != "I spent 45 TL on coffee" {
		t.Errorf("tracker received %q, want the verbatim request", tracker.gotText)
	}
}

func TestRouteGeneralAnswersDirectly(t *testing.T) {
	tracker := &stubTracker{target: classifier.TargetExpense}
	cls := &scriptedClassifier{decision: classifier.Decision{
		Target: classifier.TargetGeneral,
		Answer: "Hello! How can I help?",
	}}
	r := New(cls, tracker)

	got := r.Route(context.Background(), "hi")
	if got != "Hello! How can I help?" {
		t.Errorf("response = %q", got)
	}
	if tracker.gotText != "" {
		t.Error("general turn must not touch any tracker")
	}
}

func TestRouteDomainErrorBecomesResponseText(t *testing.T) {
	tracker := &stubTracker{
		target: classifier.TargetProject,
		err:    tools.Conflictf("project 'DEMO' already exists"),
	}
	cls := &scriptedClassifier{decision: classifier.Decision{
		Target:  classifier.TargetProject,
		Payload: "create demo",
	}}
	r := New(cls, tracker)

	got := r.Route(context.Background(), "create demo")
	if !strings.Contains(got, "already exists") {
		t.Errorf("response = %q, want the domain error text", got)
	}
}

func TestRouteClassifierFailureFallsBack(t *testing.T) {
	cls := &scriptedClassifier{err: errors.New("model unavailable")}
	r := New(cls, &stubTracker{target: classifier.TargetExpense})

	got := r.Route(context.Background(), "anything")
	if got != fallbackAnswer {
		t.Errorf("response = %q, want the fallback answer", got)
	}
}

func TestRouteUnknownTargetFallsBack(t *testing.T) {
	cls := &scriptedClassifier{decision: classifier.Decision{
		Target:  classifier.TargetEmail,
		Payload: "check my mail",
	}}
	// No email tracker registered.
	r := New(cls, &stubTracker{target: classifier.TargetExpense})

	got := r.Route(context.Background(), "check my mail")
	if got != fallbackAnswer {
		t.Errorf("response = %q, want the fallback answer", got)
	}
}

func TestTargets(t *testing.T) {
	r := New(&scriptedClassifier{},
		&stubTracker{target: classifier.TargetExpense},
		&stubTracker{target: classifier.TargetAcademic},
	)
	targets := r.Targets()
	if len(targets) != 2 || targets[0] != "expense" || targets[1] != "academic" {
		t.Errorf("targets = %v", targets)
	}
}

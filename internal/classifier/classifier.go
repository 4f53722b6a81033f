package classifier

import (
	"context"

	"github.com/yonca-ai/yonca/internal/tools"
)

// Target is one of the routing labels the orchestrator understands.
type Target string

const (
	TargetExpense  Target = "expense"
	TargetAcademic Target = "academic"
	TargetProject  Target = "project"
	TargetEmail    Target = "email"
	TargetGeneral  Target = "general"
)

// Domain describes one tracker's scope to the classifier.
type Domain struct {
	Target      Target
	Description string
}

// Decision is the transient routing result. Payload carries the original
// request text; Answer is only set for TargetGeneral, where the classifier
// responds directly instead of naming a tracker.
type Decision struct {
	Target  Target
	Payload string
	Answer  string
}

// Classifier is the opaque natural-language collaborator. Route maps a raw
// request to exactly one target label; Call selects one operation from a
// fixed schema and extracts its arguments, or returns a plain-text final
// answer (call == nil). Implementations may be model-backed or rule-based;
// callers tolerate non-determinism and never retry.
type Classifier interface {
	Route(ctx context.Context, request string, domains []Domain) (Decision, error)
	Call(ctx context.Context, instructions, request string, defs []tools.ToolDef) (*tools.ToolCall, string, error)
}

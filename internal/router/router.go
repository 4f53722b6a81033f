package router

import (
	"context"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/logger"
)

var log = logger.ForComponent("router")

// Tracker is one domain engine the router can forward to. Description is the
// domain scope text handed to the classifier.
type Tracker interface {
	Target() classifier.Target
	Description() string
	Handle(ctx context.Context, request string) (string, error)
}

// Router is the orchestrator: it classifies a request into one of the domain
// targets and relays the selected tracker's textual result unmodified. It
// owns no domain state and never retries.
type Router struct {
	cls      classifier.Classifier
	trackers map[classifier.Target]Tracker
	domains  []classifier.Domain
}

func New(cls classifier.Classifier, trackers ...Tracker) *Router {
	r := &Router{
		cls:      cls,
		trackers: make(map[classifier.Target]Tracker),
	}
	for _, t := range trackers {
		r.trackers[t.Target()] = t
		r.domains = append(r.domains, classifier.Domain{
			Target:      t.Target(),
			Description: t.Description(),
		})
	}
	return r
}

// Targets lists the registered domain targets in registration order.
func (r *Router) Targets() []string {
	var targets []string
	for _, d := range r.domains {
		targets = append(targets, string(d.Target))
	}
	return targets
}

const fallbackAnswer ="I can help with expenses and budgets, assignments and exams, personal projects, and email. Could you rephrase what you need?"

// Route processes one chat turn. Domain errors come back as the response
// text rather than as an error: they are answers to the user, not failures
// of the router.
func (r *Router) Route(ctx context.Context, request string) string {
	decision, err := r.cls.Route(ctx, request, r.domains)
	if err != nil {
		log.Error("classification failed", "error", err)
		return fallbackAnswer
	}

	if decision.Target == classifier.TargetGeneral {
		if decision.Answer != "" {
			return decision.Answer
		}
		return fallbackAnswer
	}

	t, ok := r.trackers[decision.Target]
	if !ok {
		log.Warn("classifier chose unknown target", "target", decision.Target)
		return fallbackAnswer
	}

	log.Debug("forwarding request", "target", decision.Target)
	result, err := t.Handle(ctx, decision.Payload)
	if err != nil {
		return err.Error()
	}
	return result
}

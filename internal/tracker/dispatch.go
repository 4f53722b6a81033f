// Package tracker carries the dispatch step shared by every domain engine:
// one classifier-assisted tool selection over the tracker's own registry,
// followed by the execution of the selected operation.
package tracker

import (
	"context"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/tools"
)

// Dispatch runs one request through a tracker's registry: the classifier
// either selects an operation (executed via the registry) or answers
// directly. Argument validation happens inside the tools themselves.
func Dispatch(ctx context.Context, cls classifier.Classifier, reg *tools.Registry, instructions, request string) (string, error) {
	call, answer, err := cls.Call(ctx, instructions, request, reg.Definitions())
	if err != nil {
		return "", err
	}
	if call == nil {
		return answer, nil
	}
	return reg.Execute(ctx, call.Name, call.Arguments)
}

package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yonca-ai/yonca/internal/logger"
	"github.com/yonca-ai/yonca/internal/tools"
)

var log = logger.ForComponent("classifier")

// OpenAIClassifier backs the classifier contract with OpenAI function
// calling: routing targets and tracker operations are both presented as
// callable functions, and the model's tool call is the structured result.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewOpenAIClassifier(apiKey, model string) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = "gpt-4.1-mini"
	}
	return &OpenAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
		now:    time.Now,
	}, nil
}

func (c *OpenAIClassifier) Route(ctx context.Context, request string, domains []Domain) (Decision, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.routePrompt(domains)},
			{Role: openai.ChatMessageRoleUser, Content: request},
		},
		Tools: routeTools(domains),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Decision{}, fmt.Errorf("classify request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Decision{}, fmt.Errorf("classifier returned no choices")
	}

	msg := resp.Choices[0].Message
	for _, tc := range msg.ToolCalls {
		target, ok := targetForRouteTool(tc.Function.Name)
		if !ok {
			continue
		}
		if target == TargetGeneral {
			var args struct {
				Response string `json:"response"`
			}
			json.Unmarshal([]byte(tc.Function.Arguments), &args)
			return Decision{Target: TargetGeneral, Payload: request, Answer: args.Response}, nil
		}
		log.Debug("routed", "target", target)
		return Decision{Target: target, Payload: request}, nil
	}

	// No routing function was called: treat as ambiguous and fall back to
	// the general handler instead of guessing a domain.
	log.Debug("no routing call, falling back to general")
	return Decision{Target: TargetGeneral, Payload: request, Answer: msg.Content}, nil
}

func (c *OpenAIClassifier) Call(ctx context.Context, instructions, request string, defs []tools.ToolDef) (*tools.ToolCall, string, error) {
	oaTools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		oaTools = append(oaTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema,
			},
		})
	}

	system := fmt.Sprintf("%s\n\nCURRENT DATE: %s\nResolve relative dates like \"today\" or \"tomorrow\" against the current date and pass dates as YYYY-MM-DD.",
		instructions, c.now().Format("Monday, January 2, 2006"))

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: request},
		},
		Tools: oaTools,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("select operation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, "", fmt.Errorf("classifier returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		log.Debug("selected operation", "name", tc.Function.Name)
		return &tools.ToolCall{Name: tc.Function.Name, Arguments: args}, "", nil
	}
	return nil, msg.Content, nil
}

func (c *OpenAIClassifier) routePrompt(domains []Domain) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the router of a personal assistant.\n\nCURRENT DATE: %s\n\n", c.now().Format("Monday, January 2, 2006"))
	b.WriteString("Route the user's request to exactly ONE domain by calling its routing function with the COMPLETE original request text.\n")
	b.WriteString("For greetings, questions about what you can do, or requests that fit no domain, call general_response with a direct answer instead.\n\nDomains:\n")
	for _, d := range domains {
		fmt.Fprintf(&b, "- %s: %s\n", d.Target, d.Description)
	}
	return b.String()
}

func routeTools(domains []Domain) []openai.Tool {
	forwardSchema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_request": {"type": "string", "description": "The user's complete original request"}
		},
		"required": ["user_request"]
	}`)

	result := make([]openai.Tool, 0, len(domains)+1)
	for _, d := range domains {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "route_to_" + string(d.Target),
				Description: d.Description,
				Parameters:  forwardSchema,
			},
		})
	}
	result = append(result, openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "general_response",
			Description: "Respond directly for greetings, capability questions, or requests that fit no domain.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"response": {"type": "string", "description": "The answer to give the user"}
				},
				"required": ["response"]
			}`),
		},
	})
	return result
}

func targetForRouteTool(name string) (Target, bool) {
	switch name {
	case "route_to_expense":
		return TargetExpense, true
	case "route_to_academic":
		return TargetAcademic, true
	case "route_to_project":
		return TargetProject, true
	case "route_to_email":
		return TargetEmail, true
	case "general_response":
		return TargetGeneral, true
	default:
		return "", false
	}
}

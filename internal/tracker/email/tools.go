package email

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/mail"
	"github.com/yonca-ai/yonca/internal/tools"
	"github.com/yonca-ai/yonca/internal/tracker"
)

const instructions = `You manage the user's email accounts. Accounts must be connected before
reading mail. Reading is the only capability; nothing can be sent. When the
user asks about important mail, use check_important_emails.`

// Tracker is the email domain engine: the session manager plus its
// operation registry and the classifier-assisted dispatch step.
type Tracker struct {
	manager  *Manager
	cls      classifier.Classifier
	registry *tools.Registry
}

func New(m *Manager, cls classifier.Classifier) (*Tracker, error) {
	t := &Tracker{
		manager:  m,
		cls:      cls,
		registry: tools.NewRegistry(),
	}

	err := t.registry.RegisterAll(
		&connectAccountTool{m},
		&listAccountsTool{m},
		&unreadTool{m},
		&recentTool{m},
		&searchTool{m},
		&contentTool{m},
		&importantTool{m},
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) Target() classifier.Target {
	return classifier.TargetEmail
}

func (t *Tracker) Description() string {
	return "Email: connecting accounts, unread and recent messages, searching mail, reading messages, important mail."
}

func (t *Tracker) Handle(ctx context.Context, request string) (string, error) {
	return tracker.Dispatch(ctx, t.cls, t.registry, instructions, request)
}

// Registry exposes the operation set, mainly for tests.
func (t *Tracker) Registry() *tools.Registry {
	return t.registry
}

type connectAccountTool struct {
	manager *Manager
}

func (t *connectAccountTool) Name() string { return "connect_account" }

func (t *connectAccountTool) Description() string {
	return "Connect an email account. Uses a stored credential when possible, otherwise opens the browser consent flow."
}

func (t *connectAccountTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"account": {"type": "string", "description": "Account name, e.g. personal or school"}
		},
		"required": ["account"]
	}`)
}

func (t *connectAccountTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid connect_account arguments: %v", err)
	}
	if strings.TrimSpace(req.Account) == "" {
		return "", tools.Validationf("account name is required")
	}
	return t.manager.Connect(ctx, strings.TrimSpace(req.Account))
}

type listAccountsTool struct {
	manager *Manager
}

func (t *listAccountsTool) Name() string { return "list_accounts" }

func (t *listAccountsTool) Description() string {
	return "List known email accounts and their connection state."
}

func (t *listAccountsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *listAccountsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	states, err := t.manager.Accounts()
	if err != nil {
		return "", err
	}
	if len(states) == 0 {
		return "No email accounts yet. Use connect_account to add one.", nil
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name + ": " + string(states[name]) + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type unreadTool struct {
	manager *Manager
}

func (t *unreadTool) Name() string { return "get_unread_emails" }

func (t *unreadTool) Description() string {
	return "List unread messages in an account's inbox."
}

func (t *unreadTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"account": {"type": "string", "description": "Account name"},
			"max": {"type": "integer", "description": "Maximum messages to return, default 10"}
		},
		"required": ["account"]
	}`)
}

func (t *unreadTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Account string `json:"account"`
		Max     int    `json:"max"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_unread_emails arguments: %v", err)
	}

	msgs, err := t.manager.Unread(ctx, req.Account, req.Max)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "No unread messages.", nil
	}
	return formatMessages(msgs), nil
}

type recentTool struct {
	manager *Manager
}

func (t *recentTool) Name() string { return "get_recent_emails" }

func (t *recentTool) Description() string {
	return "List the most recent messages in an account's inbox, read or not."
}

func (t *recentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"account": {"type": "string", "description": "Account name"},
			"max": {"type": "integer", "description": "Maximum messages to return, default 10"}
		},
		"required": ["account"]
	}`)
}

func (t *recentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Account string `json:"account"`
		Max     int    `json:"max"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_recent_emails arguments: %v", err)
	}

	msgs, err := t.manager.Recent(ctx, req.Account, req.Max)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "Inbox is empty.", nil
	}
	return formatMessages(msgs), nil
}

type searchTool struct {
	manager *Manager
}

func (t *searchTool) Name() string { return "search_emails" }

func (t *searchTool) Description() string {
	return "Search an account's mail. Terms match subject, sender and body; supports after:/before: date bounds and * wildcards, e.g. *@ku.edu.tr."
}

func (t *searchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"account": {"type": "string", "description": "Account name"},
			"query": {"type": "string", "description": "Search query"},
			"max": {"type": "integer", "description": "Maximum messages to return, default 10"}
		},
		"required": ["account", "query"]
	}`)
}

func (t *searchTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Account string `json:"account"`
		Query   string `json:"query"`
		Max     int    `json:"max"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid search_emails arguments: %v", err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return "", tools.Validationf("a search query is required")
	}

	msgs, err := t.manager.SearchMail(ctx, req.Account, req.Query, req.Max)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "No messages match '" + req.Query + "'.", nil
	}
	return formatMessages(msgs), nil
}

type contentTool struct {
	manager *Manager
}

func (t *contentTool) Name() string { return "get_email_content" }

func (t *contentTool) Description() string {
	return "Read one message in full by its id (shown in listings)."
}

func (t *contentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"account": {"type": "string", "description": "Account name"},
			"id": {"type": "string", "description": "Message id"}
		},
		"required": ["account", "id"]
	}`)
}

func (t *contentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Account string `json:"account"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_email_content arguments: %v", err)
	}

	msg, err := t.manager.Content(ctx, req.Account, req.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("From: " + msg.From + "\n")
	b.WriteString("Date: " + msg.Date + "\n")
	b.WriteString("Subject: " + msg.Subject + "\n\n")
	if msg.Body != "" {
		b.WriteString(msg.Body)
	} else {
		b.WriteString(msg.Snippet)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type importantTool struct {
	manager *Manager
}

func (t *importantTool) Name() string { return "check_important_emails" }

func (t *importantTool) Description() string {
	return "List unread messages that look important: mentions of assignments, deadlines, exams or urgent matters."
}

func (t *importantTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"account": {"type": "string", "description": "Account name"}
		},
		"required": ["account"]
	}`)
}

func (t *importantTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid check_important_emails arguments: %v", err)
	}

	msgs, err := t.manager.Important(ctx, req.Account)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "Nothing important in unread mail.", nil
	}
	return formatMessages(msgs), nil
}

func formatMessages(msgs []mail.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		line := "[" + m.ID + "] " + m.Date + "  " + m.From + ": " + m.Subject
		if m.Snippet != "" {
			line += "\n    " + m.Snippet
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

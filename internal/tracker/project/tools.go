package project

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
	"github.com/yonca-ai/yonca/internal/tracker"
)

const instructions = `You manage the user's personal projects: milestones, features, challenges,
next steps, tech stack, links and dated notes. Project status is one of
in_progress, completed or on_hold and changes only when the user asks for it.`

// Tracker is the project domain engine: the portfolio plus its operation
// registry and the classifier-assisted dispatch step.
type Tracker struct {
	portfolio *Portfolio
	cls       classifier.Classifier
	registry  *tools.Registry
}

func New(s *store.Store, cls classifier.Classifier) (*Tracker, error) {
	t := &Tracker{
		portfolio: NewPortfolio(s),
		cls:       cls,
		registry:  tools.NewRegistry(),
	}

	err := t.registry.RegisterAll(
		&createProjectTool{t.portfolio},
		&getProjectTool{t.portfolio},
		&listProjectsTool{t.portfolio},
		&updateStatusTool{t.portfolio},
		&updateDescriptionTool{t.portfolio},
		&addMilestoneTool{t.portfolio},
		&completeMilestoneTool{t.portfolio},
		&removeMilestoneTool{t.portfolio},
		&addDetailTool{t.portfolio, FieldFeature, "add_feature", "Add a feature to a project's feature list. Adding an existing feature is a no-op."},
		&addDetailTool{t.portfolio, FieldChallenge, "add_challenge", "Record a challenge or blocker the project is facing."},
		&addDetailTool{t.portfolio, FieldNextStep, "add_next_step", "Append a next step to the project's ordered to-do list."},
		&addDetailTool{t.portfolio, FieldTech, "add_tech", "Add a technology to the project's tech stack."},
		&addDetailTool{t.portfolio, FieldLink, "add_link", "Attach a link (repository, docs, demo) to the project."},
		&removeDetailTool{t.portfolio, FieldFeature, "remove_feature", "Remove a feature from the project's feature list."},
		&removeDetailTool{t.portfolio, FieldChallenge, "remove_challenge", "Remove a challenge, e.g. once it is resolved."},
		&removeDetailTool{t.portfolio, FieldNextStep, "remove_next_step", "Remove a next step, e.g. once it is done."},
		&removeDetailTool{t.portfolio, FieldTech, "remove_tech", "Remove a technology from the project's tech stack."},
		&removeDetailTool{t.portfolio, FieldLink, "remove_link", "Remove a link from the project."},
		&addNoteTool{t.portfolio},
		&removeProjectTool{t.portfolio},
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) Target() classifier.Target {
	return classifier.TargetProject
}

func (t *Tracker) Description() string {
	return "Personal projects: creating them, milestones, features, challenges, next steps, tech stack, notes, status."
}

func (t *Tracker) Handle(ctx context.Context, request string) (string, error) {
	return tracker.Dispatch(ctx, t.cls, t.registry, instructions, request)
}

// Registry exposes the operation set, mainly for tests.
func (t *Tracker) Registry() *tools.Registry {
	return t.registry
}

type createProjectTool struct {
	portfolio *Portfolio
}

func (t *createProjectTool) Name() string { return "create_project" }

func (t *createProjectTool) Description() string {
	return "Create a new project. The name becomes its unique key; a duplicate name fails."
}

func (t *createProjectTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Project name, e.g. yonca assistant"},
			"description": {"type": "string", "description": "One-line description of the project"}
		},
		"required": ["name"]
	}`)
}

func (t *createProjectTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid create_project arguments: %v", err)
	}
	return t.portfolio.CreateProject(req.Name, req.Description)
}

type getProjectTool struct {
	portfolio *Portfolio
}

func (t *getProjectTool) Name() string { return "get_project" }

func (t *getProjectTool) Description() string {
	return "Show a project in full: status, milestones, features, challenges, next steps, tech stack, notes and links."
}

func (t *getProjectTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Project name"}
		},
		"required": ["name"]
	}`)
}

func (t *getProjectTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_project arguments: %v", err)
	}

	proj, err := t.portfolio.Project(req.Name)
	if err != nil {
		return "", err
	}
	return formatProject(Key(req.Name), proj), nil
}

type listProjectsTool struct {
	portfolio *Portfolio
}

func (t *listProjectsTool) Name() string { return "list_projects" }

func (t *listProjectsTool) Description() string {
	return "List projects with their status, optionally filtered by status."
}

func (t *listProjectsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"status": {"type": "string", "enum": ["in_progress", "completed", "on_hold"], "description": "Optional status filter"}
		},
		"required": []
	}`)
}

func (t *listProjectsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid list_projects arguments: %v", err)
	}

	keys, projects, err := t.portfolio.Projects(req.Status)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		if req.Status != "" {
			return "No projects with status " + req.Status + ".", nil
		}
		return "No projects yet.", nil
	}

	var b strings.Builder
	for _, key := range keys {
		proj := projects[key]
		b.WriteString(key + " (" + proj.Status + "): " + proj.Description + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type updateStatusTool struct {
	portfolio *Portfolio
}

func (t *updateStatusTool) Name() string { return "update_project_status" }

func (t *updateStatusTool) Description() string {
	return "Change a project's status to in_progress, completed or on_hold."
}

func (t *updateStatusTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Project name"},
			"status": {"type": "string", "enum": ["in_progress", "completed", "on_hold"], "description": "New status"}
		},
		"required": ["name", "status"]
	}`)
}

func (t *updateStatusTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid update_project_status arguments: %v", err)
	}
	return t.portfolio.UpdateStatus(req.Name, req.Status)
}

type updateDescriptionTool struct {
	portfolio *Portfolio
}

func (t *updateDescriptionTool) Name() string { return "update_project_description" }

func (t *updateDescriptionTool) Description() string {
	return "Replace a project's description."
}

func (t *updateDescriptionTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Project name"},
			"description": {"type": "string", "description": "New description"}
		},
		"required": ["name", "description"]
	}`)
}

func (t *updateDescriptionTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid update_project_description arguments: %v", err)
	}
	return t.portfolio.UpdateDescription(req.Name, req.Description)
}

type addMilestoneTool struct {
	portfolio *Portfolio
}

func (t *addMilestoneTool) Name() string { return "add_milestone" }

func (t *addMilestoneTool) Description() string {
	return "Add a pending milestone to a project. Milestone names are unique within a project."
}

func (t *addMilestoneTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {"type": "string", "description": "Project name"},
			"milestone": {"type": "string", "description": "Milestone name"}
		},
		"required": ["project", "milestone"]
	}`)
}

func (t *addMilestoneTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Project   string `json:"project"`
		Milestone string `json:"milestone"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid add_milestone arguments: %v", err)
	}
	return t.portfolio.AddMilestone(req.Project, req.Milestone)
}

type completeMilestoneTool struct {
	portfolio *Portfolio
}

func (t *completeMilestoneTool) Name() string { return "complete_milestone" }

func (t *completeMilestoneTool) Description() string {
	return "Mark a milestone as completed, stamping today's date."
}

func (t *completeMilestoneTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {"type": "string", "description": "Project name"},
			"milestone": {"type": "string", "description": "Milestone name"}
		},
		"required": ["project", "milestone"]
	}`)
}

func (t *completeMilestoneTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Project   string `json:"project"`
		Milestone string `json:"milestone"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid complete_milestone arguments: %v", err)
	}
	return t.portfolio.CompleteMilestone(req.Project, req.Milestone)
}

type removeMilestoneTool struct {
	portfolio *Portfolio
}

func (t *removeMilestoneTool) Name() string { return "remove_milestone" }

func (t *removeMilestoneTool) Description() string {
	return "Delete a milestone from a project."
}

func (t *removeMilestoneTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {"type": "string", "description": "Project name"},
			"milestone": {"type": "string", "description": "Milestone name"}
		},
		"required": ["project", "milestone"]
	}`)
}

func (t *removeMilestoneTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Project   string `json:"project"`
		Milestone string `json:"milestone"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid remove_milestone arguments: %v", err)
	}
	return t.portfolio.RemoveMilestone(req.Project, req.Milestone)
}

// addDetailTool and removeDetailTool cover the five list fields; one
// instance per exposed operation name.
type addDetailTool struct {
	portfolio *Portfolio
	field     string
	toolName  string
	desc      string
}

func (t *addDetailTool) Name() string        { return t.toolName }
func (t *addDetailTool) Description() string { return t.desc }

func (t *addDetailTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {"type": "string", "description": "Project name"},
			"value": {"type": "string", "description": "Value to add"}
		},
		"required": ["project", "value"]
	}`)
}

func (t *addDetailTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Project string `json:"project"`
		Value   string `json:"value"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid %s arguments: %v", t.toolName, err)
	}
	return t.portfolio.AddDetail(req.Project, t.field, req.Value)
}

type removeDetailTool struct {
	portfolio *Portfolio
	field     string
	toolName  string
	desc      string
}

func (t *removeDetailTool) Name() string        { return t.toolName }
func (t *removeDetailTool) Description() string { return t.desc }

func (t *removeDetailTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {"type": "string", "description": "Project name"},
			"value": {"type": "string", "description": "Value to remove"}
		},
		"required": ["project", "value"]
	}`)
}

func (t *removeDetailTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Project string `json:"project"`
		Value   string `json:"value"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid %s arguments: %v", t.toolName, err)
	}
	return t.portfolio.RemoveDetail(req.Project, t.field, req.Value)
}

type addNoteTool struct {
	portfolio *Portfolio
}

func (t *addNoteTool) Name() string { return "add_note" }

func (t *addNoteTool) Description() string {
	return "Append a dated note to a project."
}

func (t *addNoteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"project": {"type": "string", "description": "Project name"},
			"content": {"type": "string", "description": "Note text"}
		},
		"required": ["project", "content"]
	}`)
}

func (t *addNoteTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Project string `json:"project"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid add_note arguments: %v", err)
	}
	return t.portfolio.AddNote(req.Project, req.Content)
}

type removeProjectTool struct {
	portfolio *Portfolio
}

func (t *removeProjectTool) Name() string { return "remove_project" }

func (t *removeProjectTool) Description() string {
	return "Delete a project and everything recorded under it."
}

func (t *removeProjectTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Project name"}
		},
		"required": ["name"]
	}`)
}

func (t *removeProjectTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid remove_project arguments: %v", err)
	}
	return t.portfolio.RemoveProject(req.Name)
}

func formatProject(key string, proj Project) string {
	var b strings.Builder
	b.WriteString(key + " (" + proj.Status + ", created " + proj.CreatedDate + ")\n")
	if proj.Description != "" {
		b.WriteString(proj.Description + "\n")
	}

	if len(proj.Milestones) > 0 {
		b.WriteString("Milestones:\n")
		for _, m := range proj.Milestones {
			line := "  " + m.Name + ": " + m.Status
			if m.CompletedDate != "" {
				line += " (" + m.CompletedDate + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	writeSection(&b, "Features", proj.Features)
	writeSection(&b, "Challenges", proj.Challenges)
	writeSection(&b, "Next steps", proj.NextSteps)
	writeSection(&b, "Tech stack", proj.TechStack)
	writeSection(&b, "Links", proj.Links)
	if len(proj.Notes) > 0 {
		b.WriteString("Notes:\n")
		for _, n := range proj.Notes {
			b.WriteString("  " + n.Date + "  " + n.Content + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title string, values []string) {
	if len(values) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, v := range values {
		b.WriteString("  " + v + "\n")
	}
}

package academic

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
	"github.com/yonca-ai/yonca/internal/tracker"
)

const instructions = `You manage the user's coursework: assignments and exams per course, each
with a deadline or exam date. Dates are YYYY-MM-DD. Completing an item is a
one-way step and a grade can be entered for an exam only once.`

// Tracker is the academic domain engine: the planner plus its operation
// registry and the classifier-assisted dispatch step.
type Tracker struct {
	planner  *Planner
	cls      classifier.Classifier
	registry *tools.Registry
}

func New(s *store.Store, cls classifier.Classifier) (*Tracker, error) {
	t := &Tracker{
		planner:  NewPlanner(s),
		cls:      cls,
		registry: tools.NewRegistry(),
	}

	err := t.registry.RegisterAll(
		&setAssignmentTool{t.planner},
		&getAssignmentsTool{t.planner},
		&completeAssignmentTool{t.planner},
		&updateAssignmentTool{t.planner},
		&removeAssignmentTool{t.planner},
		&setExamTool{t.planner},
		&getExamsTool{t.planner},
		&completeExamTool{t.planner},
		&updateExamTool{t.planner},
		&removeExamTool{t.planner},
		&enterGradeTool{t.planner},
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) Target() classifier.Target {
	return classifier.TargetAcademic
}

func (t *Tracker) Description() string {
	return "Coursework: assignments and exams with deadlines, completing them, exam grades, upcoming due dates."
}

func (t *Tracker) Handle(ctx context.Context, request string) (string, error) {
	return tracker.Dispatch(ctx, t.cls, t.registry, instructions, request)
}

// Registry exposes the operation set, mainly for tests.
func (t *Tracker) Registry() *tools.Registry {
	return t.registry
}

type setAssignmentTool struct {
	planner *Planner
}

func (t *setAssignmentTool) Name() string { return "set_assignment" }

func (t *setAssignmentTool) Description() string {
	return "Add an assignment with a deadline to a course. Fails if the same assignment already exists."
}

func (t *setAssignmentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code, e.g. COMP305"},
			"name": {"type": "string", "description": "Assignment name, e.g. PS4"},
			"deadline": {"type": "string", "description": "Due date (YYYY-MM-DD)"}
		},
		"required": ["course", "name", "deadline"]
	}`)
}

func (t *setAssignmentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course   string `json:"course"`
		Name     string `json:"name"`
		Deadline string `json:"deadline"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid set_assignment arguments: %v", err)
	}
	return t.planner.SetAssignment(req.Course, req.Name, req.Deadline)
}

type getAssignmentsTool struct {
	planner *Planner
}

func (t *getAssignmentsTool) Name() string { return "get_assignments" }

func (t *getAssignmentsTool) Description() string {
	return "List assignments ordered by deadline. Pending by default, completed on request."
}

func (t *getAssignmentsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"show_completed": {"type": "boolean", "description": "List completed assignments instead of pending ones"}
		},
		"required": []
	}`)
}

func (t *getAssignmentsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		ShowCompleted bool `json:"show_completed"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_assignments arguments: %v", err)
	}

	entries, err := t.planner.Assignments(req.ShowCompleted)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		if req.ShowCompleted {
			return "No completed assignments.", nil
		}
		return "No pending assignments.", nil
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Course + " " + e.Context + ": due " + e.Assignment.Deadline)
		if req.ShowCompleted {
			b.WriteString(", completed " + e.Assignment.CompletedDate)
		} else {
			b.WriteString(" (" + dueLabel(e.DaysUntil) + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type completeAssignmentTool struct {
	planner *Planner
}

func (t *completeAssignmentTool) Name() string { return "complete_assignment" }

func (t *completeAssignmentTool) Description() string {
	return "Mark an assignment as completed, stamping today's date."
}

func (t *completeAssignmentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Assignment name"}
		},
		"required": ["course", "name"]
	}`)
}

func (t *completeAssignmentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string `json:"course"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid complete_assignment arguments: %v", err)
	}
	return t.planner.CompleteAssignment(req.Course, req.Name)
}

type updateAssignmentTool struct {
	planner *Planner
}

func (t *updateAssignmentTool) Name() string { return "update_assignment" }

func (t *updateAssignmentTool) Description() string {
	return "Change an assignment's deadline."
}

func (t *updateAssignmentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Assignment name"},
			"deadline": {"type": "string", "description": "New due date (YYYY-MM-DD)"}
		},
		"required": ["course", "name", "deadline"]
	}`)
}

func (t *updateAssignmentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course   string `json:"course"`
		Name     string `json:"name"`
		Deadline string `json:"deadline"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid update_assignment arguments: %v", err)
	}
	return t.planner.UpdateAssignment(req.Course, req.Name, req.Deadline)
}

type removeAssignmentTool struct {
	planner *Planner
}

func (t *removeAssignmentTool) Name() string { return "remove_assignment" }

func (t *removeAssignmentTool) Description() string {
	return "Delete an assignment from a course."
}

func (t *removeAssignmentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Assignment name"}
		},
		"required": ["course", "name"]
	}`)
}

func (t *removeAssignmentTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string `json:"course"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid remove_assignment arguments: %v", err)
	}
	return t.planner.RemoveAssignment(req.Course, req.Name)
}

type setExamTool struct {
	planner *Planner
}

func (t *setExamTool) Name() string { return "set_exam" }

func (t *setExamTool) Description() string {
	return "Add an exam with a date to a course. Fails if the same exam already exists."
}

func (t *setExamTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code, e.g. MATH201"},
			"name": {"type": "string", "description": "Exam name, e.g. MIDTERM"},
			"date": {"type": "string", "description": "Exam date (YYYY-MM-DD)"}
		},
		"required": ["course", "name", "date"]
	}`)
}

func (t *setExamTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string `json:"course"`
		Name   string `json:"name"`
		Date   string `json:"date"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid set_exam arguments: %v", err)
	}
	return t.planner.SetExam(req.Course, req.Name, req.Date)
}

type getExamsTool struct {
	planner *Planner
}

func (t *getExamsTool) Name() string { return "get_exams" }

func (t *getExamsTool) Description() string {
	return "List exams ordered by date. Upcoming by default, completed (with grades) on request."
}

func (t *getExamsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"show_completed": {"type": "boolean", "description": "List completed exams instead of upcoming ones"}
		},
		"required": []
	}`)
}

func (t *getExamsTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		ShowCompleted bool `json:"show_completed"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid get_exams arguments: %v", err)
	}

	entries, err := t.planner.Exams(req.ShowCompleted)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		if req.ShowCompleted {
			return "No completed exams.", nil
		}
		return "No upcoming exams.", nil
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Course + " " + e.Context + ": on " + e.Exam.Date)
		if req.ShowCompleted {
			if e.Exam.Grade != nil {
				b.WriteString(", grade " + strconv.FormatFloat(*e.Exam.Grade, 'f', -1, 64))
			} else {
				b.WriteString(", no grade yet")
			}
		} else {
			b.WriteString(" (" + dueLabel(e.DaysUntil) + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type completeExamTool struct {
	planner *Planner
}

func (t *completeExamTool) Name() string { return "complete_exam" }

func (t *completeExamTool) Description() string {
	return "Mark an exam as taken, stamping today's date."
}

func (t *completeExamTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Exam name"}
		},
		"required": ["course", "name"]
	}`)
}

func (t *completeExamTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string `json:"course"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid complete_exam arguments: %v", err)
	}
	return t.planner.CompleteExam(req.Course, req.Name)
}

type updateExamTool struct {
	planner *Planner
}

func (t *updateExamTool) Name() string { return "update_exam" }

func (t *updateExamTool) Description() string {
	return "Change an exam's date."
}

func (t *updateExamTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Exam name"},
			"date": {"type": "string", "description": "New exam date (YYYY-MM-DD)"}
		},
		"required": ["course", "name", "date"]
	}`)
}

func (t *updateExamTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string `json:"course"`
		Name   string `json:"name"`
		Date   string `json:"date"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid update_exam arguments: %v", err)
	}
	return t.planner.UpdateExam(req.Course, req.Name, req.Date)
}

type removeExamTool struct {
	planner *Planner
}

func (t *removeExamTool) Name() string { return "remove_exam" }

func (t *removeExamTool) Description() string {
	return "Delete an exam from a course."
}

func (t *removeExamTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Exam name"}
		},
		"required": ["course", "name"]
	}`)
}

func (t *removeExamTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string `json:"course"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid remove_exam arguments: %v", err)
	}
	return t.planner.RemoveExam(req.Course, req.Name)
}

type enterGradeTool struct {
	planner *Planner
}

func (t *enterGradeTool) Name() string { return "enter_grade" }

func (t *enterGradeTool) Description() string {
	return "Record the grade received for an exam. A grade can be entered only once."
}

func (t *enterGradeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"course": {"type": "string", "description": "Course code"},
			"name": {"type": "string", "description": "Exam name"},
			"grade": {"type": "number", "description": "Score received, e.g. 85"}
		},
		"required": ["course", "name", "grade"]
	}`)
}

func (t *enterGradeTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var req struct {
		Course string  `json:"course"`
		Name   string  `json:"name"`
		Grade  float64 `json:"grade"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return "", tools.Validationf("invalid enter_grade arguments: %v", err)
	}
	return t.planner.EnterGrade(req.Course, req.Name, req.Grade)
}

func dueLabel(days int) string {
	switch {
	case days == 0:
		return "due today"
	case days == 1:
		return "in 1 day"
	case days > 1:
		return "in " + strconv.Itoa(days) + " days"
	case days == -1:
		return "overdue by 1 day"
	default:
		return "overdue by " + strconv.Itoa(-days) + " days"
	}
}

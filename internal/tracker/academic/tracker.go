package academic

import (
	"sort"
	"strings"
	"time"

	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
)

const (
	assignmentsCollection = "assignments"
	examsCollection       = "exams"

	dateLayout = "2006-01-02"
)

// Assignment is keyed by (course, context); both parts are upper-cased to
// form the identity. Completion happens at most once.
type Assignment struct {
	Deadline      string `json:"deadline"`
	Completed     bool   `json:"completed"`
	CompletedDate string `json:"completed_date,omitempty"`
}

// Exam shares the assignment identity and completion semantics; the grade is
// entered independently of completion and only once.
type Exam struct {
	Date          string   `json:"date"`
	Completed     bool     `json:"completed"`
	CompletedDate string   `json:"completed_date,omitempty"`
	Grade         *float64 `json:"grade,omitempty"`
}

// AssignmentEntry is a listing row: identity plus deadline distance in
// calendar days. Zero means due today, negative means overdue.
type AssignmentEntry struct {
	Course     string
	Context    string
	Assignment Assignment
	DaysUntil  int
}

type ExamEntry struct {
	Course    string
	Context   string
	Exam      Exam
	DaysUntil int
}

// Planner owns the assignment and exam collections.
type Planner struct {
	store *store.Store
	now   func() time.Time
}

func NewPlanner(s *store.Store) *Planner {
	return &Planner{store: s, now: time.Now}
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (p *Planner) today() time.Time {
	y, m, d := p.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysUntil computes deadline minus today in whole calendar days; the time
// of day never participates.
func (p *Planner) daysUntil(date string) int {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0
	}
	return int(t.Sub(p.today()) / (24 * time.Hour))
}

func (p *Planner) SetAssignment(course, context, deadline string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(dateLayout, deadline); err != nil {
		return "", tools.Validationf("deadline must be YYYY-MM-DD, got %q", deadline)
	}

	assignments := map[string]map[string]Assignment{}
	err = p.store.Update(assignmentsCollection, &assignments, func() error {
		if _, exists := assignments[courseKey][contextKey]; exists {
			return tools.Conflictf("assignment '%s' for %s already exists", contextKey, courseKey)
		}
		if assignments[courseKey] == nil {
			assignments[courseKey] = map[string]Assignment{}
		}
		assignments[courseKey][contextKey] = Assignment{Deadline: deadline}
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Assignment '" + contextKey + "' for " + courseKey + " (due " + deadline + ") added.", nil
}

// Assignments lists entries filtered by completion flag, ordered by deadline
// then identity. Overdue items stay listed until completed or removed.
func (p *Planner) Assignments(showCompleted bool) ([]AssignmentEntry, error) {
	assignments := map[string]map[string]Assignment{}
	if err := p.store.Load(assignmentsCollection, &assignments); err != nil {
		return nil, err
	}

	var entries []AssignmentEntry
	for course, contexts := range assignments {
		for context, a := range contexts {
			if a.Completed != showCompleted {
				continue
			}
			entries = append(entries, AssignmentEntry{
				Course:     course,
				Context:    context,
				Assignment: a,
				DaysUntil:  p.daysUntil(a.Deadline),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Assignment.Deadline != entries[j].Assignment.Deadline {
			return entries[i].Assignment.Deadline < entries[j].Assignment.Deadline
		}
		if entries[i].Course != entries[j].Course {
			return entries[i].Course < entries[j].Course
		}
		return entries[i].Context < entries[j].Context
	})
	return entries, nil
}

// CompleteAssignment transitions pending to completed exactly once and
// stamps today's date. Completing again is a conflict, not a no-op.
func (p *Planner) CompleteAssignment(course, context string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}

	assignments := map[string]map[string]Assignment{}
	err = p.store.Update(assignmentsCollection, &assignments, func() error {
		a, ok := assignments[courseKey][contextKey]
		if !ok {
			return tools.NotFoundf("assignment '%s' not found in course '%s'", contextKey, courseKey)
		}
		if a.Completed {
			return tools.Conflictf("assignment '%s' for %s is already completed", contextKey, courseKey)
		}
		a.Completed = true
		a.CompletedDate = p.today().Format(dateLayout)
		assignments[courseKey][contextKey] = a
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Assignment '" + contextKey + "' for " + courseKey + " marked as completed.", nil
}

func (p *Planner) UpdateAssignment(course, context, newDeadline string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(dateLayout, newDeadline); err != nil {
		return "", tools.Validationf("deadline must be YYYY-MM-DD, got %q", newDeadline)
	}

	var prev string
	assignments := map[string]map[string]Assignment{}
	err = p.store.Update(assignmentsCollection, &assignments, func() error {
		a, ok := assignments[courseKey][contextKey]
		if !ok {
			return tools.NotFoundf("assignment '%s' not found in course '%s'", contextKey, courseKey)
		}
		prev = a.Deadline
		a.Deadline = newDeadline
		assignments[courseKey][contextKey] = a
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Assignment '" + contextKey + "' for " + courseKey + " deadline updated: " + prev + " to " + newDeadline + ".", nil
}

func (p *Planner) RemoveAssignment(course, context string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}

	assignments := map[string]map[string]Assignment{}
	err = p.store.Update(assignmentsCollection, &assignments, func() error {
		if _, ok := assignments[courseKey][contextKey]; !ok {
			return tools.NotFoundf("assignment '%s' not found in course '%s'", contextKey, courseKey)
		}
		delete(assignments[courseKey], contextKey)
		if len(assignments[courseKey]) == 0 {
			delete(assignments, courseKey)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Assignment '" + contextKey + "' removed from course '" + courseKey + "'.", nil
}

func (p *Planner) SetExam(course, context, date string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", tools.Validationf("exam date must be YYYY-MM-DD, got %q", date)
	}

	exams := map[string]map[string]Exam{}
	err = p.store.Update(examsCollection, &exams, func() error {
		if _, exists := exams[courseKey][contextKey]; exists {
			return tools.Conflictf("exam '%s' for %s already exists", contextKey, courseKey)
		}
		if exams[courseKey] == nil {
			exams[courseKey] = map[string]Exam{}
		}
		exams[courseKey][contextKey] = Exam{Date: date}
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Exam '" + contextKey + "' for " + courseKey + " (on " + date + ") added.", nil
}

func (p *Planner) Exams(showCompleted bool) ([]ExamEntry, error) {
	exams := map[string]map[string]Exam{}
	if err := p.store.Load(examsCollection, &exams); err != nil {
		return nil, err
	}

	var entries []ExamEntry
	for course, contexts := range exams {
		for context, e := range contexts {
			if e.Completed != showCompleted {
				continue
			}
			entries = append(entries, ExamEntry{
				Course:    course,
				Context:   context,
				Exam:      e,
				DaysUntil: p.daysUntil(e.Date),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Exam.Date != entries[j].Exam.Date {
			return entries[i].Exam.Date < entries[j].Exam.Date
		}
		if entries[i].Course != entries[j].Course {
			return entries[i].Course < entries[j].Course
		}
		return entries[i].Context < entries[j].Context
	})
	return entries, nil
}

func (p *Planner) CompleteExam(course, context string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}

	exams := map[string]map[string]Exam{}
	err = p.store.Update(examsCollection, &exams, func() error {
		e, ok := exams[courseKey][contextKey]
		if !ok {
			return tools.NotFoundf("exam '%s' not found in course '%s'", contextKey, courseKey)
		}
		if e.Completed {
			return tools.Conflictf("exam '%s' for %s is already completed", contextKey, courseKey)
		}
		e.Completed = true
		e.CompletedDate = p.today().Format(dateLayout)
		exams[courseKey][contextKey] = e
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Exam '" + contextKey + "' for " + courseKey + " marked as completed.", nil
}

func (p *Planner) UpdateExam(course, context, newDate string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(dateLayout, newDate); err != nil {
		return "", tools.Validationf("exam date must be YYYY-MM-DD, got %q", newDate)
	}

	var prev string
	exams := map[string]map[string]Exam{}
	err = p.store.Update(examsCollection, &exams, func() error {
		e, ok := exams[courseKey][contextKey]
		if !ok {
			return tools.NotFoundf("exam '%s' not found in course '%s'", contextKey, courseKey)
		}
		prev = e.Date
		e.Date = newDate
		exams[courseKey][contextKey] = e
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Exam '" + contextKey + "' for " + courseKey + " date updated: " + prev + " to " + newDate + ".", nil
}

func (p *Planner) RemoveExam(course, context string) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}

	exams := map[string]map[string]Exam{}
	err = p.store.Update(examsCollection, &exams, func() error {
		if _, ok := exams[courseKey][contextKey]; !ok {
			return tools.NotFoundf("exam '%s' not found in course '%s'", contextKey, courseKey)
		}
		delete(exams[courseKey], contextKey)
		if len(exams[courseKey]) == 0 {
			delete(exams, courseKey)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Exam '" + contextKey + "' removed from course '" + courseKey + "'.", nil
}

// EnterGrade records an exam score once; a second entry is refused so an
// accidental overwrite cannot lose the original score.
func (p *Planner) EnterGrade(course, context string, grade float64) (string, error) {
	courseKey, contextKey, err := identity(course, context)
	if err != nil {
		return "", err
	}
	if grade < 0 {
		return "", tools.Validationf("grade cannot be negative, got %v", grade)
	}

	exams := map[string]map[string]Exam{}
	err = p.store.Update(examsCollection, &exams, func() error {
		e, ok := exams[courseKey][contextKey]
		if !ok {
			return tools.NotFoundf("exam '%s' not found in course '%s'", contextKey, courseKey)
		}
		if e.Grade != nil {
			return tools.Conflictf("exam '%s' for %s already has grade %v", contextKey, courseKey, *e.Grade)
		}
		e.Grade = &grade
		exams[courseKey][contextKey] = e
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Grade recorded for exam '" + contextKey + "' of " + courseKey + ".", nil
}

func identity(course, context string) (string, string, error) {
	courseKey := normalizeKey(course)
	contextKey := normalizeKey(context)
	if courseKey == "" || contextKey == "" {
		return "", "", tools.Validationf("both course and assignment/exam name are required")
	}
	return courseKey, contextKey, nil
}

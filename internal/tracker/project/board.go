package project

import (
	"sort"
	"strings"
	"time"

	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tools"
)

const (
	projectsCollection = "projects"

	dateLayout = "2006-01-02"
)

// Project statuses. A project starts in_progress and changes status only
// through an explicit update, never as a side effect of milestone work.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
)

type Milestone struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	CompletedDate string `json:"completed_date,omitempty"`
}

type Note struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

// Project is keyed by the upper-cased underscore form of its name.
// Features, challenges, tech stack and links behave as sets; milestones,
// next steps and notes keep insertion order.
type Project struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	CreatedDate string      `json:"created_date"`
	Milestones  []Milestone `json:"milestones"`
	Features    []string    `json:"features"`
	Challenges  []string    `json:"challenges"`
	NextSteps   []string    `json:"next_steps"`
	TechStack   []string    `json:"tech_stack"`
	Notes       []Note      `json:"notes"`
	Links       []string    `json:"links"`
}

// Portfolio owns the projects collection.
type Portfolio struct {
	store *store.Store
	now   func() time.Time
}

func NewPortfolio(s *store.Store) *Portfolio {
	return &Portfolio{store: s, now: time.Now}
}

// Key derives the storage key from a project name: upper-cased, runs of
// whitespace collapsed to single underscores.
func Key(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(name))), "_")
}

func validStatus(s string) bool {
	return s == StatusInProgress || s == StatusCompleted || s == StatusOnHold
}

func (p *Portfolio) today() string {
	return p.now().Format(dateLayout)
}

func (p *Portfolio) CreateProject(name, description string) (string, error) {
	key := Key(name)
	if key == "" {
		return "", tools.Validationf("project name is required")
	}

	projects := map[string]Project{}
	err := p.store.Update(projectsCollection, &projects, func() error {
		if _, exists := projects[key]; exists {
			return tools.Conflictf("project '%s' already exists", key)
		}
		projects[key] = Project{
			Name:        strings.TrimSpace(name),
			Description: strings.TrimSpace(description),
			Status:      StatusInProgress,
			CreatedDate: p.today(),
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Project '" + key + "' created.", nil
}

func (p *Portfolio) Project(name string) (Project, error) {
	key := Key(name)
	projects := map[string]Project{}
	if err := p.store.Load(projectsCollection, &projects); err != nil {
		return Project{}, err
	}
	proj, ok := projects[key]
	if !ok {
		return Project{}, tools.NotFoundf("project '%s' not found", key)
	}
	return proj, nil
}

// Projects lists (key, project) pairs sorted by key, optionally filtered
// by status.
func (p *Portfolio) Projects(status string) ([]string, map[string]Project, error) {
	if status != "" && !validStatus(status) {
		return nil, nil, tools.Validationf("unknown status %q, expected in_progress, completed or on_hold", status)
	}

	projects := map[string]Project{}
	if err := p.store.Load(projectsCollection, &projects); err != nil {
		return nil, nil, err
	}

	keys := make([]string, 0, len(projects))
	for key, proj := range projects {
		if status != "" && proj.Status != status {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, projects, nil
}

func (p *Portfolio) UpdateStatus(name, status string) (string, error) {
	if !validStatus(status) {
		return "", tools.Validationf("unknown status %q, expected in_progress, completed or on_hold", status)
	}

	key := Key(name)
	err := p.mutate(key, func(proj *Project) error {
		proj.Status = status
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Project '" + key + "' status set to " + status + ".", nil
}

func (p *Portfolio) UpdateDescription(name, description string) (string, error) {
	key := Key(name)
	err := p.mutate(key, func(proj *Project) error {
		proj.Description = strings.TrimSpace(description)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Project '" + key + "' description updated.", nil
}

func (p *Portfolio) RemoveProject(name string) (string, error) {
	key := Key(name)
	projects := map[string]Project{}
	err := p.store.Update(projectsCollection, &projects, func() error {
		if _, ok := projects[key]; !ok {
			return tools.NotFoundf("project '%s' not found", key)
		}
		delete(projects, key)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Project '" + key + "' removed.", nil
}

func (p *Portfolio) AddMilestone(name, milestone string) (string, error) {
	milestone = strings.TrimSpace(milestone)
	if milestone == "" {
		return "", tools.Validationf("milestone name is required")
	}

	key := Key(name)
	err := p.mutate(key, func(proj *Project) error {
		for _, m := range proj.Milestones {
			if strings.EqualFold(m.Name, milestone) {
				return tools.Conflictf("milestone '%s' already exists in project '%s'", m.Name, key)
			}
		}
		proj.Milestones = append(proj.Milestones, Milestone{Name: milestone, Status: "pending"})
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Milestone '" + milestone + "' added to project '" + key + "'.", nil
}

// CompleteMilestone moves a milestone from pending to completed and stamps
// today's date. A second completion is a conflict.
func (p *Portfolio) CompleteMilestone(name, milestone string) (string, error) {
	key := Key(name)
	var stamped string
	err := p.mutate(key, func(proj *Project) error {
		for i, m := range proj.Milestones {
			if !strings.EqualFold(m.Name, milestone) {
				continue
			}
			if m.Status == "completed" {
				return tools.Conflictf("milestone '%s' in project '%s' is already completed", m.Name, key)
			}
			proj.Milestones[i].Status = "completed"
			proj.Milestones[i].CompletedDate = p.today()
			stamped = m.Name
			return nil
		}
		return tools.NotFoundf("milestone '%s' not found in project '%s'", milestone, key)
	})
	if err != nil {
		return "", err
	}
	return "Milestone '" + stamped + "' in project '" + key + "' completed.", nil
}

func (p *Portfolio) RemoveMilestone(name, milestone string) (string, error) {
	key := Key(name)
	err := p.mutate(key, func(proj *Project) error {
		for i, m := range proj.Milestones {
			if strings.EqualFold(m.Name, milestone) {
				proj.Milestones = append(proj.Milestones[:i], proj.Milestones[i+1:]...)
				return nil
			}
		}
		return tools.NotFoundf("milestone '%s' not found in project '%s'", milestone, key)
	})
	if err != nil {
		return "", err
	}
	return "Milestone '" + milestone + "' removed from project '" + key + "'.", nil
}

// Detail fields addressable by AddDetail and RemoveDetail.
const (
	FieldFeature   = "feature"
	FieldChallenge = "challenge"
	FieldNextStep  = "next_step"
	FieldTech      = "tech"
	FieldLink      = "link"
)

func detailSlice(proj *Project, field string) (*[]string, error) {
	switch field {
	case FieldFeature:
		return &proj.Features, nil
	case FieldChallenge:
		return &proj.Challenges, nil
	case FieldNextStep:
		return &proj.NextSteps, nil
	case FieldTech:
		return &proj.TechStack, nil
	case FieldLink:
		return &proj.Links, nil
	default:
		return nil, tools.Validationf("unknown project field %q", field)
	}
}

// AddDetail inserts a value into one of the project's list fields. Set
// fields ignore a value already present; next steps always append.
func (p *Portfolio) AddDetail(name, field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", tools.Validationf("a value is required")
	}

	key := Key(name)
	already := false
	err := p.mutate(key, func(proj *Project) error {
		slice, err := detailSlice(proj, field)
		if err != nil {
			return err
		}
		if field != FieldNextStep {
			for _, v := range *slice {
				if strings.EqualFold(v, value) {
					already = true
					return nil
				}
			}
		}
		*slice = append(*slice, value)
		return nil
	})
	if err != nil {
		return "", err
	}
	if already {
		return "Project '" + key + "' already lists that " + field + ".", nil
	}
	return "Added " + field + " to project '" + key + "'.", nil
}

func (p *Portfolio) RemoveDetail(name, field, value string) (string, error) {
	key := Key(name)
	err := p.mutate(key, func(proj *Project) error {
		slice, err := detailSlice(proj, field)
		if err != nil {
			return err
		}
		for i, v := range *slice {
			if strings.EqualFold(v, value) {
				*slice = append((*slice)[:i], (*slice)[i+1:]...)
				return nil
			}
		}
		return tools.NotFoundf("%s %q not found in project '%s'", field, value, key)
	})
	if err != nil {
		return "", err
	}
	return "Removed " + field + " from project '" + key + "'.", nil
}

func (p *Portfolio) AddNote(name, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", tools.Validationf("note content is required")
	}

	key := Key(name)
	err := p.mutate(key, func(proj *Project) error {
		proj.Notes = append(proj.Notes, Note{Date: p.today(), Content: content})
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Note added to project '" + key + "'.", nil
}

// mutate runs fn against the stored project under the collection lock and
// writes it back unless fn errors.
func (p *Portfolio) mutate(key string, fn func(*Project) error) error {
	projects := map[string]Project{}
	return p.store.Update(projectsCollection, &projects, func() error {
		proj, ok := projects[key]
		if !ok {
			return tools.NotFoundf("project '%s' not found", key)
		}
		if err := fn(&proj); err != nil {
			return err
		}
		projects[key] = proj
		return nil
	})
}

package roadmap

import (
	"fmt"
	"sort"

	"roadmap/api/internal/util"
)

// Move directions for tasks and sections.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var (
	ErrSectionNotFound = fmt.Errorf("section not found")
	ErrPhaseNotFound   = fmt.Errorf("phase not found")
	ErrWeekNotFound    = fmt.Errorf("week not found")
	ErrTaskNotFound    = fmt.Errorf("task not found")
	ErrBadDirection    = fmt.Errorf("direction must be up or down")
)

// WeekRef addresses a week inside the document.
type WeekRef struct {
	SectionID string `json:"sectionId"`
	PhaseKey  string `json:"phase"`
	WeekKey   string `json:"week"`
}

// SectionUpdate carries the editable section fields. Nil pointers leave the
// current value untouched.
type SectionUpdate struct {
	Title  *string `json:"title"`
	Color  *string `json:"color"`
	Active *bool   `json:"active"`
	Order  *int    `json:"order"`
}

// WeekUpdate carries the editable week fields.
type WeekUpdate struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
	Badge *string `json:"badge"`
}

// AddSection appends a new section with one starter phase and week.
func (d *Document) AddSection() *Section {
	maxOrder := 0
	for _, section := range d.Sections {
		if section.Order > maxOrder {
			maxOrder = section.Order
		}
	}
	section := Section{
		ID:     util.NewID("section"),
		Title:  "New Section",
		Color:  ColorBlue,
		Active: false,
		Order:  maxOrder + 1,
		Phases: map[string]*Phase{
			"phase1": {
				Title: "New Phase",
				Order: 1,
				Weeks: map[string]*Week{
					"week1": {Title: "Week 1", Order: 1, Tasks: []Task{}},
				},
			},
		},
	}
	d.Sections = append(d.Sections, section)
	return &d.Sections[len(d.Sections)-1]
}

// DeleteSection removes a section and everything nested beneath it.
func (d *Document) DeleteSection(sectionID string) error {
	for i := range d.Sections {
		if d.Sections[i].ID == sectionID {
			d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
			return nil
		}
	}
	return ErrSectionNotFound
}

// UpdateSection applies the non-nil fields of the update.
func (d *Document) UpdateSection(sectionID string, update SectionUpdate) error {
	section, ok := d.Section(sectionID)
	if !ok {
		return ErrSectionNotFound
	}
	if update.Title != nil {
		section.Title = *update.Title
	}
	if update.Color != nil {
		if _, known := knownColors[*update.Color]; !known {
			return fmt.Errorf("unknown color %q", *update.Color)
		}
		section.Color = *update.Color
	}
	if update.Active != nil {
		section.Active = *update.Active
	}
	if update.Order != nil {
		section.Order = *update.Order
	}
	return nil
}

// MoveSection splices the section one position up or down in display order
// and rewrites Order values to match the new positions. Boundary moves are
// no-ops.
func (d *Document) MoveSection(sectionID, direction string) error {
	if direction != DirectionUp && direction != DirectionDown {
		return ErrBadDirection
	}
	sort.SliceStable(d.Sections, func(a, b int) bool { return d.Sections[a].Order < d.Sections[b].Order })
	index := -1
	for i := range d.Sections {
		if d.Sections[i].ID == sectionID {
			index = i
			break
		}
	}
	if index == -1 {
		return ErrSectionNotFound
	}
	if direction == DirectionUp && index > 0 {
		d.Sections[index], d.Sections[index-1] = d.Sections[index-1], d.Sections[index]
	} else if direction == DirectionDown && index < len(d.Sections)-1 {
		d.Sections[index], d.Sections[index+1] = d.Sections[index+1], d.Sections[index]
	}
	for i := range d.Sections {
		d.Sections[i].Order = i + 1
	}
	return nil
}

// AddPhase adds a phase with one starter week and returns its key.
func (d *Document) AddPhase(sectionID string) (string, error) {
	section, ok := d.Section(sectionID)
	if !ok {
		return "", ErrSectionNotFound
	}
	if section.Phases == nil {
		section.Phases = make(map[string]*Phase)
	}
	key := nextKey("phase", len(section.Phases), func(candidate string) bool {
		_, taken := section.Phases[candidate]
		return taken
	})
	section.Phases[key] = &Phase{
		Title: "New Phase",
		Order: len(section.Phases) + 1,
		Weeks: map[string]*Week{
			"week1": {Title: "Week 1", Order: 1, Tasks: []Task{}},
		},
	}
	return key, nil
}

// UpdatePhase sets the phase title and order.
func (d *Document) UpdatePhase(sectionID, phaseKey, title string, order int) error {
	section, ok := d.Section(sectionID)
	if !ok {
		return ErrSectionNotFound
	}
	phase, ok := section.Phases[phaseKey]
	if !ok {
		return ErrPhaseNotFound
	}
	phase.Title = title
	phase.Order = order
	return nil
}

// DeletePhase removes a phase and all of its weeks and tasks.
func (d *Document) DeletePhase(sectionID, phaseKey string) error {
	section, ok := d.Section(sectionID)
	if !ok {
		return ErrSectionNotFound
	}
	if _, ok := section.Phases[phaseKey]; !ok {
		return ErrPhaseNotFound
	}
	delete(section.Phases, phaseKey)
	return nil
}

// AddWeek adds an empty week to the phase and returns its key.
func (d *Document) AddWeek(sectionID, phaseKey string) (string, error) {
	section, ok := d.Section(sectionID)
	if !ok {
		return "", ErrSectionNotFound
	}
	phase, ok := section.Phases[phaseKey]
	if !ok {
		return "", ErrPhaseNotFound
	}
	if phase.Weeks == nil {
		phase.Weeks = make(map[string]*Week)
	}
	key := nextKey("week", len(phase.Weeks), func(candidate string) bool {
		_, taken := phase.Weeks[candidate]
		return taken
	})
	order := len(phase.Weeks) + 1
	phase.Weeks[key] = &Week{
		Title: fmt.Sprintf("Week %d", order),
		Order: order,
		Tasks: []Task{},
	}
	return key, nil
}

// UpdateWeek applies the non-nil fields of the update, keeping tasks intact.
func (d *Document) UpdateWeek(ref WeekRef, update WeekUpdate) error {
	week, err := d.requireWeek(ref)
	if err != nil {
		return err
	}
	if update.Title != nil {
		week.Title = *update.Title
	}
	if update.Order != nil {
		week.Order = *update.Order
	}
	if update.Badge != nil {
		week.Badge = *update.Badge
	}
	return nil
}

// DeleteWeek removes a week and its tasks.
func (d *Document) DeleteWeek(ref WeekRef) error {
	section, ok := d.Section(ref.SectionID)
	if !ok {
		return ErrSectionNotFound
	}
	phase, ok := section.Phases[ref.PhaseKey]
	if !ok {
		return ErrPhaseNotFound
	}
	if _, ok := phase.Weeks[ref.WeekKey]; !ok {
		return ErrWeekNotFound
	}
	delete(phase.Weeks, ref.WeekKey)
	return nil
}

// AddTask appends a fresh task to the end of the week's sequence.
func (d *Document) AddTask(ref WeekRef) (*Task, error) {
	week, err := d.requireWeek(ref)
	if err != nil {
		return nil, err
	}
	week.Tasks = append(week.Tasks, Task{
		ID:        util.NewID("task"),
		Text:      "New task",
		Icon:      "Task",
		Completed: false,
		Votes:     0,
	})
	return &week.Tasks[len(week.Tasks)-1], nil
}

// UpdateTask sets the task's text and icon.
func (d *Document) UpdateTask(ref WeekRef, taskID, text, icon string) error {
	task, ok := d.Task(ref.SectionID, ref.PhaseKey, ref.WeekKey, taskID)
	if !ok {
		return ErrTaskNotFound
	}
	task.Text = text
	task.Icon = icon
	return nil
}

// DeleteTask removes the task from its week.
func (d *Document) DeleteTask(ref WeekRef, taskID string) error {
	week, err := d.requireWeek(ref)
	if err != nil {
		return err
	}
	for i := range week.Tasks {
		if week.Tasks[i].ID == taskID {
			week.Tasks = append(week.Tasks[:i], week.Tasks[i+1:]...)
			return nil
		}
	}
	return ErrTaskNotFound
}

// MoveTask swaps the task with its neighbor in the given direction. Moving
// past either end of the sequence is a no-op, not an error.
func (d *Document) MoveTask(ref WeekRef, taskID, direction string) error {
	if direction != DirectionUp && direction != DirectionDown {
		return ErrBadDirection
	}
	week, err := d.requireWeek(ref)
	if err != nil {
		return err
	}
	index := -1
	for i := range week.Tasks {
		if week.Tasks[i].ID == taskID {
			index = i
			break
		}
	}
	if index == -1 {
		return ErrTaskNotFound
	}
	if direction == DirectionUp && index > 0 {
		week.Tasks[index], week.Tasks[index-1] = week.Tasks[index-1], week.Tasks[index]
	} else if direction == DirectionDown && index < len(week.Tasks)-1 {
		week.Tasks[index], week.Tasks[index+1] = week.Tasks[index+1], week.Tasks[index]
	}
	return nil
}

// ToggleTask flips the completed flag and returns the new value. Votes are
// untouched.
func (d *Document) ToggleTask(ref WeekRef, taskID string) (bool, error) {
	task, ok := d.Task(ref.SectionID, ref.PhaseKey, ref.WeekKey, taskID)
	if !ok {
		return false, ErrTaskNotFound
	}
	task.Completed = !task.Completed
	return task.Completed, nil
}

// MoveTaskBetween removes the task from the source week and inserts it into
// the destination. With byVotes it is placed by descending vote rank, the way
// the sort-by-votes admin view displays tasks; otherwise it is appended.
// Source equal to destination is a no-op.
func (d *Document) MoveTaskBetween(from, to WeekRef, taskID string, byVotes bool) error {
	if from == to {
		return nil
	}
	source, err := d.requireWeek(from)
	if err != nil {
		return err
	}
	dest, err := d.requireWeek(to)
	if err != nil {
		return err
	}
	index := -1
	for i := range source.Tasks {
		if source.Tasks[i].ID == taskID {
			index = i
			break
		}
	}
	if index == -1 {
		return ErrTaskNotFound
	}
	task := source.Tasks[index]
	source.Tasks = append(source.Tasks[:index], source.Tasks[index+1:]...)

	if !byVotes {
		dest.Tasks = append(dest.Tasks, task)
		return nil
	}
	insertAt := len(dest.Tasks)
	for i := range dest.Tasks {
		if dest.Tasks[i].Votes < task.Votes {
			insertAt = i
			break
		}
	}
	dest.Tasks = append(dest.Tasks, Task{})
	copy(dest.Tasks[insertAt+1:], dest.Tasks[insertAt:])
	dest.Tasks[insertAt] = task
	return nil
}

// IncrementVotes bumps the task's vote counter by exactly one.
func (d *Document) IncrementVotes(sectionID, phaseKey, weekKey, taskID string) error {
	task, ok := d.Task(sectionID, phaseKey, weekKey, taskID)
	if !ok {
		return ErrTaskNotFound
	}
	task.Votes++
	return nil
}

func (d *Document) requireWeek(ref WeekRef) (*Week, error) {
	section, ok := d.Section(ref.SectionID)
	if !ok {
		return nil, ErrSectionNotFound
	}
	phase, ok := section.Phases[ref.PhaseKey]
	if !ok {
		return nil, ErrPhaseNotFound
	}
	week, ok := phase.Weeks[ref.WeekKey]
	if !ok {
		return nil, ErrWeekNotFound
	}
	return week, nil
}

// nextKey picks prefixN with N starting at count+1, skipping keys that are
// already taken (counts drift after deletes).
func nextKey(prefix string, count int, taken func(string) bool) string {
	for n := count + 1; ; n++ {
		candidate := fmt.Sprintf("%s%d", prefix, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Package roadmap defines the roadmap document tree and the pure
// transformations applied to it. A document is sections -> phases -> weeks ->
// tasks; persistence treats it as one opaque blob.
package roadmap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Section colors accepted by the UI.
const (
	ColorBlue   = "blue"
	ColorGreen  = "green"
	ColorPurple = "purple"
	ColorRed    = "red"
	ColorOrange = "orange"
)

var knownColors = map[string]struct{}{
	ColorBlue:   {},
	ColorGreen:  {},
	ColorPurple: {},
	ColorRed:    {},
	ColorOrange: {},
}

// reservedPhaseKeys are the Phase scalar fields that share a JSON namespace
// with week keys in the legacy wire format.
var reservedPhaseKeys = map[string]struct{}{
	"title": {},
	"order": {},
}

type Document struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Color  string            `json:"color"`
	Active bool              `json:"active"`
	Order  int               `json:"order,omitempty"`
	Phases map[string]*Phase `json:"phases"`
}

// Phase keeps title/order separate from the week mapping. The legacy format
// mixes them into a single JSON object, so Phase carries a custom codec that
// reproduces that shape at the boundary only.
type Phase struct {
	Title string
	Order int
	Weeks map[string]*Week
}

type Week struct {
	Title string `json:"title"`
	Order int    `json:"order"`
	Badge string `json:"badge,omitempty"`
	Tasks []Task `json:"tasks"`
}

type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Icon      string `json:"icon,omitempty"`
	Completed bool   `json:"completed"`
	Votes     int    `json:"votes"`
}

func (p *Phase) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Weeks)+2)
	out["title"] = p.Title
	out["order"] = p.Order
	for key, week := range p.Weeks {
		if _, reserved := reservedPhaseKeys[key]; reserved {
			return nil, fmt.Errorf("week key %q collides with a phase field", key)
		}
		out[key] = week
	}
	return json.Marshal(out)
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Title = ""
	p.Order = 0
	p.Weeks = make(map[string]*Week)
	for key, value := range raw {
		switch key {
		case "title":
			if err := json.Unmarshal(value, &p.Title); err != nil {
				return fmt.Errorf("phase title: %w", err)
			}
		case "order":
			if err := json.Unmarshal(value, &p.Order); err != nil {
				return fmt.Errorf("phase order: %w", err)
			}
		default:
			week := &Week{}
			if err := json.Unmarshal(value, week); err != nil {
				return fmt.Errorf("week %q: %w", key, err)
			}
			if week.Tasks == nil {
				week.Tasks = []Task{}
			}
			p.Weeks[key] = week
		}
	}
	return nil
}

// VoteKey builds the composite ledger key for a vote target.
func VoteKey(sectionID, phaseKey, weekKey, taskID string) string {
	return strings.Join([]string{sectionID, phaseKey, weekKey, taskID}, "-")
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// Week resolves a week by its full path.
func (d *Document) Week(sectionID, phaseKey, weekKey string) (*Week, bool) {
	section, ok := d.Section(sectionID)
	if !ok {
		return nil, false
	}
	phase, ok := section.Phases[phaseKey]
	if !ok {
		return nil, false
	}
	week, ok := phase.Weeks[weekKey]
	return week, ok
}

// Task resolves a task by its full path.
func (d *Document) Task(sectionID, phaseKey, weekKey, taskID string) (*Task, bool) {
	week, ok := d.Week(sectionID, phaseKey, weekKey)
	if !ok {
		return nil, false
	}
	for i := range week.Tasks {
		if week.Tasks[i].ID == taskID {
			return &week.Tasks[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can hand out snapshots or mutate
// without aliasing the original.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Sections: make([]Section, len(d.Sections))}
	for i, section := range d.Sections {
		copied := section
		copied.Phases = make(map[string]*Phase, len(section.Phases))
		for key, phase := range section.Phases {
			phaseCopy := &Phase{Title: phase.Title, Order: phase.Order, Weeks: make(map[string]*Week, len(phase.Weeks))}
			for weekKey, week := range phase.Weeks {
				weekCopy := *week
				weekCopy.Tasks = append([]Task(nil), week.Tasks...)
				phaseCopy.Weeks[weekKey] = &weekCopy
			}
			copied.Phases[key] = phaseCopy
		}
		out.Sections[i] = copied
	}
	return out
}

// Validate checks structural invariants: unique section ids, document-wide
// unique task ids, known colors, non-negative vote counts, and week keys that
// do not collide with phase fields.
func (d *Document) Validate() error {
	sectionIDs := make(map[string]struct{}, len(d.Sections))
	taskIDs := make(map[string]struct{})
	for _, section := range d.Sections {
		if strings.TrimSpace(section.ID) == "" {
			return fmt.Errorf("section with empty id")
		}
		if _, dup := sectionIDs[section.ID]; dup {
			return fmt.Errorf("duplicate section id %q", section.ID)
		}
		sectionIDs[section.ID] = struct{}{}
		if _, ok := knownColors[section.Color]; !ok {
			return fmt.Errorf("section %q: unknown color %q", section.ID, section.Color)
		}
		for phaseKey, phase := range section.Phases {
			if strings.TrimSpace(phaseKey) == "" {
				return fmt.Errorf("section %q: empty phase key", section.ID)
			}
			for weekKey, week := range phase.Weeks {
				if strings.TrimSpace(weekKey) == "" {
					return fmt.Errorf("section %q phase %q: empty week key", section.ID, phaseKey)
				}
				if _, reserved := reservedPhaseKeys[weekKey]; reserved {
					return fmt.Errorf("section %q phase %q: reserved week key %q", section.ID, phaseKey, weekKey)
				}
				for _, task := range week.Tasks {
					if strings.TrimSpace(task.ID) == "" {
						return fmt.Errorf("section %q phase %q week %q: task with empty id", section.ID, phaseKey, weekKey)
					}
					if _, dup := taskIDs[task.ID]; dup {
						return fmt.Errorf("duplicate task id %q", task.ID)
					}
					taskIDs[task.ID] = struct{}{}
					if task.Votes < 0 {
						return fmt.Errorf("task %q: negative vote count", task.ID)
					}
				}
			}
		}
	}
	return nil
}

// TaskCount returns the total number of tasks in the document.
func (d *Document) TaskCount() int {
	count := 0
	for _, section := range d.Sections {
		for _, phase := range section.Phases {
			for _, week := range phase.Weeks {
				count += len(week.Tasks)
			}
		}
	}
	return count
}

// SortedSections returns section indices ordered by Order, insertion order as
// the tiebreak.
func (d *Document) SortedSections() []*Section {
	out := make([]*Section, len(d.Sections))
	for i := range d.Sections {
		out[i] = &d.Sections[i]
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Order < out[b].Order })
	return out
}

// SortedPhaseKeys returns the section's phase keys ordered by phase order,
// key as the tiebreak.
func (s *Section) SortedPhaseKeys() []string {
	keys := make([]string, 0, len(s.Phases))
	for key := range s.Phases {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		pa, pb := s.Phases[keys[a]], s.Phases[keys[b]]
		if pa.Order != pb.Order {
			return pa.Order < pb.Order
		}
		return keys[a] < keys[b]
	})
	return keys
}

// SortedWeekKeys returns the phase's week keys ordered by week order, key as
// the tiebreak.
func (p *Phase) SortedWeekKeys() []string {
	keys := make([]string, 0, len(p.Weeks))
	for key := range p.Weeks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		wa, wb := p.Weeks[keys[a]], p.Weeks[keys[b]]
		if wa.Order != wb.Order {
			return wa.Order < wb.Order
		}
		return keys[a] < keys[b]
	})
	return keys
}

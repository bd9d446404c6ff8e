package roadmap

import "sort"

// TaskRef is a task together with its position in the tree, used by the
// stats overview and search results.
type TaskRef struct {
	SectionID    string `json:"sectionId"`
	SectionTitle string `json:"sectionTitle"`
	PhaseKey     string `json:"phase"`
	PhaseTitle   string `json:"phaseTitle"`
	WeekKey      string `json:"week"`
	WeekTitle    string `json:"weekTitle"`
	Task         Task   `json:"task"`
}

type Stats struct {
	TotalTasks           int       `json:"totalTasks"`
	CompletedTasks       int       `json:"completedTasks"`
	CompletionPercentage int       `json:"completionPercentage"`
	TotalVotes           int       `json:"totalVotes"`
	TopVotedTasks        []TaskRef `json:"topVotedTasks"`
}

const topVotedLimit = 5

// ComputeStats walks the document once and aggregates the overview numbers.
// Only pending tasks compete for the top-voted list.
func ComputeStats(d *Document) Stats {
	stats := Stats{TopVotedTasks: []TaskRef{}}
	var pending []TaskRef
	for _, ref := range Flatten(d) {
		stats.TotalTasks++
		stats.TotalVotes += ref.Task.Votes
		if ref.Task.Completed {
			stats.CompletedTasks++
		} else {
			pending = append(pending, ref)
		}
	}
	if stats.TotalTasks > 0 {
		stats.CompletionPercentage = (stats.CompletedTasks*100 + stats.TotalTasks/2) / stats.TotalTasks
	}
	sort.SliceStable(pending, func(a, b int) bool { return pending[a].Task.Votes > pending[b].Task.Votes })
	if len(pending) > topVotedLimit {
		pending = pending[:topVotedLimit]
	}
	stats.TopVotedTasks = append(stats.TopVotedTasks, pending...)
	return stats
}

// Flatten lists every task with its position, in display order.
func Flatten(d *Document) []TaskRef {
	var refs []TaskRef
	for _, section := range d.SortedSections() {
		for _, phaseKey := range section.SortedPhaseKeys() {
			phase := section.Phases[phaseKey]
			for _, weekKey := range phase.SortedWeekKeys() {
				week := phase.Weeks[weekKey]
				for _, task := range week.Tasks {
					refs = append(refs, TaskRef{
						SectionID:    section.ID,
						SectionTitle: section.Title,
						PhaseKey:     phaseKey,
						PhaseTitle:   phase.Title,
						WeekKey:      weekKey,
						WeekTitle:    week.Title,
						Task:         task,
					})
				}
			}
		}
	}
	return refs
}

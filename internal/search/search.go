// Package search finds tasks by text. Meilisearch is used when configured
// and healthy; otherwise an in-memory scan over the current document answers
// the query.
package search

// Result is a single task hit with its position in the roadmap tree.
type Result struct {
	TaskID       string `json:"taskId"`
	Text         string `json:"text"`
	SectionID    string `json:"sectionId"`
	SectionTitle string `json:"sectionTitle"`
	PhaseKey     string `json:"phase"`
	PhaseTitle   string `json:"phaseTitle"`
	WeekKey      string `json:"week"`
	WeekTitle    string `json:"weekTitle"`
	Completed    bool   `json:"completed"`
	Votes        int    `json:"votes"`
}

// Query describes a search request.
type Query struct {
	Text             string
	Limit            int
	IncludeCompleted bool
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// TaskRecord is the data indexed per task.
type TaskRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	SectionID    string `json:"sectionId"`
	SectionTitle string `json:"sectionTitle"`
	PhaseKey     string `json:"phase"`
	PhaseTitle   string `json:"phaseTitle"`
	WeekKey      string `json:"week"`
	WeekTitle    string `json:"weekTitle"`
	Completed    bool   `json:"completed"`
	Votes        int    `json:"votes"`
}

// Searcher can execute a task search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

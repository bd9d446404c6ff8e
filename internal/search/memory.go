package search

import (
	"sort"
	"strings"
	"sync"
)

// Memory implements Searcher with a case-insensitive substring scan over the
// most recently indexed snapshot. It is the fallback when Meilisearch is not
// configured or unreachable; the whole document fits in memory anyway.
type Memory struct {
	mu      sync.RWMutex
	records []TaskRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

// Healthy always returns true; the fallback has nothing to fail.
func (m *Memory) Healthy() bool {
	return true
}

// ReplaceAll swaps the snapshot the scan runs against.
func (m *Memory) ReplaceAll(records []TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]TaskRecord(nil), records...)
	return nil
}

// Search matches the query against task text and section/phase/week titles,
// ranking hits by vote count.
func (m *Memory) Search(q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return []Result{}, 0, nil
	}

	m.mu.RLock()
	records := m.records
	m.mu.RUnlock()

	var hits []Result
	for _, record := range records {
		if record.Completed && !q.IncludeCompleted {
			continue
		}
		if !matches(record, needle) {
			continue
		}
		hits = append(hits, Result{
			TaskID:       record.ID,
			Text:         record.Text,
			SectionID:    record.SectionID,
			SectionTitle: record.SectionTitle,
			PhaseKey:     record.PhaseKey,
			PhaseTitle:   record.PhaseTitle,
			WeekKey:      record.WeekKey,
			WeekTitle:    record.WeekTitle,
			Completed:    record.Completed,
			Votes:        record.Votes,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Votes > hits[b].Votes })

	total := len(hits)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []Result{}
	}
	return hits, total, nil
}

func matches(record TaskRecord, needle string) bool {
	for _, haystack := range []string{record.Text, record.SectionTitle, record.PhaseTitle, record.WeekTitle} {
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	return false
}

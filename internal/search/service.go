package search

import (
	"log"

	"roadmap/api/internal/roadmap"
)

// Service is the facade that tries Meilisearch first and falls back to the
// in-memory scan.
type Service struct {
	meili  *Meili
	memory *Memory
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, memory *Memory) *Service {
	return &Service{meili: meili, memory: memory}
}

// Search tries Meilisearch if healthy, otherwise scans the snapshot.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to memory scan: %v", err)
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		log.Printf("search: memory scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// Reindex rebuilds both backends from the document. The Meilisearch push is
// fire-and-forget; the snapshot swap is synchronous so the fallback never
// serves stale results after a replace.
func (s *Service) Reindex(doc *roadmap.Document) {
	records := Records(doc)
	if err := s.memory.ReplaceAll(records); err != nil {
		log.Printf("search: refresh memory snapshot: %v", err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.ReplaceAll(records); err != nil {
			log.Printf("search: reindex tasks: %v", err)
		}
	}()
}

// Records flattens the document into indexable task records.
func Records(doc *roadmap.Document) []TaskRecord {
	refs := roadmap.Flatten(doc)
	records := make([]TaskRecord, 0, len(refs))
	for _, ref := range refs {
		records = append(records, TaskRecord{
			ID:           ref.Task.ID,
			Text:         ref.Task.Text,
			SectionID:    ref.SectionID,
			SectionTitle: ref.SectionTitle,
			PhaseKey:     ref.PhaseKey,
			PhaseTitle:   ref.PhaseTitle,
			WeekKey:      ref.WeekKey,
			WeekTitle:    ref.WeekTitle,
			Completed:    ref.Task.Completed,
			Votes:        ref.Task.Votes,
		})
	}
	return records
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}

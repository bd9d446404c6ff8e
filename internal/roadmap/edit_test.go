package roadmap

import (
	"errors"
	"strings"
	"testing"
)

func ref(week string) WeekRef {
	return WeekRef{SectionID: "core", PhaseKey: "phase1", WeekKey: week}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestAddSection(t *testing.T) {
	doc := sampleDocument()

	section := doc.AddSection()
	if section.ID == "" || !strings.HasPrefix(section.ID, "section-") {
		t.Errorf("unexpected generated id %q", section.ID)
	}
	if section.Order != 2 {
		t.Errorf("expected order after existing sections, got %d", section.Order)
	}
	if section.Title != "New Section" || section.Color != ColorBlue {
		t.Errorf("unexpected defaults: %+v", section)
	}
	week, ok := doc.Week(section.ID, "phase1", "week1")
	if !ok {
		t.Fatal("expected starter phase and week")
	}
	if len(week.Tasks) != 0 {
		t.Error("expected starter week to be empty")
	}
}

func TestDeleteSection(t *testing.T) {
	doc := sampleDocument()

	if err := doc.DeleteSection("core"); err != nil {
		t.Fatalf("DeleteSection failed: %v", err)
	}
	if len(doc.Sections) != 0 {
		t.Error("expected section removed")
	}
	if err := doc.DeleteSection("core"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestUpdateSectionPartial(t *testing.T) {
	doc := sampleDocument()

	err := doc.UpdateSection("core", SectionUpdate{Title: strPtr("Renamed"), Active: boolPtr(false)})
	if err != nil {
		t.Fatalf("UpdateSection failed: %v", err)
	}
	section, _ := doc.Section("core")
	if section.Title != "Renamed" || section.Active {
		t.Errorf("update not applied: %+v", section)
	}
	// Untouched fields keep their values.
	if section.Color != ColorBlue || section.Order != 1 {
		t.Errorf("unset fields changed: %+v", section)
	}
}

func TestUpdateSectionRejectsUnknownColor(t *testing.T) {
	doc := sampleDocument()

	if err := doc.UpdateSection("core", SectionUpdate{Color: strPtr("teal")}); err == nil {
		t.Fatal("expected error for unknown color")
	}
}

func TestMoveSection(t *testing.T) {
	doc := sampleDocument()
	second := doc.AddSection()

	if err := doc.MoveSection(second.ID, DirectionUp); err != nil {
		t.Fatalf("MoveSection failed: %v", err)
	}
	sorted := doc.SortedSections()
	if sorted[0].ID != second.ID {
		t.Errorf("expected moved section first, got %s", sorted[0].ID)
	}
	// Order values are rewritten to match positions.
	if sorted[0].Order != 1 || sorted[1].Order != 2 {
		t.Errorf("orders not rewritten: %d, %d", sorted[0].Order, sorted[1].Order)
	}

	// Moving the first section further up is a no-op.
	if err := doc.MoveSection(second.ID, DirectionUp); err != nil {
		t.Fatalf("boundary MoveSection failed: %v", err)
	}
	if doc.SortedSections()[0].ID != second.ID {
		t.Error("boundary move should not change order")
	}

	if err := doc.MoveSection(second.ID, "sideways"); !errors.Is(err, ErrBadDirection) {
		t.Errorf("expected ErrBadDirection, got %v", err)
	}
}

func TestAddPhaseKeyGeneration(t *testing.T) {
	doc := sampleDocument()

	key, err := doc.AddPhase("core")
	if err != nil {
		t.Fatalf("AddPhase failed: %v", err)
	}
	if key != "phase2" {
		t.Errorf("expected phase2, got %q", key)
	}

	// Deleting phase1 leaves phase2; the next key must skip the taken one.
	if err := doc.DeletePhase("core", "phase1"); err != nil {
		t.Fatalf("DeletePhase failed: %v", err)
	}
	key, err = doc.AddPhase("core")
	if err != nil {
		t.Fatalf("AddPhase failed: %v", err)
	}
	if key == "phase2" {
		t.Errorf("expected a fresh key, got a collision with %q", key)
	}
}

func TestAddWeek(t *testing.T) {
	doc := sampleDocument()

	key, err := doc.AddWeek("core", "phase1")
	if err != nil {
		t.Fatalf("AddWeek failed: %v", err)
	}
	if key != "week3" {
		t.Errorf("expected week3, got %q", key)
	}
	week := doc.Sections[0].Phases["phase1"].Weeks[key]
	if week.Order != 3 || week.Tasks == nil {
		t.Errorf("unexpected starter week: %+v", week)
	}

	if _, err := doc.AddWeek("core", "nope"); !errors.Is(err, ErrPhaseNotFound) {
		t.Errorf("expected ErrPhaseNotFound, got %v", err)
	}
}

func TestUpdateWeekPartial(t *testing.T) {
	doc := sampleDocument()

	err := doc.UpdateWeek(ref("week1"), WeekUpdate{Badge: strPtr("In Review"), Order: intPtr(9)})
	if err != nil {
		t.Fatalf("UpdateWeek failed: %v", err)
	}
	week, _ := doc.Week("core", "phase1", "week1")
	if week.Badge != "In Review" || week.Order != 9 {
		t.Errorf("update not applied: %+v", week)
	}
	if week.Title != "Week 1" || len(week.Tasks) != 2 {
		t.Errorf("unset fields changed: %+v", week)
	}
}

func TestDeleteWeek(t *testing.T) {
	doc := sampleDocument()

	if err := doc.DeleteWeek(ref("week1")); err != nil {
		t.Fatalf("DeleteWeek failed: %v", err)
	}
	if _, ok := doc.Week("core", "phase1", "week1"); ok {
		t.Error("expected week removed")
	}
	if err := doc.DeleteWeek(ref("week1")); !errors.Is(err, ErrWeekNotFound) {
		t.Errorf("expected ErrWeekNotFound, got %v", err)
	}
}

func TestAddTaskDefaults(t *testing.T) {
	doc := sampleDocument()

	task, err := doc.AddTask(ref("week2"))
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if !strings.HasPrefix(task.ID, "task-") {
		t.Errorf("unexpected generated id %q", task.ID)
	}
	if task.Votes != 0 || task.Completed {
		t.Errorf("new task must start pending with zero votes: %+v", task)
	}
	week, _ := doc.Week("core", "phase1", "week2")
	if week.Tasks[len(week.Tasks)-1].ID != task.ID {
		t.Error("expected task appended at the end")
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	doc := sampleDocument()

	if err := doc.UpdateTask(ref("week1"), "t1", "Rewritten", "Star"); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	task, _ := doc.Task("core", "phase1", "week1", "t1")
	if task.Text != "Rewritten" || task.Icon != "Star" {
		t.Errorf("update not applied: %+v", task)
	}
	// Votes survive edits.
	if task.Votes != 2 {
		t.Errorf("votes changed on edit: %d", task.Votes)
	}

	if err := doc.DeleteTask(ref("week1"), "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, ok := doc.Task("core", "phase1", "week1", "t1"); ok {
		t.Error("expected task removed")
	}
	if err := doc.DeleteTask(ref("week1"), "t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestMoveTaskWithinWeek(t *testing.T) {
	doc := sampleDocument()

	if err := doc.MoveTask(ref("week1"), "t2", DirectionUp); err != nil {
		t.Fatalf("MoveTask failed: %v", err)
	}
	week, _ := doc.Week("core", "phase1", "week1")
	if week.Tasks[0].ID != "t2" {
		t.Errorf("expected t2 first, got %s", week.Tasks[0].ID)
	}

	// Boundary moves are silent no-ops.
	if err := doc.MoveTask(ref("week1"), "t2", DirectionUp); err != nil {
		t.Fatalf("boundary MoveTask failed: %v", err)
	}
	week, _ = doc.Week("core", "phase1", "week1")
	if week.Tasks[0].ID != "t2" {
		t.Error("boundary move should not change order")
	}
}

func TestMoveTaskBetweenAppends(t *testing.T) {
	doc := sampleDocument()

	if err := doc.MoveTaskBetween(ref("week1"), ref("week2"), "t1", false); err != nil {
		t.Fatalf("MoveTaskBetween failed: %v", err)
	}
	source, _ := doc.Week("core", "phase1", "week1")
	dest, _ := doc.Week("core", "phase1", "week2")
	if len(source.Tasks) != 1 || len(dest.Tasks) != 2 {
		t.Fatalf("unexpected task counts: %d, %d", len(source.Tasks), len(dest.Tasks))
	}
	if dest.Tasks[len(dest.Tasks)-1].ID != "t1" {
		t.Error("expected moved task appended")
	}
}

func TestMoveTaskBetweenByVotes(t *testing.T) {
	doc := sampleDocument()
	dest, _ := doc.Week("core", "phase1", "week2")
	dest.Tasks = []Task{
		{ID: "high", Votes: 10},
		{ID: "low", Votes: 1},
	}

	// t1 has 2 votes: it lands between high (10) and low (1).
	if err := doc.MoveTaskBetween(ref("week1"), ref("week2"), "t1", true); err != nil {
		t.Fatalf("MoveTaskBetween failed: %v", err)
	}
	dest, _ = doc.Week("core", "phase1", "week2")
	var ids []string
	for _, task := range dest.Tasks {
		ids = append(ids, task.ID)
	}
	if ids[0] != "high" || ids[1] != "t1" || ids[2] != "low" {
		t.Errorf("unexpected vote-ranked order: %v", ids)
	}
}

func TestMoveTaskBetweenSamePlaceNoOp(t *testing.T) {
	doc := sampleDocument()
	before := doc.TaskCount()

	if err := doc.MoveTaskBetween(ref("week1"), ref("week1"), "t1", false); err != nil {
		t.Fatalf("same-place move failed: %v", err)
	}
	if doc.TaskCount() != before {
		t.Error("same-place move changed the document")
	}
	week, _ := doc.Week("core", "phase1", "week1")
	if week.Tasks[0].ID != "t1" {
		t.Error("same-place move reordered tasks")
	}
}

func TestToggleTaskFlips(t *testing.T) {
	doc := sampleDocument()

	completed, err := doc.ToggleTask(ref("week1"), "t1")
	if err != nil {
		t.Fatalf("ToggleTask failed: %v", err)
	}
	if !completed {
		t.Error("expected completed after first toggle")
	}
	completed, err = doc.ToggleTask(ref("week1"), "t1")
	if err != nil {
		t.Fatalf("ToggleTask failed: %v", err)
	}
	if completed {
		t.Error("expected pending after second toggle")
	}
}

func TestIncrementVotes(t *testing.T) {
	doc := sampleDocument()

	if err := doc.IncrementVotes("core", "phase1", "week1", "t1"); err != nil {
		t.Fatalf("IncrementVotes failed: %v", err)
	}
	task, _ := doc.Task("core", "phase1", "week1", "t1")
	if task.Votes != 3 {
		t.Errorf("expected 3 votes, got %d", task.Votes)
	}

	if err := doc.IncrementVotes("core", "phase1", "week1", "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestNextKeySkipsTaken(t *testing.T) {
	taken := map[string]bool{"phase2": true, "phase3": true}
	key := nextKey("phase", 1, func(candidate string) bool { return taken[candidate] })
	if key != "phase4" {
		t.Errorf("expected phase4, got %q", key)
	}
}

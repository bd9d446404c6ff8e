package history

import (
	"errors"
	"testing"

	"roadmap/api/internal/roadmap"
)

func testDocument(taskText string) *roadmap.Document {
	return &roadmap.Document{
		Sections: []roadmap.Section{
			{
				ID:    "s1",
				Title: "Section",
				Color: roadmap.ColorBlue,
				Phases: map[string]*roadmap.Phase{
					"p1": {
						Title: "Phase",
						Order: 1,
						Weeks: map[string]*roadmap.Week{
							"w1": {
								Title: "Week 1",
								Order: 1,
								Tasks: []roadmap.Task{{ID: "t1", Text: taskText}},
							},
						},
					},
				},
			},
		},
	}
}

func TestCommitAndList(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.Commit(testDocument("first"), "alice", "Seed roadmap")
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := svc.Commit(testDocument("second"), "bob", "Edit task")
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct commit hashes")
	}

	revisions, err := svc.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revisions))
	}
	if revisions[0].Hash != second {
		t.Errorf("expected newest revision first, got %s", revisions[0].Hash)
	}
	if revisions[0].Author != "bob" || revisions[1].Author != "alice" {
		t.Errorf("unexpected authors: %s, %s", revisions[0].Author, revisions[1].Author)
	}
	if revisions[0].Message != "Edit task" {
		t.Errorf("unexpected message: %q", revisions[0].Message)
	}
}

func TestCommitUnchangedDocumentIsNoOp(t *testing.T) {
	svc := New(t.TempDir())

	doc := testDocument("same")
	first, err := svc.Commit(doc, "alice", "Seed roadmap")
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := svc.Commit(doc, "alice", "Seed roadmap again")
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}
	if first != second {
		t.Errorf("expected unchanged commit to return the same hash, got %s and %s", first, second)
	}

	revisions, err := svc.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(revisions) != 1 {
		t.Errorf("expected a single revision, got %d", len(revisions))
	}
}

func TestVersionRoundTrip(t *testing.T) {
	svc := New(t.TempDir())

	hash, err := svc.Commit(testDocument("original"), "alice", "Seed roadmap")
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := svc.Commit(testDocument("changed"), "alice", "Edit"); err != nil {
		t.Fatalf("second commit failed: %v", err)
	}

	doc, err := svc.Version(hash)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	task, ok := doc.Task("s1", "p1", "w1", "t1")
	if !ok {
		t.Fatal("task missing from historical version")
	}
	if task.Text != "original" {
		t.Errorf("expected historical text %q, got %q", "original", task.Text)
	}
}

func TestVersionUnknownHash(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.Commit(testDocument("x"), "alice", "Seed"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := svc.Version("0000000000000000000000000000000000000000"); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestListEmptyHistory(t *testing.T) {
	svc := New(t.TempDir())

	revisions, err := svc.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(revisions) != 0 {
		t.Errorf("expected empty history, got %d revisions", len(revisions))
	}
}

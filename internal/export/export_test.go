package export

import (
	"strings"
	"testing"
	"time"

	"roadmap/api/internal/roadmap"
)

func exportDocument() *roadmap.Document {
	return &roadmap.Document{
		Sections: []roadmap.Section{
			{
				ID:     "core",
				Title:  "Core Platform",
				Color:  roadmap.ColorBlue,
				Active: true,
				Order:  1,
				Phases: map[string]*roadmap.Phase{
					"phase1": {
						Title: "Phase 1 - Foundations",
						Order: 1,
						Weeks: map[string]*roadmap.Week{
							"week1": {
								Title: "Week 1",
								Order: 1,
								Badge: "Done",
								Tasks: []roadmap.Task{
									{ID: "t1", Text: "Ship the API", Completed: true, Votes: 3},
									{ID: "t2", Text: "Write <docs>", Votes: 1},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestRenderRoadmapHTML(t *testing.T) {
	data := BuildTemplateData(exportDocument(), "Team Roadmap", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	html, err := RenderRoadmapHTML(data)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, want := range []string{
		"<title>Team Roadmap</title>",
		"Core Platform",
		"Phase 1 - Foundations",
		`<span class="badge">Done</span>`,
		`<li class="done">Ship the API`,
		"1/2 tasks done (50%)",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected rendered HTML to contain %q", want)
		}
	}

	// Task text is user-supplied and must be escaped.
	if strings.Contains(html, "<docs>") {
		t.Error("expected task text to be HTML-escaped")
	}
	if !strings.Contains(html, "&lt;docs&gt;") {
		t.Error("expected escaped task text in output")
	}
}

func TestBuildTemplateDataOrdering(t *testing.T) {
	doc := exportDocument()
	doc.Sections = append(doc.Sections, roadmap.Section{
		ID:    "later",
		Title: "Later Work",
		Color: roadmap.ColorPurple,
		Order: 0,
		Phases: map[string]*roadmap.Phase{
			"phase1": {Title: "Phase 1", Order: 1, Weeks: map[string]*roadmap.Week{}},
		},
	})

	data := BuildTemplateData(doc, "Team Roadmap", time.Now())
	if len(data.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(data.Sections))
	}
	if data.Sections[0].Title != "Later Work" {
		t.Errorf("expected sections sorted by order, got %q first", data.Sections[0].Title)
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc-123_~.", "abc-123_~."},
		{"a b", "a%20b"},
		{"<p>&amp;</p>", "%3Cp%3E%26amp%3B%3C%2Fp%3E"},
	}
	for _, tt := range tests {
		if got := percentEncodeForDataURL(tt.in); got != tt.want {
			t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Team Roadmap", "Team-Roadmap"},
		{"///", "roadmap"},
		{"snake_case-name", "snake_case-name"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintParamsLandscape(t *testing.T) {
	params := printParams()

	if !params.Landscape {
		t.Error("expected landscape orientation")
	}
	if params.PaperWidth != 11.0 || params.PaperHeight != 8.5 {
		t.Errorf("expected 11x8.5 paper, got %gx%g", params.PaperWidth, params.PaperHeight)
	}
	if !params.PrintBackground {
		t.Error("expected backgrounds to print")
	}
	for _, margin := range []float64{params.MarginTop, params.MarginBottom, params.MarginLeft, params.MarginRight} {
		if margin != 0.5 {
			t.Errorf("expected 0.5in margins, got %g", margin)
		}
	}
}

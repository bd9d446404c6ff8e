package export

import (
	"bytes"
	"html/template"
	"time"

	"roadmap/api/internal/roadmap"
)

var roadmapTemplate = template.Must(template.New("roadmap").Parse(roadmapTemplateHTML))

// TemplateData holds data for roadmap template rendering.
type TemplateData struct {
	Title       string
	GeneratedAt time.Time
	Sections    []TemplateSection
	Stats       roadmap.Stats
}

// TemplateSection is one roadmap section in display order.
type TemplateSection struct {
	Title  string
	Color  string
	Active bool
	Phases []TemplatePhase
}

// TemplatePhase is one phase with its weeks sorted by order.
type TemplatePhase struct {
	Title string
	Weeks []TemplateWeek
}

// TemplateWeek is one week with its tasks.
type TemplateWeek struct {
	Title string
	Badge string
	Tasks []roadmap.Task
}

// BuildTemplateData flattens the document into the shape the template wants,
// sections by order, phases and weeks by their key order.
func BuildTemplateData(doc *roadmap.Document, title string, now time.Time) TemplateData {
	data := TemplateData{
		Title:       title,
		GeneratedAt: now,
		Stats:       roadmap.ComputeStats(doc),
	}
	for _, section := range doc.SortedSections() {
		ts := TemplateSection{
			Title:  section.Title,
			Color:  string(section.Color),
			Active: section.Active,
		}
		for _, phaseKey := range section.SortedPhaseKeys() {
			phase := section.Phases[phaseKey]
			tp := TemplatePhase{Title: phase.Title}
			for _, weekKey := range phase.SortedWeekKeys() {
				week := phase.Weeks[weekKey]
				tp.Weeks = append(tp.Weeks, TemplateWeek{
					Title: week.Title,
					Badge: week.Badge,
					Tasks: week.Tasks,
				})
			}
			ts.Phases = append(ts.Phases, tp)
		}
		data.Sections = append(data.Sections, ts)
	}
	return data
}

// RenderRoadmapHTML renders the roadmap template with provided data.
func RenderRoadmapHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := roadmapTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const roadmapTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; color: #1a1a2e; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    h2 { margin-top: 2rem; }
    h3 { margin-bottom: 0.25rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .section { page-break-inside: avoid; margin-bottom: 1.5rem; }
    .section.inactive { opacity: 0.6; }
    .phase { margin-left: 1rem; }
    .week { margin-left: 2rem; margin-bottom: 0.75rem; }
    .badge { display: inline-block; background: #eef; border-radius: 4px; padding: 0 0.4rem; font-size: 0.8em; margin-left: 0.5rem; }
    ul { margin: 0.25rem 0; padding-left: 1.25rem; }
    li.done { text-decoration: line-through; color: #888; }
    .votes { color: #a06; font-size: 0.85em; margin-left: 0.4rem; }
    .color-blue { border-left: 4px solid #3b82f6; padding-left: 0.75rem; }
    .color-green { border-left: 4px solid #22c55e; padding-left: 0.75rem; }
    .color-purple { border-left: 4px solid #a855f7; padding-left: 0.75rem; }
    .color-red { border-left: 4px solid #ef4444; padding-left: 0.75rem; }
    .color-orange { border-left: 4px solid #f97316; padding-left: 0.75rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    Generated {{.GeneratedAt.Format "Jan 2, 2006 15:04"}} |
    {{.Stats.CompletedTasks}}/{{.Stats.TotalTasks}} tasks done ({{.Stats.CompletionPercentage}}%) |
    {{.Stats.TotalVotes}} votes
  </div>
  {{range .Sections}}
  <div class="section color-{{.Color}}{{if not .Active}} inactive{{end}}">
    <h2>{{.Title}}</h2>
    {{range .Phases}}
    <div class="phase">
      <h3>{{.Title}}</h3>
      {{range .Weeks}}
      <div class="week">
        <strong>{{.Title}}</strong>{{if .Badge}}<span class="badge">{{.Badge}}</span>{{end}}
        <ul>
          {{range .Tasks}}
          <li{{if .Completed}} class="done"{{end}}>{{.Text}}{{if gt .Votes 0}}<span class="votes">&#9650; {{.Votes}}</span>{{end}}</li>
          {{end}}
        </ul>
      </div>
      {{end}}
    </div>
    {{end}}
  </div>
  {{end}}
</body>
</html>`

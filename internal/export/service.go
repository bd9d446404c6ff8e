package export

import (
	"fmt"
	"time"

	"roadmap/api/internal/roadmap"
)

// Service renders roadmap documents to PDF.
type Service struct{}

// NewService creates a new export service.
func NewService() *Service {
	return &Service{}
}

// Export renders the roadmap as HTML and drives headless Chrome to produce
// a PDF snapshot.
func (s *Service) Export(doc *roadmap.Document, title string) (*Result, error) {
	if title == "" {
		title = "Team Roadmap"
	}

	data := BuildTemplateData(doc, title, time.Now())
	html, err := RenderRoadmapHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	return exportPDF(html, title)
}

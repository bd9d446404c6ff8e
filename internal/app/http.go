package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roadmap/api/internal/auth"
	"roadmap/api/internal/roadmap"
	"roadmap/api/internal/search"
	"roadmap/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/status" {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/admin/session" {
		var body struct {
			Secret string `json:"secret"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.IssueAdminSession(body.Secret)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, session)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "roadmap":
		s.handleRoadmap(w, r, parts)
	case "votes":
		s.handleVotes(w, r, parts)
	case "search":
		s.handleSearch(w, r)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleRoadmap(w http.ResponseWriter, r *http.Request, parts []string) {
	// GET /api/roadmap | PUT /api/roadmap
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			doc, err := s.service.GetRoadmap(r.Context())
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodPut:
			if !s.requireAdmin(w, r) {
				return
			}
			var doc roadmap.Document
			if err := decodeBody(r, &doc); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.ReplaceRoadmap(r.Context(), &doc, "admin"); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch parts[2] {
	case "updates":
		if r.Method != http.MethodGet || len(parts) != 3 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		since := int64(0)
		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "since must be a millisecond timestamp", nil)
				return
			}
			since = parsed
		}
		check, err := s.service.CheckForUpdates(r.Context(), since)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, check)

	case "stats":
		if r.Method != http.MethodGet || len(parts) != 3 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		stats, err := s.service.Stats(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)

	case "history":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if len(parts) == 3 {
			limit := 50
			if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
					return
				}
				limit = parsed
			}
			revisions, err := s.service.History(limit)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
			return
		}
		if len(parts) == 4 {
			doc, err := s.service.HistoryVersion(parts[3])
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)

	case "export":
		if r.Method != http.MethodPost || len(parts) != 3 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		if !s.requireAdmin(w, r) {
			return
		}
		result, err := s.service.ExportPDF(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)

	case "tasks":
		// POST /api/roadmap/tasks/move moves a task between weeks.
		if r.Method != http.MethodPost || len(parts) != 4 || parts[3] != "move" {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		if !s.requireAdmin(w, r) {
			return
		}
		var body struct {
			From    roadmap.WeekRef `json:"from"`
			To      roadmap.WeekRef `json:"to"`
			TaskID  string          `json:"taskId"`
			ByVotes bool            `json:"byVotes"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.MoveTaskBetween(r.Context(), "admin", body.From, body.To, body.TaskID, body.ByVotes); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case "sections":
		s.handleSections(w, r, parts)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleSections routes the nested structural edit endpoints:
// /api/roadmap/sections[/{id}[/move | /phases[/{phase}[/weeks[/{week}[/tasks[/{taskId}[/move|/toggle]]]]]]]]
func (s *HTTPServer) handleSections(w http.ResponseWriter, r *http.Request, parts []string) {
	if !s.requireAdmin(w, r) {
		return
	}

	// POST /api/roadmap/sections
	if len(parts) == 3 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		section, err := s.service.AddSection(r.Context(), "admin")
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "section": section})
		return
	}

	sectionID := parts[3]

	// PUT | DELETE /api/roadmap/sections/{id}
	if len(parts) == 4 {
		switch r.Method {
		case http.MethodPut:
			var update roadmap.SectionUpdate
			if err := decodeBody(r, &update); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.UpdateSection(r.Context(), "admin", sectionID, update); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		case http.MethodDelete:
			if err := s.service.DeleteSection(r.Context(), "admin", sectionID); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// POST /api/roadmap/sections/{id}/move
	if len(parts) == 5 && parts[4] == "move" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			Direction string `json:"direction"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.MoveSection(r.Context(), "admin", sectionID, body.Direction); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if parts[4] != "phases" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	// POST /api/roadmap/sections/{id}/phases
	if len(parts) == 5 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		key, err := s.service.AddPhase(r.Context(), "admin", sectionID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "phase": key})
		return
	}

	phaseKey := parts[5]

	// PUT | DELETE /api/roadmap/sections/{id}/phases/{phase}
	if len(parts) == 6 {
		switch r.Method {
		case http.MethodPut:
			var body struct {
				Title *string `json:"title"`
				Order *int    `json:"order"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.UpdatePhase(r.Context(), "admin", sectionID, phaseKey, body.Title, body.Order); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		case http.MethodDelete:
			if err := s.service.DeletePhase(r.Context(), "admin", sectionID, phaseKey); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if parts[6] != "weeks" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	// POST /api/roadmap/sections/{id}/phases/{phase}/weeks
	if len(parts) == 7 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		key, err := s.service.AddWeek(r.Context(), "admin", sectionID, phaseKey)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "week": key})
		return
	}

	ref := roadmap.WeekRef{SectionID: sectionID, PhaseKey: phaseKey, WeekKey: parts[7]}

	// PUT | DELETE .../weeks/{week}
	if len(parts) == 8 {
		switch r.Method {
		case http.MethodPut:
			var update roadmap.WeekUpdate
			if err := decodeBody(r, &update); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.UpdateWeek(r.Context(), "admin", ref, update); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		case http.MethodDelete:
			if err := s.service.DeleteWeek(r.Context(), "admin", ref); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if parts[8] != "tasks" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	// POST .../weeks/{week}/tasks
	if len(parts) == 9 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		task, err := s.service.AddTask(r.Context(), "admin", ref)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "task": task})
		return
	}

	taskID := parts[9]

	// PUT | DELETE .../tasks/{taskId}
	if len(parts) == 10 {
		switch r.Method {
		case http.MethodPut:
			var body struct {
				Text *string `json:"text"`
				Icon *string `json:"icon"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.UpdateTask(r.Context(), "admin", ref, taskID, body.Text, body.Icon); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		case http.MethodDelete:
			if err := s.service.DeleteTask(r.Context(), "admin", ref, taskID); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// POST .../tasks/{taskId}/move | .../tasks/{taskId}/toggle
	if len(parts) == 11 && r.Method == http.MethodPost {
		switch parts[10] {
		case "move":
			var body struct {
				Direction string `json:"direction"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.MoveTask(r.Context(), "admin", ref, taskID, body.Direction); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		case "toggle":
			completed, err := s.service.ToggleTask(r.Context(), "admin", ref, taskID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "completed": completed})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleVotes(w http.ResponseWriter, r *http.Request, parts []string) {
	// POST /api/votes
	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var input VoteInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.CastVote(r.Context(), input)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		message := "Vote recorded"
		if !result.NewVote {
			message = "Already voted for this task"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"newVote": result.NewVote,
			"voteKey": result.VoteKey,
			"message": message,
		})
		return
	}

	// GET /api/votes/{userId} returns the legacy {voteKey:true} map.
	if len(parts) == 3 && r.Method == http.MethodGet {
		votes, err := s.service.UserVotes(r.Context(), parts[2])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, votes)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	includeCompleted := r.URL.Query().Get("includeCompleted") == "true"

	response := s.service.Search(search.Query{Text: q, Limit: limit, IncludeCompleted: includeCompleted})
	writeJSON(w, http.StatusOK, response)
}

// requireAdmin accepts either the shared secret header or a bearer session
// token.
func (s *HTTPServer) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if secret := strings.TrimSpace(r.Header.Get("X-Admin-Secret")); secret != "" {
		if err := s.service.VerifyAdminSecret(secret); err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return false
		}
		return true
	}
	if token := bearerToken(r); token != "" {
		if err := s.service.VerifyAdminToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return false
		}
		return true
	}
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	return false
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Secret, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, store.ErrNotInitialized):
		return http.StatusNotFound, "NOT_INITIALIZED", "Roadmap not initialized", nil
	case errors.Is(err, roadmap.ErrSectionNotFound):
		return http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found", nil
	case errors.Is(err, roadmap.ErrPhaseNotFound):
		return http.StatusNotFound, "PHASE_NOT_FOUND", "Phase not found", nil
	case errors.Is(err, roadmap.ErrWeekNotFound):
		return http.StatusNotFound, "WEEK_NOT_FOUND", "Week not found", nil
	case errors.Is(err, roadmap.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND", "Task not found", nil
	case errors.Is(err, roadmap.ErrBadDirection):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "direction must be up or down", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrInvalidSecret):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

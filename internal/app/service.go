package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"roadmap/api/internal/auth"
	"roadmap/api/internal/backup"
	"roadmap/api/internal/config"
	"roadmap/api/internal/export"
	"roadmap/api/internal/history"
	"roadmap/api/internal/roadmap"
	"roadmap/api/internal/search"
	"roadmap/api/internal/store"
	"roadmap/api/internal/util"
)

// documentStore persists the single roadmap document and its update marker.
type documentStore interface {
	GetDocument(ctx context.Context) (*roadmap.Document, error)
	ReplaceDocument(ctx context.Context, doc *roadmap.Document, updatedAtMillis int64) error
	LastUpdate(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// voteLedger records which user voted for which task, exactly once.
type voteLedger interface {
	RecordVote(ctx context.Context, userID, voteKey string) (bool, error)
	VotesForUser(ctx context.Context, userID string) (map[string]bool, error)
	RemoveVote(ctx context.Context, userID, voteKey string) error
}

// VoteInput identifies the task a user is voting for.
type VoteInput struct {
	UserID    string `json:"userId"`
	SectionID string `json:"sectionId"`
	PhaseKey  string `json:"phase"`
	WeekKey   string `json:"week"`
	TaskID    string `json:"taskId"`
}

// VoteResult reports whether the vote counted or was a duplicate.
type VoteResult struct {
	NewVote bool
	VoteKey string
}

// UpdateCheck is the polling response: has anything changed since the
// client's timestamp.
type UpdateCheck struct {
	HasChanges          bool  `json:"hasChanges"`
	LastUpdateTimestamp int64 `json:"lastUpdateTimestamp"`
}

// AdminSession is a short-lived token issued in exchange for the shared
// secret.
type AdminSession struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type Service struct {
	cfg      config.Config
	store    documentStore
	votes    voteLedger
	history  *history.Service
	search   *search.Service
	exporter *export.Service
	backups  *backup.Service
	now      func() time.Time
}

// New wires the roadmap service. history, search, exporter and backups may be
// nil; the corresponding operations degrade or report unavailability.
func New(cfg config.Config, documents documentStore, votes voteLedger, hist *history.Service, searcher *search.Service, exporter *export.Service, backups *backup.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    documents,
		votes:    votes,
		history:  hist,
		search:   searcher,
		exporter: exporter,
		backups:  backups,
		now:      time.Now,
	}
}

// Bootstrap seeds the starter document when the store is empty and primes the
// search index from whatever document is stored.
func (s *Service) Bootstrap(ctx context.Context) error {
	doc, err := s.store.GetDocument(ctx)
	if errors.Is(err, store.ErrNotInitialized) {
		if !s.cfg.Seed {
			return nil
		}
		doc = roadmap.Seed()
		if err := s.store.ReplaceDocument(ctx, doc, s.now().UnixMilli()); err != nil {
			return fmt.Errorf("seed roadmap: %w", err)
		}
		log.Printf("app: seeded starter roadmap with %d tasks", doc.TaskCount())
	} else if err != nil {
		return fmt.Errorf("load roadmap: %w", err)
	}

	if s.search != nil {
		s.search.Reindex(doc)
	}
	return nil
}

// Ping checks the health of service dependencies.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) GetRoadmap(ctx context.Context) (*roadmap.Document, error) {
	doc, err := s.store.GetDocument(ctx)
	if errors.Is(err, store.ErrNotInitialized) {
		return nil, notFound("NOT_INITIALIZED", "Roadmap not initialized")
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ReplaceRoadmap overwrites the whole document. Last writer wins; there is no
// merge. History, search and backup run after the write succeeds.
func (s *Service) ReplaceRoadmap(ctx context.Context, doc *roadmap.Document, actor string) error {
	if doc == nil {
		return validationError("roadmap document is required", nil)
	}
	if err := doc.Validate(); err != nil {
		return validationError(err.Error(), nil)
	}
	if err := s.store.ReplaceDocument(ctx, doc, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("replace roadmap: %w", err)
	}
	s.afterReplace(doc, actor, "Update roadmap")
	return nil
}

// afterReplace fans out the side effects of a successful write. Each is
// fire-and-forget: the write already happened, a failing index or snapshot
// must not fail the request.
func (s *Service) afterReplace(doc *roadmap.Document, actor, message string) {
	snapshot := doc.Clone()

	if s.search != nil {
		s.search.Reindex(snapshot)
	}
	if s.history != nil {
		go func() {
			if _, err := s.history.Commit(snapshot, actor, message); err != nil {
				log.Printf("app: history commit: %v", err)
			}
		}()
	}
	if s.backups != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.backups.Snapshot(ctx, snapshot); err != nil {
				log.Printf("app: snapshot upload: %v", err)
			}
		}()
	}
}

func (s *Service) CheckForUpdates(ctx context.Context, since int64) (UpdateCheck, error) {
	marker, err := s.store.LastUpdate(ctx)
	if err != nil {
		return UpdateCheck{}, fmt.Errorf("load update marker: %w", err)
	}
	return UpdateCheck{
		HasChanges:          since < marker,
		LastUpdateTimestamp: marker,
	}, nil
}

// CastVote records one vote per user per task. The ledger write is the
// idempotency gate; the vote counter on the task only moves when the ledger
// accepts a new entry. If persisting the counter fails the ledger entry is
// rolled back so the user can retry.
func (s *Service) CastVote(ctx context.Context, input VoteInput) (VoteResult, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	input.SectionID = strings.TrimSpace(input.SectionID)
	input.PhaseKey = strings.TrimSpace(input.PhaseKey)
	input.WeekKey = strings.TrimSpace(input.WeekKey)
	input.TaskID = strings.TrimSpace(input.TaskID)
	if input.UserID == "" || input.SectionID == "" || input.PhaseKey == "" || input.WeekKey == "" || input.TaskID == "" {
		return VoteResult{}, validationError("userId, sectionId, phase, week and taskId are required", nil)
	}

	doc, err := s.GetRoadmap(ctx)
	if err != nil {
		return VoteResult{}, err
	}

	task, ok := doc.Task(input.SectionID, input.PhaseKey, input.WeekKey, input.TaskID)
	if !ok {
		return VoteResult{}, notFound("TASK_NOT_FOUND", "Task not found")
	}
	if task.Completed {
		return VoteResult{}, conflict("TASK_COMPLETED", "Completed tasks cannot receive votes")
	}

	voteKey := roadmap.VoteKey(input.SectionID, input.PhaseKey, input.WeekKey, input.TaskID)
	added, err := s.votes.RecordVote(ctx, input.UserID, voteKey)
	if err != nil {
		return VoteResult{}, fmt.Errorf("record vote: %w", err)
	}
	if !added {
		return VoteResult{NewVote: false, VoteKey: voteKey}, nil
	}

	if err := doc.IncrementVotes(input.SectionID, input.PhaseKey, input.WeekKey, input.TaskID); err != nil {
		return VoteResult{}, err
	}
	if err := s.store.ReplaceDocument(ctx, doc, s.now().UnixMilli()); err != nil {
		if rollbackErr := s.votes.RemoveVote(ctx, input.UserID, voteKey); rollbackErr != nil {
			log.Printf("app: vote rollback for %s/%s: %v", input.UserID, voteKey, rollbackErr)
		}
		return VoteResult{}, fmt.Errorf("persist vote: %w", err)
	}
	s.afterReplace(doc, input.UserID, "Cast vote")

	return VoteResult{NewVote: true, VoteKey: voteKey}, nil
}

// UserVotes returns the vote keys a user has cast. Unknown users get an
// empty map, never an error.
func (s *Service) UserVotes(ctx context.Context, userID string) (map[string]bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationError("userId is required", nil)
	}
	votes, err := s.votes.VotesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	if votes == nil {
		votes = map[string]bool{}
	}
	return votes, nil
}

func (s *Service) Stats(ctx context.Context) (roadmap.Stats, error) {
	doc, err := s.GetRoadmap(ctx)
	if err != nil {
		return roadmap.Stats{}, err
	}
	return roadmap.ComputeStats(doc), nil
}

func (s *Service) Search(query search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Total: 0, Query: query.Text}
	}
	return s.search.Search(query)
}

func (s *Service) ExportPDF(ctx context.Context) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not configured", nil)
	}
	doc, err := s.GetRoadmap(ctx)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(doc, "Team Roadmap")
}

func (s *Service) History(limit int) ([]history.Revision, error) {
	if s.history == nil {
		return []history.Revision{}, nil
	}
	return s.history.List(limit)
}

func (s *Service) HistoryVersion(hash string) (*roadmap.Document, error) {
	if s.history == nil {
		return nil, notFound("VERSION_NOT_FOUND", "Version not found")
	}
	doc, err := s.history.Version(hash)
	if errors.Is(err, history.ErrVersionNotFound) {
		return nil, notFound("VERSION_NOT_FOUND", "Version not found")
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// VerifyAdminSecret checks the shared secret against config, bcrypt hash
// first when one is set.
func (s *Service) VerifyAdminSecret(secret string) error {
	return auth.VerifySecret(secret, s.cfg.AdminSecret, s.cfg.AdminSecretBcrypt)
}

// IssueAdminSession exchanges the shared secret for a short-lived token so
// admin clients do not replay the secret on every request.
func (s *Service) IssueAdminSession(secret string) (AdminSession, error) {
	if err := s.VerifyAdminSecret(secret); err != nil {
		return AdminSession{}, domainError(http.StatusUnauthorized, "INVALID_SECRET", "Invalid admin secret", nil)
	}
	expiresAt := s.now().Add(s.cfg.SessionTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Role: auth.RoleAdmin,
		JTI:  util.NewID("session"),
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return AdminSession{}, fmt.Errorf("issue session token: %w", err)
	}
	return AdminSession{Token: token, ExpiresAt: expiresAt.Unix()}, nil
}

// VerifyAdminToken validates a session token previously issued by
// IssueAdminSession.
func (s *Service) VerifyAdminToken(token string) error {
	_, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	return err
}

// editDocument runs one structural transformation as load, mutate, replace.
// Persistence is always the wholesale document write; there is no
// per-operation storage.
func (s *Service) editDocument(ctx context.Context, actor, message string, mutate func(*roadmap.Document) error) error {
	doc, err := s.GetRoadmap(ctx)
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	if err := s.store.ReplaceDocument(ctx, doc, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("persist edit: %w", err)
	}
	s.afterReplace(doc, actor, message)
	return nil
}

func (s *Service) AddSection(ctx context.Context, actor string) (*roadmap.Section, error) {
	var created *roadmap.Section
	err := s.editDocument(ctx, actor, "Add section", func(doc *roadmap.Document) error {
		created = doc.AddSection()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) UpdateSection(ctx context.Context, actor, sectionID string, update roadmap.SectionUpdate) error {
	return s.editDocument(ctx, actor, "Update section", func(doc *roadmap.Document) error {
		return doc.UpdateSection(sectionID, update)
	})
}

func (s *Service) DeleteSection(ctx context.Context, actor, sectionID string) error {
	return s.editDocument(ctx, actor, "Delete section", func(doc *roadmap.Document) error {
		return doc.DeleteSection(sectionID)
	})
}

func (s *Service) MoveSection(ctx context.Context, actor, sectionID, direction string) error {
	return s.editDocument(ctx, actor, "Move section", func(doc *roadmap.Document) error {
		return doc.MoveSection(sectionID, direction)
	})
}

func (s *Service) AddPhase(ctx context.Context, actor, sectionID string) (string, error) {
	var key string
	err := s.editDocument(ctx, actor, "Add phase", func(doc *roadmap.Document) error {
		var addErr error
		key, addErr = doc.AddPhase(sectionID)
		return addErr
	})
	return key, err
}

// UpdatePhase merges the provided fields into the current phase; nil leaves a
// field untouched.
func (s *Service) UpdatePhase(ctx context.Context, actor, sectionID, phaseKey string, title *string, order *int) error {
	return s.editDocument(ctx, actor, "Update phase", func(doc *roadmap.Document) error {
		section, ok := doc.Section(sectionID)
		if !ok {
			return roadmap.ErrSectionNotFound
		}
		phase, ok := section.Phases[phaseKey]
		if !ok {
			return roadmap.ErrPhaseNotFound
		}
		newTitle, newOrder := phase.Title, phase.Order
		if title != nil {
			newTitle = *title
		}
		if order != nil {
			newOrder = *order
		}
		return doc.UpdatePhase(sectionID, phaseKey, newTitle, newOrder)
	})
}

func (s *Service) DeletePhase(ctx context.Context, actor, sectionID, phaseKey string) error {
	return s.editDocument(ctx, actor, "Delete phase", func(doc *roadmap.Document) error {
		return doc.DeletePhase(sectionID, phaseKey)
	})
}

func (s *Service) AddWeek(ctx context.Context, actor, sectionID, phaseKey string) (string, error) {
	var key string
	err := s.editDocument(ctx, actor, "Add week", func(doc *roadmap.Document) error {
		var addErr error
		key, addErr = doc.AddWeek(sectionID, phaseKey)
		return addErr
	})
	return key, err
}

func (s *Service) UpdateWeek(ctx context.Context, actor string, ref roadmap.WeekRef, update roadmap.WeekUpdate) error {
	return s.editDocument(ctx, actor, "Update week", func(doc *roadmap.Document) error {
		return doc.UpdateWeek(ref, update)
	})
}

func (s *Service) DeleteWeek(ctx context.Context, actor string, ref roadmap.WeekRef) error {
	return s.editDocument(ctx, actor, "Delete week", func(doc *roadmap.Document) error {
		return doc.DeleteWeek(ref)
	})
}

func (s *Service) AddTask(ctx context.Context, actor string, ref roadmap.WeekRef) (*roadmap.Task, error) {
	var created *roadmap.Task
	err := s.editDocument(ctx, actor, "Add task", func(doc *roadmap.Document) error {
		var addErr error
		created, addErr = doc.AddTask(ref)
		return addErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTask merges the provided fields into the current task; nil leaves a
// field untouched.
func (s *Service) UpdateTask(ctx context.Context, actor string, ref roadmap.WeekRef, taskID string, text, icon *string) error {
	return s.editDocument(ctx, actor, "Update task", func(doc *roadmap.Document) error {
		task, ok := doc.Task(ref.SectionID, ref.PhaseKey, ref.WeekKey, taskID)
		if !ok {
			return roadmap.ErrTaskNotFound
		}
		newText, newIcon := task.Text, task.Icon
		if text != nil {
			newText = *text
		}
		if icon != nil {
			newIcon = *icon
		}
		return doc.UpdateTask(ref, taskID, newText, newIcon)
	})
}

func (s *Service) DeleteTask(ctx context.Context, actor string, ref roadmap.WeekRef, taskID string) error {
	return s.editDocument(ctx, actor, "Delete task", func(doc *roadmap.Document) error {
		return doc.DeleteTask(ref, taskID)
	})
}

func (s *Service) MoveTask(ctx context.Context, actor string, ref roadmap.WeekRef, taskID, direction string) error {
	return s.editDocument(ctx, actor, "Move task", func(doc *roadmap.Document) error {
		return doc.MoveTask(ref, taskID, direction)
	})
}

func (s *Service) ToggleTask(ctx context.Context, actor string, ref roadmap.WeekRef, taskID string) (bool, error) {
	var completed bool
	err := s.editDocument(ctx, actor, "Toggle task", func(doc *roadmap.Document) error {
		var toggleErr error
		completed, toggleErr = doc.ToggleTask(ref, taskID)
		return toggleErr
	})
	return completed, err
}

func (s *Service) MoveTaskBetween(ctx context.Context, actor string, from, to roadmap.WeekRef, taskID string, byVotes bool) error {
	return s.editDocument(ctx, actor, "Move task between weeks", func(doc *roadmap.Document) error {
		return doc.MoveTaskBetween(from, to, taskID, byVotes)
	})
}

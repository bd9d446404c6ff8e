// Package history keeps a git-backed revision log of the roadmap document.
// Every replace is committed to a local repository holding roadmap.json, so
// any prior version of the document can be read back.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"roadmap/api/internal/roadmap"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const documentFile = "roadmap.json"

var ErrVersionNotFound = errors.New("version not found")

// Revision describes one committed version of the document.
type Revision struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

type Service struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Service {
	return &Service{dir: dir}
}

// Commit writes the document and records a commit. The repository is created
// on first use. Committing an unchanged document is a no-op.
func (s *Service) Commit(doc *roadmap.Document, actor, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.openOrInit()
	if err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, documentFile), append(payload, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(documentFile); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("read head: %w", err)
		}
		return head.Hash().String(), nil
	}

	if actor == "" {
		actor = "admin"
	}
	if message == "" {
		message = "Update roadmap"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  actor,
			Email: fmt.Sprintf("%s@local.roadmap.dev", sanitizeEmail(actor)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit document: %w", err)
	}
	return hash.String(), nil
}

// List returns up to limit revisions, newest first. An uninitialized history
// yields an empty list.
func (s *Service) List(limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []Revision{}, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	if limit <= 0 {
		limit = 50
	}
	revisions := make([]Revision, 0, limit)
	for len(revisions) < limit {
		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk log: %w", err)
		}
		revisions = append(revisions, Revision{
			Hash:    commit.Hash.String(),
			Author:  commit.Author.Name,
			Message: strings.TrimSpace(commit.Message),
			When:    commit.Author.When,
		})
	}
	return revisions, nil
}

// Version reads the document as of the given commit hash.
func (s *Service) Version(hash string) (*roadmap.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, ErrVersionNotFound
	}
	file, err := commit.File(documentFile)
	if err != nil {
		return nil, ErrVersionNotFound
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", documentFile, hash, err)
	}

	var doc roadmap.Document
	if err := json.Unmarshal([]byte(contents), &doc); err != nil {
		return nil, fmt.Errorf("decode document at %s: %w", hash, err)
	}
	return &doc, nil
}

func (s *Service) openOrInit() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open history repo: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	repo, err = git.PlainInit(s.dir, false)
	if err != nil {
		return nil, fmt.Errorf("init history repo: %w", err)
	}
	return repo, nil
}

func sanitizeEmail(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, " ", ".")
	if lowered == "" {
		return "admin"
	}
	return lowered
}

// Package history snapshots table files into a git repository after every
// successful write.
package history

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/maruel/roomdb/internal/csvdb"
)

const (
	defaultName  = "roomdb"
	defaultEmail = "roomdb@localhost"
)

// Commit is one snapshot.
type Commit struct {
	Hash    string
	Message string
	Author  string
	When    time.Time
}

// Recorder commits table files of a directory.
type Recorder struct {
	dir string
	// author returns the acting user's email; "" commits as roomdb.
	author func() string
	repo   *gogit.Repository
	logger *slog.Logger
	mu     sync.Mutex
}

// Open opens the git repository at dir, initializing it when needed.
func Open(dir string, author func() string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}
	if author == nil {
		author = func() string { return "" }
	}
	return &Recorder{dir: dir, author: author, repo: repo, logger: slog.Default()}, nil
}

// Commit stages files, given relative to the repository root, and commits
// them with msg. It reports whether a commit was made: files identical to
// the last snapshot produce none.
func (r *Recorder) Commit(msg string, files ...string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(files) == 0 {
		return false, nil
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	for _, f := range files {
		if _, err := w.Add(f); err != nil {
			return false, fmt.Errorf("failed to stage %s: %w", f, err)
		}
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}
	staged := false
	for _, f := range files {
		if s := status.File(f).Staging; s != gogit.Unmodified && s != gogit.Untracked {
			staged = true
		}
	}
	if !staged {
		return false, nil
	}

	email := r.author()
	name := email
	if email == "" {
		name, email = defaultName, defaultEmail
	}
	now := time.Now()
	_, err = w.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: now},
		Committer: &object.Signature{
			Name:  defaultName,
			Email: defaultEmail,
			When:  now,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Observe implements csvdb.Observer: a table file that was replaced is
// committed. Failures are logged.
func (r *Recorder) Observe(e csvdb.Event) {
	if e.Stage != csvdb.StageDone || !e.Changed {
		return
	}
	rel, err := filepath.Rel(r.dir, e.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		r.logger.Warn("Table is outside the history directory", "table", e.Path, "dir", r.dir)
		return
	}
	rel = filepath.ToSlash(rel)
	msg := fmt.Sprintf("%s %s key %s", e.Op, rel, e.Key)
	if _, err := r.Commit(msg, rel); err != nil {
		r.logger.Warn("Failed to snapshot table", "table", e.Path, "error", err)
	}
}

// Log returns up to n snapshots touching path, newest first. An empty path
// covers every file.
func (r *Recorder) Log(path string, n int) ([]Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts := &gogit.LogOptions{}
	if path != "" {
		p := filepath.ToSlash(path)
		opts.FileName = &p
	}
	iter, err := r.repo.Log(opts)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// No commit yet.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()
	var out []Commit
	for n <= 0 || len(out) < n {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		out = append(out, Commit{
			Hash:    c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			Author:  c.Author.Email,
			When:    c.Author.When,
		})
	}
	return out, nil
}

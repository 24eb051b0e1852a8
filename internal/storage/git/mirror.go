// Package git mirrors store mutations into a git repository at the data root.
//
// The mirror is an audit trail, not the version history: history entries
// remain plain files under history/ and are committed like any other file.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ignored lists paths never committed: in-flight writes and files holding
// secrets.
var ignored = []string{".tmp/", ".env", "config.yml", "users.yml"}

const queueSize = 256

// Author identifies the committer.
type Author struct {
	Name  string
	Email string
}

// Commit is one entry of the audit log.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

type change struct {
	op, name string
	ack      chan struct{} // Set for flush markers.
}

// Mirror commits the data root after each recorded change. It implements
// storage.Recorder.
type Mirror struct {
	repo   *gogit.Repository
	author Author
	queue  chan change
	done   chan struct{}

	mu sync.Mutex // Serializes repository access between commits and Log.

	qmu    sync.RWMutex
	closed bool
}

// Open initializes or opens the repository at dir and starts the committer.
func Open(ctx context.Context, dir string, author Author) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		if !errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("failed to open git repo: %w", err)
		}
		if repo, err = gogit.PlainInit(dir, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = author.Name
		cfg.User.Email = author.Email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
		slog.InfoContext(ctx, "Initialized git audit mirror", "dir", dir)
	}
	if err := writeGitignore(dir); err != nil {
		return nil, err
	}
	m := &Mirror{
		repo:   repo,
		author: author,
		queue:  make(chan change, queueSize),
		done:   make(chan struct{}),
	}
	go m.run()
	return m, nil
}

// Record queues a commit for a mutation. It never blocks: when the queue is
// full the change is folded into the next commit.
func (m *Mirror) Record(ctx context.Context, op, name string) {
	m.qmu.RLock()
	defer m.qmu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- change{op: op, name: name}:
	default:
		slog.WarnContext(ctx, "Git mirror queue full", "op", op, "name", name)
	}
}

// Close stops accepting changes and waits until queued ones are committed.
func (m *Mirror) Close() error {
	m.qmu.Lock()
	if m.closed {
		m.qmu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.qmu.Unlock()
	<-m.done
	return nil
}

// Log returns up to n of the most recent commits, newest first, after the
// changes queued so far are committed. A repository without commits yields an
// empty list.
func (m *Mirror) Log(ctx context.Context, n int) ([]Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	if err := m.flush(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Commit{}, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	iter, err := m.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()
	commits := []Commit{}
	for range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}
	return commits, nil
}

// flush waits until every change queued before the call is committed.
func (m *Mirror) flush(ctx context.Context) error {
	ack := make(chan struct{})
	m.qmu.RLock()
	if m.closed {
		m.qmu.RUnlock()
		return nil
	}
	select {
	case m.queue <- change{ack: ack}:
		m.qmu.RUnlock()
	case <-ctx.Done():
		m.qmu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for c := range m.queue {
		if c.ack != nil {
			close(c.ack)
			continue
		}
		if err := m.commit(c.op + ": " + c.name); err != nil {
			slog.Error("Git mirror commit failed", "op", c.op, "name", c.name, "err", err)
		}
	}
}

// commit stages every change in the worktree and commits it with msg. A clean
// tree is not an error.
func (m *Mirror) commit(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage files: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}
	sig := &object.Signature{Name: m.author.Name, Email: m.author.Email, When: time.Now()}
	if _, err := w.Commit(msg, &gogit.CommitOptions{All: true, Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func writeGitignore(dir string) error {
	p := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(p) //nolint:gosec // G304: path is constructed from dir
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}
	have := map[string]bool{}
	for l := range strings.SplitSeq(string(data), "\n") {
		have[strings.TrimSpace(l)] = true
	}
	var add []string
	for _, l := range ignored {
		if !have[l] {
			add = append(add, l)
		}
	}
	if len(add) == 0 {
		return nil
	}
	s := string(data)
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s += strings.Join(add, "\n") + "\n"
	if err := os.WriteFile(p, []byte(s), 0o644); err != nil { //nolint:gosec // G306: not a secret
		return fmt.Errorf("failed to write .gitignore: %w", err)
	}
	return nil
}

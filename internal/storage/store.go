// Package storage implements the versioned document store.
//
// Live documents sit directly under the store root; snapshots of earlier
// content sit in history/ as <base>_v<NNN>.<ext>. Every mutation of a
// document runs under a lock keyed by the document name, so version numbers
// are assigned without races while different documents proceed in parallel.
// Writes go through a temporary file and a rename so readers never observe
// partial content.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/maruel/mdcms/internal/naming"
)

// Recorder is notified after each successful mutation. Implementations must
// not block for long; they run on the caller's goroutine.
type Recorder interface {
	Record(ctx context.Context, op, name string)
}

// Outcome is the successful result of an update.
type Outcome int

const (
	// Updated means a snapshot was taken and the new content written.
	Updated Outcome = iota + 1
	// NoChange means the content was identical and nothing was written.
	NoChange
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case NoChange:
		return "no-change"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// UpdateResult is returned by Store.Update.
type UpdateResult struct {
	Outcome Outcome
	// Snapshot is the entry holding the previous content. Nil on NoChange.
	Snapshot *HistoryEntry
}

// Store owns the live documents under its root.
type Store struct {
	fs       billy.Filesystem
	locks    *keyedMutex
	history  *History
	recorder Recorder
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder sets the Recorder notified after each mutation.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// NewStore returns a Store rooted at the top of bfs.
//
// A directory must be served by one Store at a time: temporary files left by
// an interrupted write are deleted here.
func NewStore(bfs billy.Filesystem, opts ...Option) (*Store, error) {
	if err := bfs.MkdirAll(historyDirName, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	n, err := removeStaleTemp(bfs)
	if err != nil {
		return nil, fmt.Errorf("failed to clean temp directory: %w", err)
	}
	if n > 0 {
		slog.Info("Removed interrupted writes", "count", n)
	}
	s := &Store{fs: bfs, locks: newKeyedMutex()}
	for _, o := range opts {
		o(s)
	}
	s.history = &History{
		fs:        bfs,
		locks:     s.locks,
		writeLive: s.writeLive,
		notify:    s.record,
	}
	return s, nil
}

// History returns the version history manager sharing this store's locks.
func (s *Store) History() *History {
	return s.history
}

// Create writes a new document. It fails with ErrAlreadyExists rather than
// overwrite a live document.
func (s *Store) Create(ctx context.Context, name string, content []byte) error {
	name, err := resolve("create", name)
	if err != nil {
		return err
	}
	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return opErr("create", name, err)
	}
	defer unlock()
	ok, err := exists(ctx, s.fs, name)
	if err != nil {
		return fault("create", name, err)
	}
	if ok {
		return opErr("create", name, ErrAlreadyExists)
	}
	if err := s.writeLive(ctx, name, content); err != nil {
		return fault("create", name, err)
	}
	slog.DebugContext(ctx, "Created document", "name", name, "size", len(content))
	s.record(ctx, "create", name)
	return nil
}

// Read returns the live content of a document.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	name, err := resolve("read", name)
	if err != nil {
		return nil, err
	}
	data, err := readFile(ctx, s.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, opErr("read", name, ErrNotFound)
		}
		return nil, fault("read", name, err)
	}
	return data, nil
}

// Update replaces the content of a document, preserving the previous content
// as the next history entry. Identical content yields NoChange and writes
// nothing.
func (s *Store) Update(ctx context.Context, name string, content []byte) (UpdateResult, error) {
	name, err := resolve("update", name)
	if err != nil {
		return UpdateResult{}, err
	}
	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return UpdateResult{}, opErr("update", name, err)
	}
	defer unlock()
	current, err := readFile(ctx, s.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return UpdateResult{}, opErr("update", name, ErrNotFound)
		}
		return UpdateResult{}, fault("update", name, err)
	}
	if !naming.KindOf(name).Versionable() {
		return UpdateResult{}, opErr("update", name, ErrUnsupported)
	}
	if bytes.Equal(current, content) {
		return UpdateResult{Outcome: NoChange}, nil
	}
	snap, err := s.history.snapshotLocked(ctx, "update", name, current)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := s.writeLive(ctx, name, content); err != nil {
		return UpdateResult{}, fault("update", name, err)
	}
	slog.DebugContext(ctx, "Updated document", "name", name, "snapshot", snap.Name)
	s.record(ctx, "update", name)
	return UpdateResult{Outcome: Updated, Snapshot: &snap}, nil
}

// Delete removes the live document. Its history entries are kept.
func (s *Store) Delete(ctx context.Context, name string) error {
	name, err := resolve("delete", name)
	if err != nil {
		return err
	}
	unlock, err := s.locks.lock(ctx, name)
	if err != nil {
		return opErr("delete", name, err)
	}
	defer unlock()
	ok, err := exists(ctx, s.fs, name)
	if err != nil {
		return fault("delete", name, err)
	}
	if !ok {
		return opErr("delete", name, ErrNotFound)
	}
	if err := s.fs.Remove(name); err != nil {
		return fault("delete", name, err)
	}
	slog.DebugContext(ctx, "Deleted document", "name", name)
	s.record(ctx, "delete", name)
	return nil
}

// Duplicate copies a text document to CopyName(name) and returns the new
// name. History is not copied.
func (s *Store) Duplicate(ctx context.Context, name string) (string, error) {
	name, err := resolve("duplicate", name)
	if err != nil {
		return "", err
	}
	// Renames are atomic, so reading the source without its lock yields one
	// complete version.
	content, err := readFile(ctx, s.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", opErr("duplicate", name, ErrNotFound)
		}
		return "", fault("duplicate", name, err)
	}
	if naming.KindOf(name) == naming.KindImage {
		return "", opErr("duplicate", name, ErrUnsupported)
	}
	target, err := naming.Resolve(naming.CopyName(name))
	if err != nil {
		return "", opErr("duplicate", name, err)
	}
	unlock, err := s.locks.lock(ctx, target)
	if err != nil {
		return "", opErr("duplicate", target, err)
	}
	defer unlock()
	ok, err := exists(ctx, s.fs, target)
	if err != nil {
		return "", fault("duplicate", target, err)
	}
	if ok {
		return "", opErr("duplicate", target, ErrAlreadyExists)
	}
	if err := s.writeLive(ctx, target, content); err != nil {
		return "", fault("duplicate", target, err)
	}
	slog.DebugContext(ctx, "Duplicated document", "name", name, "copy", target)
	s.record(ctx, "duplicate", target)
	return target, nil
}

// List returns the names of the documents under the root in directory order.
// Directories and files that are not valid document names are skipped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := listDirectory(ctx, s.fs, ".", "")
	if err != nil {
		return nil, fault("list", ".", err)
	}
	out := names[:0]
	for _, n := range names {
		if naming.Validate(n) == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// Restore makes a history entry the live content. See History.Restore.
func (s *Store) Restore(ctx context.Context, name, entry string) (RestoreResult, error) {
	return s.history.Restore(ctx, name, entry)
}

// resolve validates name and reports failures as an *Error for op.
func resolve(op, name string) (string, error) {
	n, err := naming.Resolve(name)
	if err != nil {
		return "", opErr(op, name, err)
	}
	return n, nil
}

func (s *Store) writeLive(ctx context.Context, name string, data []byte) error {
	return writeFileAtomic(ctx, s.fs, name, data)
}

func (s *Store) record(ctx context.Context, op, name string) {
	if s.recorder != nil {
		s.recorder.Record(ctx, op, name)
	}
}

package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/maruel/mdcms/internal/naming"
)

// HistoryEntry describes one snapshot of a document.
type HistoryEntry struct {
	Name     string    `json:"name"`
	Document string    `json:"document"`
	Version  int       `json:"version"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// RestoreResult reports what a restore consumed and what it preserved.
type RestoreResult struct {
	// Restored is the entry whose content is now live. It no longer exists.
	Restored HistoryEntry `json:"restored"`
	// Snapshot holds the content that was live before the restore.
	Snapshot HistoryEntry `json:"snapshot"`
}

// History owns the history/ directory: version numbering, snapshots and
// restore. It shares the per-document locks of the Store that created it.
type History struct {
	fs        billy.Filesystem
	locks     *keyedMutex
	writeLive func(ctx context.Context, name string, data []byte) error
	notify    func(ctx context.Context, op, name string)
}

// List returns the history entries of a document ordered by version.
//
// The result is a point-in-time view; it can be stale by the time it is used.
func (h *History) List(ctx context.Context, name string) ([]HistoryEntry, error) {
	name, err := resolve("history", name)
	if err != nil {
		return nil, err
	}
	entries, err := h.list(ctx, name)
	if err != nil {
		return nil, fault("history", name, err)
	}
	return entries, nil
}

// NextVersionPath returns the path, relative to the store root, the next
// snapshot of name would be written to.
func (h *History) NextVersionPath(ctx context.Context, name string) (string, error) {
	name, err := resolve("next-version", name)
	if err != nil {
		return "", err
	}
	v, err := h.nextVersion(ctx, "next-version", name)
	if err != nil {
		return "", err
	}
	return h.entryPath(name, v), nil
}

// Snapshot writes content as the next version of name.
func (h *History) Snapshot(ctx context.Context, name string, content []byte) (HistoryEntry, error) {
	name, err := resolve("snapshot", name)
	if err != nil {
		return HistoryEntry{}, err
	}
	if !naming.KindOf(name).Versionable() {
		return HistoryEntry{}, opErr("snapshot", name, ErrUnsupported)
	}
	unlock, err := h.locks.lock(ctx, name)
	if err != nil {
		return HistoryEntry{}, opErr("snapshot", name, err)
	}
	defer unlock()
	e, err := h.snapshotLocked(ctx, "snapshot", name, content)
	if err != nil {
		return HistoryEntry{}, err
	}
	h.notify(ctx, "snapshot", name)
	return e, nil
}

// Read returns the content of one history entry of name.
func (h *History) Read(ctx context.Context, name, entry string) ([]byte, error) {
	name, err := resolve("read-history", name)
	if err != nil {
		return nil, err
	}
	v, err := h.resolveEntry("read-history", name, entry)
	if err != nil {
		return nil, err
	}
	data, err := readFile(ctx, h.fs, h.entryPath(name, v))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, versionErr("read-history", entry, v, ErrNotFound)
		}
		return nil, fault("read-history", entry, err)
	}
	return data, nil
}

// Restore makes entry the live content of name.
//
// The live content is first preserved as a new snapshot, then the document
// is overwritten, then entry is deleted. Each write syncs the file and, on a
// filesystem bound to disk, its directory before the next step starts, so an
// interruption leaves at worst an extra snapshot and the call can be repeated.
func (h *History) Restore(ctx context.Context, name, entry string) (RestoreResult, error) {
	name, err := resolve("restore", name)
	if err != nil {
		return RestoreResult{}, err
	}
	v, err := h.resolveEntry("restore", name, entry)
	if err != nil {
		return RestoreResult{}, err
	}
	if !naming.KindOf(name).Versionable() {
		return RestoreResult{}, opErr("restore", name, ErrUnsupported)
	}
	unlock, err := h.locks.lock(ctx, name)
	if err != nil {
		return RestoreResult{}, opErr("restore", name, err)
	}
	defer unlock()

	current, err := readFile(ctx, h.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RestoreResult{}, opErr("restore", name, ErrNotFound)
		}
		return RestoreResult{}, fault("restore", name, err)
	}
	entryPath := h.entryPath(name, v)
	restored, err := readFile(ctx, h.fs, entryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RestoreResult{}, versionErr("restore", entry, v, ErrNotFound)
		}
		return RestoreResult{}, fault("restore", entry, err)
	}
	snap, err := h.snapshotLocked(ctx, "restore", name, current)
	if err != nil {
		return RestoreResult{}, err
	}
	if err := h.writeLive(ctx, name, restored); err != nil {
		return RestoreResult{}, fault("restore", name, err)
	}
	if err := h.fs.Remove(entryPath); err != nil {
		return RestoreResult{}, fault("restore", entry, err)
	}
	slog.InfoContext(ctx, "Restored document", "name", name, "entry", entry, "snapshot", snap.Name)
	h.notify(ctx, "restore", name)
	return RestoreResult{
		Restored: HistoryEntry{Name: entry, Document: name, Version: v, Size: int64(len(restored))},
		Snapshot: snap,
	}, nil
}

// snapshotLocked computes the next version and writes content to it. The
// caller holds the lock for name.
func (h *History) snapshotLocked(ctx context.Context, op, name string, content []byte) (HistoryEntry, error) {
	v, err := h.nextVersion(ctx, op, name)
	if err != nil {
		return HistoryEntry{}, err
	}
	p := h.entryPath(name, v)
	if err := writeFileAtomic(ctx, h.fs, p, content); err != nil {
		return HistoryEntry{}, fault(op, name, err)
	}
	slog.DebugContext(ctx, "Wrote snapshot", "name", name, "version", v)
	return HistoryEntry{
		Name:     path.Base(p),
		Document: name,
		Version:  v,
		Size:     int64(len(content)),
		Modified: time.Now(),
	}, nil
}

func (h *History) nextVersion(ctx context.Context, op, name string) (int, error) {
	entries, err := h.list(ctx, name)
	if err != nil {
		return 0, fault(op, name, err)
	}
	next := 0
	if len(entries) > 0 {
		next = entries[len(entries)-1].Version + 1
	}
	if next > naming.MaxVersion {
		return 0, versionErr(op, name, next, ErrVersionOverflow)
	}
	return next, nil
}

func (h *History) list(ctx context.Context, name string) ([]HistoryEntry, error) {
	names, err := listDirectory(ctx, h.fs, historyDirName, naming.HistoryPattern(name))
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(names))
	for _, n := range names {
		v, ok := naming.EntryOf(name, n)
		if !ok {
			continue
		}
		e := HistoryEntry{Name: n, Document: name, Version: v}
		if info, err := h.fs.Stat(path.Join(historyDirName, n)); err == nil {
			e.Size = info.Size()
			e.Modified = info.ModTime()
		}
		entries = append(entries, e)
	}
	// The fixed-width suffix makes this the same order as a name sort.
	slices.SortFunc(entries, func(a, b HistoryEntry) int { return a.Version - b.Version })
	return entries, nil
}

func (h *History) resolveEntry(op, name, entry string) (int, error) {
	if err := naming.Validate(entry); err != nil {
		return 0, opErr(op, entry, err)
	}
	v, ok := naming.EntryOf(name, entry)
	if !ok {
		return 0, opErr(op, entry, ErrNotFound)
	}
	return v, nil
}

func (h *History) entryPath(name string, version int) string {
	base, ext := naming.Split(name)
	return path.Join(historyDirName, naming.HistoryName(base, version, ext))
}

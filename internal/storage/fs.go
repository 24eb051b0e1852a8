// Thin helpers over the backing billy.Filesystem.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
)

const (
	historyDirName = "history"
	tmpDirName     = ".tmp"
)

// OpenDir returns a filesystem bound to dir, creating it if needed.
func OpenDir(dir string) (billy.Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return osfs.New(dir, osfs.WithBoundOS()), nil
}

// listDirectory returns the names of regular files directly under dir. When
// pattern is not empty, only names matching it (path.Match syntax) are kept.
// A missing directory is empty.
func listDirectory(ctx context.Context, bfs billy.Filesystem, dir, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := bfs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !info.Mode().IsRegular() {
			continue
		}
		if pattern != "" {
			ok, err := path.Match(pattern, info.Name())
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		names = append(names, info.Name())
	}
	return names, nil
}

// readFile reads a whole file. The returned error matches fs.ErrNotExist when
// the file is missing.
func readFile(ctx context.Context, bfs billy.Filesystem, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := bfs.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	return data, errors.Join(err, f.Close())
}

// exists reports whether name is a regular file.
func exists(ctx context.Context, bfs billy.Filesystem, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := bfs.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// writeFileAtomic writes data to a temporary file, syncs it when the
// filesystem supports it and renames it over name. Readers observe either the
// old or the new content.
func writeFileAtomic(ctx context.Context, bfs billy.Filesystem, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := bfs.MkdirAll(tmpDirName, 0o755); err != nil {
		return fmt.Errorf("failed to create tmp directory: %w", err)
	}
	if dir := path.Dir(name); dir != "." {
		if err := bfs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := bfs.Join(tmpDirName, uuid.NewString())
	f, err := bfs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	_, err = f.Write(data)
	if err == nil {
		if s, ok := f.(interface{ Sync() error }); ok {
			err = s.Sync()
		}
	}
	if err = errors.Join(err, f.Close()); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), bfs.Remove(tmp))
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(err, bfs.Remove(tmp))
	}
	if err := bfs.Rename(tmp, name); err != nil {
		return errors.Join(fmt.Errorf("failed to rename temp file: %w", err), bfs.Remove(tmp))
	}
	if err := syncDir(bfs, path.Dir(name)); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}

// syncDir flushes dir so a rename into it survives a crash. Only filesystems
// bound to the OS have anything to flush; on others it is a no-op.
func syncDir(bfs billy.Filesystem, dir string) error {
	b, ok := bfs.(*osfs.BoundOS)
	if !ok || runtime.GOOS == "windows" {
		// Windows cannot open a directory for syncing.
		return nil
	}
	d, err := os.Open(filepath.Join(b.Root(), filepath.FromSlash(dir))) //nolint:gosec // G304: dir is a store-relative path
	if err != nil {
		return err
	}
	return errors.Join(d.Sync(), d.Close())
}

// removeStaleTemp deletes what interrupted writes left in the temp directory
// and returns how many files it removed.
func removeStaleTemp(bfs billy.Filesystem) (int, error) {
	names, err := listDirectory(context.Background(), bfs, tmpDirName, "")
	if err != nil {
		return 0, err
	}
	for i, n := range names {
		if err := bfs.Remove(bfs.Join(tmpDirName, n)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return i, err
		}
	}
	return len(names), nil
}

// Package identity verifies user credentials.
//
// Credentials are kept in a YAML file mapping each username to its bcrypt
// hash, the same shape as a hand-edited users.yml.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUserExists is returned when adding a username that is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for an unusable username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// CredentialStore verifies a username/password pair.
type CredentialStore interface {
	Verify(username, password string) bool
}

// FileStore is a CredentialStore persisted to a YAML file.
type FileStore struct {
	path string

	mu     sync.RWMutex
	hashes map[string]string
}

// OpenFileStore loads path. A missing file is an empty store; it is created on
// the first Add.
func OpenFileStore(path string) (*FileStore, error) {
	f := &FileStore{path: path, hashes: map[string]string{}}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the server configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.hashes); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if f.hashes == nil {
		f.hashes = map[string]string{}
	}
	return f, nil
}

// Verify reports whether password matches the stored hash for username.
func (f *FileStore) Verify(username, password string) bool {
	f.mu.RLock()
	hash, ok := f.hashes[username]
	f.mu.RUnlock()
	if !ok {
		// Spend comparable time so unknown usernames are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Add registers a new user and persists the file.
func (f *FileStore) Add(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.ContainsAny(username, ":\n") {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes.
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.hashes[username]; ok {
		return ErrUserExists
	}
	f.hashes[username] = string(hash)
	if err := f.save(); err != nil {
		delete(f.hashes, username)
		return err
	}
	return nil
}

// Len returns the number of registered users.
func (f *FileStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.hashes)
}

// save writes the file through a temporary file and a rename. The caller
// holds mu.
func (f *FileStore) save() error {
	data, err := yaml.Marshal(f.hashes)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".users-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if err = errors.Join(err, tmp.Close()); err != nil {
		return errors.Join(fmt.Errorf("failed to write credentials: %w", err), os.Remove(tmp.Name()))
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.Join(err, os.Remove(tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace credentials: %w", err), os.Remove(tmp.Name()))
	}
	return nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.MinCost)

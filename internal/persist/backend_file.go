package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/pslog"
)

// ErrLocked indicates another process holds the state directory.
var ErrLocked = errors.New("state directory is locked by another process")

const lockFileName = ".lock"

// FileBackend stores one <key>.json file per key in a locked directory.
type FileBackend struct {
	dir  string
	lock *os.File
	log  pslog.Logger
}

// OpenFileBackend creates dir if needed and takes an exclusive advisory lock on it.
func OpenFileBackend(dir string, logger pslog.Logger) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	lock, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := lockFile(lock); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	return &FileBackend{dir: dir, lock: lock, log: logger}, nil
}

// Dir returns the state directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

// Get reads the document stored under key.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.pathForKey(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set atomically replaces the document stored under key.
func (b *FileBackend) Set(_ context.Context, key string, data []byte) error {
	path := b.pathForKey(key)
	tmp, err := os.CreateTemp(b.dir, "state-*.json")
	if err != nil {
		return err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return err
	}
	if b.log != nil {
		b.log.Trace("state write ok", "key", key, "bytes", len(data))
	}
	return nil
}

// Delete removes the document stored under key.
func (b *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.pathForKey(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close releases the directory lock.
func (b *FileBackend) Close() error {
	if b.lock == nil {
		return nil
	}
	err := unlockFile(b.lock)
	if cerr := b.lock.Close(); err == nil {
		err = cerr
	}
	b.lock = nil
	return err
}

func (b *FileBackend) pathForKey(key string) string {
	name := sanitize(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(b.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

package persist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// Store persists the retention set, the session snapshot and the installed flag.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     pslog.Logger
	now     func() time.Time
}

// NewStore opens a file-backed store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger opens a file-backed store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	backend, err := OpenFileBackend(dir, logger)
	if err != nil {
		return nil, err
	}
	return NewStoreWithBackend(backend, logger), nil
}

// NewMemoryStore constructs a store that never touches disk.
func NewMemoryStore(logger pslog.Logger) *Store {
	return NewStoreWithBackend(NewMemoryBackend(), logger)
}

// NewStoreWithBackend wraps an arbitrary backend.
func NewStoreWithBackend(backend Backend, logger pslog.Logger) *Store {
	return &Store{backend: backend, log: logger, now: time.Now}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// SaveRetentionSet overwrites the persisted retention set.
func (s *Store) SaveRetentionSet(ctx context.Context, set RetentionSet) error {
	if set.Entries == nil {
		set.Entries = []RetainedEntry{}
	}
	if err := s.put(ctx, KeyRetainedEntries, set); err != nil {
		s.warn("retention save failed", "err", err)
		return err
	}
	if s.log != nil {
		s.log.Debug("retention save ok", "entries", len(set.Entries))
	}
	return nil
}

// LoadRetentionSet returns the persisted retention set, or an empty set when
// it is missing or unreadable.
func (s *Store) LoadRetentionSet(ctx context.Context) RetentionSet {
	var set RetentionSet
	ok, err := s.get(ctx, KeyRetainedEntries, &set)
	if err != nil {
		s.warn("retention load failed", "err", err)
		return RetentionSet{}
	}
	if !ok {
		return RetentionSet{}
	}
	return set
}

// SaveSessionSnapshot replaces the persisted session snapshot.
func (s *Store) SaveSessionSnapshot(ctx context.Context, snap SessionSnapshot) error {
	if snap.Version == 0 {
		snap.Version = SnapshotVersion
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = s.now().UTC()
	}
	if snap.Tabs == nil {
		snap.Tabs = []SnapshotTab{}
	}
	if err := s.put(ctx, KeySessionSnapshot, snap); err != nil {
		s.warn("snapshot save failed", "err", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("snapshot save ok", "tabs", len(snap.Tabs))
	}
	return nil
}

// LoadSessionSnapshot returns the persisted snapshot, or nil when it is
// missing or unreadable.
func (s *Store) LoadSessionSnapshot(ctx context.Context) *SessionSnapshot {
	var snap SessionSnapshot
	ok, err := s.get(ctx, KeySessionSnapshot, &snap)
	if err != nil {
		s.warn("snapshot load failed", "err", err)
		return nil
	}
	if !ok {
		if s.log != nil {
			s.log.Debug("snapshot load miss")
		}
		return nil
	}
	return &snap
}

// MarkInstalled records the installed flag and reports whether this is the first run.
func (s *Store) MarkInstalled(ctx context.Context) (bool, error) {
	if s.Installed(ctx) {
		return false, nil
	}
	if err := s.put(ctx, KeyInstalledFlag, installedFlag{Installed: true, InstalledAt: s.now().UTC()}); err != nil {
		s.warn("installed flag save failed", "err", err)
		return false, err
	}
	return true, nil
}

// Installed reports whether the installed flag is set.
func (s *Store) Installed(ctx context.Context) bool {
	var flag installedFlag
	ok, err := s.get(ctx, KeyInstalledFlag, &flag)
	if err != nil {
		s.warn("installed flag load failed", "err", err)
		return false
	}
	return ok && flag.Installed
}

func (s *Store) put(ctx context.Context, key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Set(ctx, key, data)
}

func (s *Store) get(ctx context.Context, key string, out any) (bool, error) {
	s.mu.Lock()
	data, ok, err := s.backend.Get(ctx, key)
	s.mu.Unlock()
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) warn(msg string, kv ...any) {
	if s.log != nil {
		s.log.Warn(msg, kv...)
	}
}

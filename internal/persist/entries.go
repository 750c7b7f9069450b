package persist

import (
	"time"

	"pkt.systems/quicktext/schema"
)

// Persisted keys.
const (
	KeyRetainedEntries = "retained-entries"
	KeySessionSnapshot = "open-tabs-snapshot"
	KeyInstalledFlag   = "installed-flag"
)

// SnapshotVersion is the current session snapshot format.
const SnapshotVersion = 1

// RetainedEntry is a file reference that survives restarts.
type RetainedEntry struct {
	ID           schema.RetentionID `json:"id"`
	Host         schema.HostKind    `json:"host"`
	Name         string             `json:"name"`
	Path         string             `json:"path"`
	LastAccessed time.Time          `json:"last_accessed"`
}

// Ref converts the entry back into a file reference.
func (e RetainedEntry) Ref() schema.FileRef {
	return schema.FileRef{Host: e.Host, Name: e.Name, Path: e.Path, RetentionID: e.ID}
}

// RetentionSet is the ordered list of retained entries.
type RetentionSet struct {
	Entries []RetainedEntry `json:"entries"`
}

// Find returns the entry with the given id.
func (s RetentionSet) Find(id schema.RetentionID) (RetainedEntry, bool) {
	for _, entry := range s.Entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return RetainedEntry{}, false
}

// Upsert replaces an entry with the same id in place or appends it.
func (s *RetentionSet) Upsert(entry RetainedEntry) {
	for i := range s.Entries {
		if s.Entries[i].ID == entry.ID {
			s.Entries[i] = entry
			return
		}
	}
	s.Entries = append(s.Entries, entry)
}

// Remove deletes the entry with the given id and reports whether it existed.
func (s *RetentionSet) Remove(id schema.RetentionID) bool {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// IDs lists entry ids in order.
func (s RetentionSet) IDs() []schema.RetentionID {
	ids := make([]schema.RetentionID, 0, len(s.Entries))
	for _, entry := range s.Entries {
		ids = append(ids, entry.ID)
	}
	return ids
}

// Clone returns a deep copy.
func (s RetentionSet) Clone() RetentionSet {
	if len(s.Entries) == 0 {
		return RetentionSet{}
	}
	out := make([]RetainedEntry, len(s.Entries))
	copy(out, s.Entries)
	return RetentionSet{Entries: out}
}

// SnapshotTab captures one tab for restoration.
type SnapshotTab struct {
	Content     string             `json:"content"`
	CustomName  schema.TabName     `json:"custom_name,omitempty"`
	Dirty       bool               `json:"dirty"`
	EntryName   string             `json:"entry_name,omitempty"`
	RetentionID schema.RetentionID `json:"retention_id,omitempty"`
	IsCurrent   bool               `json:"is_current,omitempty"`
}

// SessionSnapshot captures the full open-tab state.
type SessionSnapshot struct {
	Version int           `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Tabs    []SnapshotTab `json:"tabs"`
}

// Empty reports whether the snapshot holds no tabs.
func (s *SessionSnapshot) Empty() bool {
	return s == nil || len(s.Tabs) == 0
}

type installedFlag struct {
	Installed   bool      `json:"installed"`
	InstalledAt time.Time `json:"installed_at"`
}

package schema

// TabID identifies an open document for the lifetime of the process.
type TabID int64

// TabName is the user-facing name of a tab.
type TabName string

// RetentionID is the durable key under which a file reference survives restarts.
type RetentionID string

// HostKind names a host file-access model.
type HostKind string

const (
	// HostNative accesses the OS filesystem by absolute path.
	HostNative HostKind = "native"
	// HostSandbox only touches files granted through a picker or launch request.
	HostSandbox HostKind = "sandbox"
)

// EntryMode selects the picker dialog flavour.
type EntryMode string

const (
	// EntryModeOpen picks existing files.
	EntryModeOpen EntryMode = "open"
	// EntryModeSave picks a destination for a save.
	EntryModeSave EntryMode = "save"
)

// FileRef is an opaque handle to a backing file.
type FileRef struct {
	Host        HostKind    `json:"host"`
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	RetentionID RetentionID `json:"retention_id,omitempty"`
}

// SameFile reports whether both references point at the same file on the same host.
func (r FileRef) SameFile(other FileRef) bool {
	return r.Host == other.Host && r.Path == other.Path
}

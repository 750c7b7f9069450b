package schema

import "errors"

var (
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrNoTabs indicates the registry is empty.
	ErrNoTabs = errors.New("no tabs")
	// ErrInvalidIndex indicates a tab position outside the tab order.
	ErrInvalidIndex = errors.New("invalid tab index")
	// ErrInvalidName indicates an unusable tab name.
	ErrInvalidName = errors.New("invalid tab name")
	// ErrAlreadyReconciled indicates launch reconciliation already ran.
	ErrAlreadyReconciled = errors.New("launch already reconciled")
	// ErrNoPicker indicates no file picker is available for the host.
	ErrNoPicker = errors.New("no file picker available")
	// ErrNotGranted indicates a sandbox path outside the granted root.
	ErrNotGranted = errors.New("file access not granted")
	// ErrNoBackingFile indicates a tab without a backing file.
	ErrNoBackingFile = errors.New("tab has no backing file")
	// ErrNoHost indicates the registry was built without a host adapter.
	ErrNoHost = errors.New("no host adapter")
	// ErrTabInError indicates a tab whose backing file never loaded.
	ErrTabInError = errors.New("tab backing file failed to load")
	// ErrUnsavedChanges indicates an operation that would discard edits.
	ErrUnsavedChanges = errors.New("tab has unsaved changes")
	// ErrUnknownHost indicates an unsupported host mode.
	ErrUnknownHost = errors.New("unknown host mode")
)

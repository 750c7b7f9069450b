package schema

// LaunchFile is a file handed to the process at launch.
type LaunchFile struct {
	Ref FileRef
}

// LaunchRequest carries the launch-time inputs for reconciliation.
type LaunchRequest struct {
	Files       []LaunchFile
	NewDocument bool
}

// LaunchSource names the input that produced the initial tab set.
type LaunchSource string

const (
	LaunchSourceLaunch      LaunchSource = "launch"
	LaunchSourceNewDocument LaunchSource = "new-document"
	LaunchSourceSnapshot    LaunchSource = "snapshot"
	LaunchSourceRetained    LaunchSource = "retained"
	LaunchSourceEmpty       LaunchSource = "empty"
)

// ReconcileResult reports how the initial tab set was built.
type ReconcileResult struct {
	Source LaunchSource
	Tabs   int
	Pruned []RetentionID
}

// NewTabRequest creates an untitled tab.
type NewTabRequest struct {
	Content    string
	CustomName TabName
}

// CloseDecision is the user's answer when closing a tab with unsaved edits.
type CloseDecision string

const (
	CloseSave    CloseDecision = "save"
	CloseDiscard CloseDecision = "discard"
	CloseCancel  CloseDecision = "cancel"
)

// CloseResult reports the outcome of a close request.
type CloseResult struct {
	Closed    bool
	Cancelled bool
	ActiveTab TabID
}

// SaveResult reports the outcome of a save request.
type SaveResult struct {
	Tab       TabSnapshot
	Cancelled bool
}

// ListResponse returns tabs in display order.
type ListResponse struct {
	Tabs      []TabSnapshot
	ActiveTab TabID
}

package schema

// TabEventType identifies a registry notification.
type TabEventType string

const (
	// TabEventCreated fires when a tab is appended.
	TabEventCreated TabEventType = "tab-created"
	// TabEventClosed fires when a tab is removed.
	TabEventClosed TabEventType = "tab-closed"
	// TabEventContentChanged fires when a tab's text changes.
	TabEventContentChanged TabEventType = "tab-content-changed"
	// TabEventSaved fires after a successful write.
	TabEventSaved TabEventType = "tab-saved"
	// TabEventRenamed fires when the custom name changes.
	TabEventRenamed TabEventType = "tab-renamed"
	// TabEventPathChanged fires when the backing file changes.
	TabEventPathChanged TabEventType = "tab-path-changed"
	// TabEventActivated fires when the current tab changes.
	TabEventActivated TabEventType = "active-tab-changed"
	// TabEventReordered fires when the tab order changes.
	TabEventReordered TabEventType = "tab-reordered"
	// TabEventLoadingFile fires before a batch of files is read.
	TabEventLoadingFile TabEventType = "loading-file"
	// TabEventFilesystemError fires when a read or write fails.
	TabEventFilesystemError TabEventType = "filesystem-error"
)

// TabEvent is emitted by the registry after every mutation.
type TabEvent struct {
	Type      TabEventType
	Tab       TabSnapshot
	ActiveTab TabID
	Order     []TabID
	Files     int
	Err       string
}

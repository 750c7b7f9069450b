package schema

// TabStatus describes whether a tab's backing file could be loaded.
type TabStatus string

const (
	// TabStatusOK indicates a usable tab.
	TabStatusOK TabStatus = "ok"
	// TabStatusError indicates the backing file could not be read.
	TabStatusError TabStatus = "error"
)

// TabSnapshot is a read-only view of tab state for UI collaborators.
type TabSnapshot struct {
	ID         TabID
	Name       TabName
	CustomName TabName
	Ref        *FileRef
	Content    string
	Dirty      bool
	Status     TabStatus
	Error      string
	Active     bool
}

// HasFile reports whether the tab is backed by a file.
func (t TabSnapshot) HasFile() bool {
	return t.Ref != nil
}

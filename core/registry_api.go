package core

import (
	"context"

	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// Registry is the single writer of open-document state.
type Registry interface {
	NewTab(ctx context.Context, req schema.NewTabRequest) (schema.TabSnapshot, error)
	OpenFile(ctx context.Context, ref schema.FileRef) (schema.TabSnapshot, error)
	OpenFiles(ctx context.Context, refs []schema.FileRef) ([]schema.TabSnapshot, error)
	Open(ctx context.Context) ([]schema.TabSnapshot, error)
	Close(ctx context.Context, id schema.TabID) (schema.CloseResult, error)
	CloseCurrent(ctx context.Context) (schema.CloseResult, error)
	Save(ctx context.Context, id schema.TabID) (schema.SaveResult, error)
	SaveAs(ctx context.Context, id schema.TabID) (schema.SaveResult, error)
	SetContent(ctx context.Context, id schema.TabID, text string) (schema.TabSnapshot, error)
	Rename(ctx context.Context, id schema.TabID, name string) (schema.TabSnapshot, error)
	Reload(ctx context.Context, id schema.TabID) (schema.TabSnapshot, error)
	Activate(ctx context.Context, id schema.TabID) (schema.TabSnapshot, error)
	Next(ctx context.Context) (schema.TabSnapshot, error)
	Previous(ctx context.Context) (schema.TabSnapshot, error)
	Reorder(ctx context.Context, from, to int) error
	PromptAllUnsaved(ctx context.Context, onComplete func()) (bool, error)
	List(ctx context.Context) schema.ListResponse
	Get(ctx context.Context, id schema.TabID) (schema.TabSnapshot, error)
	Current(ctx context.Context) (schema.TabSnapshot, bool)
	FilesToRetain(ctx context.Context) []schema.FileRef
	RetainOpenFiles(ctx context.Context) error
	Snapshot(ctx context.Context) persist.SessionSnapshot
	Reconcile(ctx context.Context, req schema.LaunchRequest) (schema.ReconcileResult, error)
}

// Confirmer asks the user what to do with unsaved changes.
type Confirmer interface {
	ConfirmClose(ctx context.Context, tab schema.TabSnapshot) (schema.CloseDecision, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, tab schema.TabSnapshot) (schema.CloseDecision, error)

// ConfirmClose calls f.
func (f ConfirmerFunc) ConfirmClose(ctx context.Context, tab schema.TabSnapshot) (schema.CloseDecision, error) {
	return f(ctx, tab)
}

// EntryStore persists session snapshots.
type EntryStore interface {
	LoadSessionSnapshot(ctx context.Context) *persist.SessionSnapshot
	SaveSessionSnapshot(ctx context.Context, snap persist.SessionSnapshot) error
}

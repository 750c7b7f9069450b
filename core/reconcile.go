package core

import (
	"context"
	"errors"

	"pkt.systems/quicktext/internal/logx"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// Reconcile builds the initial tab set once per registry. Launch files win
// over a new-document request, which wins over the persisted session.
func (r *registry) Reconcile(ctx context.Context, req schema.LaunchRequest) (schema.ReconcileResult, error) {
	if ctx == nil {
		return schema.ReconcileResult{}, errors.New("missing context")
	}
	if !r.reconciled.CompareAndSwap(false, true) {
		return schema.ReconcileResult{}, schema.ErrAlreadyReconciled
	}
	log := logx.Ctx(ctx)
	result, err := r.reconcile(ctx, req)
	if err != nil {
		log.Warn("registry reconcile failed", "err", err)
		return schema.ReconcileResult{}, err
	}
	if r.tabCount() == 0 {
		if _, err := r.NewTab(ctx, schema.NewTabRequest{}); err != nil {
			return schema.ReconcileResult{}, err
		}
		result.Source = schema.LaunchSourceEmpty
	}
	r.ensureCurrent()
	result.Tabs = r.tabCount()
	log.Info("registry reconciled", "source", string(result.Source), "tabs", result.Tabs, "pruned", len(result.Pruned))
	return result, nil
}

func (r *registry) reconcile(ctx context.Context, req schema.LaunchRequest) (schema.ReconcileResult, error) {
	if len(req.Files) > 0 {
		refs := make([]schema.FileRef, 0, len(req.Files))
		for _, file := range req.Files {
			refs = append(refs, file.Ref)
		}
		if _, err := r.OpenFiles(ctx, refs); err != nil {
			return schema.ReconcileResult{}, err
		}
		return schema.ReconcileResult{Source: schema.LaunchSourceLaunch}, nil
	}
	if req.NewDocument {
		if _, err := r.NewTab(ctx, schema.NewTabRequest{}); err != nil {
			return schema.ReconcileResult{}, err
		}
		return schema.ReconcileResult{Source: schema.LaunchSourceNewDocument}, nil
	}
	var snap *persist.SessionSnapshot
	if r.store != nil {
		snap = r.store.LoadSessionSnapshot(ctx)
	}
	if !snap.Empty() {
		r.restoreSnapshot(ctx, snap)
		return schema.ReconcileResult{Source: schema.LaunchSourceSnapshot}, nil
	}
	return r.restoreRetained(ctx)
}

// restoreSnapshot restores tabs one at a time so order is preserved and a
// failure only degrades its own tab.
func (r *registry) restoreSnapshot(ctx context.Context, snap *persist.SessionSnapshot) {
	log := logx.Ctx(ctx)
	tabs := make([]*tab, 0, len(snap.Tabs))
	var current schema.TabID
	degraded := 0
	for _, entry := range snap.Tabs {
		t := &tab{id: newTabID(), customName: entry.CustomName, status: schema.TabStatusOK}
		ref := r.resolveSnapshotRef(ctx, entry)
		if ref != nil && boundTo(tabs, *ref) {
			logx.WithRef(log, ref).Debug("registry snapshot file already bound")
			ref = nil
		}
		text, ok := "", false
		if ref != nil {
			var err error
			text, err = r.host.Read(ctx, *ref)
			if err != nil {
				logx.WithRef(log, ref).Debug("registry snapshot file unreadable", "err", err)
			} else {
				ok = true
			}
		}
		switch {
		case ok:
			t.ref = ref
			t.content = text
			t.markPersisted(text)
			t.dirty = entry.Dirty
		case entry.RetentionID != "" || entry.EntryName != "":
			degraded++
			t.content = entry.Content
			t.dirty = true
		default:
			t.content = entry.Content
			if entry.Dirty {
				t.dirty = true
			} else {
				t.markPersisted(entry.Content)
			}
		}
		if entry.IsCurrent {
			current = t.id
		}
		tabs = append(tabs, t)
	}
	if current == 0 && len(tabs) > 0 {
		current = tabs[len(tabs)-1].id
	}
	r.mu.Lock()
	events := r.appendTabsLocked(tabs, current)
	r.mu.Unlock()
	r.emit(events...)
	log.Debug("registry snapshot restored", "tabs", len(tabs), "degraded", degraded)
	r.syncRetention(ctx)
}

// resolveSnapshotRef returns a revalidated reference for a snapshot tab.
// Older snapshots only carry the entry name.
func (r *registry) resolveSnapshotRef(ctx context.Context, entry persist.SnapshotTab) *schema.FileRef {
	id := entry.RetentionID
	if id == "" && entry.EntryName != "" {
		for _, retained := range r.host.Retained(ctx) {
			if retained.Name == entry.EntryName {
				id = retained.ID
				break
			}
		}
	}
	if id == "" {
		return nil
	}
	ref, err := r.host.Restore(ctx, id)
	if err != nil || ref == nil {
		return nil
	}
	if entry.EntryName != "" && ref.Name != entry.EntryName {
		return nil
	}
	if !r.host.Revalidate(ctx, *ref) {
		return nil
	}
	return ref
}

// restoreRetained opens every retained file that still exists and prunes the
// rest from the retention set.
func (r *registry) restoreRetained(ctx context.Context) (schema.ReconcileResult, error) {
	kind := r.host.Kind()
	var ids []schema.RetentionID
	for _, entry := range r.host.Retained(ctx) {
		if entry.Host == kind {
			ids = append(ids, entry.ID)
		}
	}
	if len(ids) == 0 {
		return schema.ReconcileResult{Source: schema.LaunchSourceEmpty}, nil
	}
	refs, err := restoreAll(ctx, r.host, ids, r.cfg.ReadConcurrency)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return schema.ReconcileResult{}, ctxErr
		}
		// Nothing is pruned when the set could not be checked.
		logx.Ctx(ctx).Warn("registry retained restore failed", "err", err)
		return schema.ReconcileResult{Source: schema.LaunchSourceEmpty}, nil
	}
	var (
		keep   []schema.FileRef
		pruned []schema.RetentionID
	)
	for i, ref := range refs {
		if ref == nil {
			pruned = append(pruned, ids[i])
			continue
		}
		keep = append(keep, *ref)
	}
	log := logx.Ctx(ctx)
	for _, id := range pruned {
		if err := r.host.Forget(ctx, id); err != nil {
			log.Warn("registry retention prune failed", "retention_id", string(id), "err", err)
		}
	}
	if len(keep) == 0 {
		return schema.ReconcileResult{Source: schema.LaunchSourceEmpty, Pruned: pruned}, nil
	}
	if _, err := r.OpenFiles(ctx, keep); err != nil {
		return schema.ReconcileResult{}, err
	}
	return schema.ReconcileResult{Source: schema.LaunchSourceRetained, Pruned: pruned}, nil
}

// boundTo reports whether one of tabs is already backed by ref.
func boundTo(tabs []*tab, ref schema.FileRef) bool {
	for _, t := range tabs {
		if t.ref != nil && t.ref.SameFile(ref) {
			return true
		}
	}
	return false
}

func (r *registry) tabCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// ensureCurrent makes the last tab current when no tab is.
func (r *registry) ensureCurrent() {
	r.mu.Lock()
	var events []schema.TabEvent
	if _, ok := r.tabs[r.active]; !ok && len(r.order) > 0 {
		r.active = r.order[len(r.order)-1]
		events = append(events, r.eventLocked(schema.TabEventActivated, r.tabs[r.active].snapshot(r.cfg.UntitledName, true)))
	}
	r.mu.Unlock()
	r.emit(events...)
}

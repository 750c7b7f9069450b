package core

import (
	"context"
	"errors"

	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/logx"
	"pkt.systems/quicktext/schema"
)

func (r *registry) Open(ctx context.Context) ([]schema.TabSnapshot, error) {
	refs, err := r.host.ChooseEntry(ctx, host.ChooseRequest{Mode: schema.EntryModeOpen, Multiple: true})
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return r.OpenFiles(ctx, refs)
}

func (r *registry) OpenFile(ctx context.Context, ref schema.FileRef) (schema.TabSnapshot, error) {
	tabs, err := r.OpenFiles(ctx, []schema.FileRef{ref})
	if err != nil {
		return schema.TabSnapshot{}, err
	}
	return tabs[0], nil
}

// OpenFiles opens refs in input order. Unreadable files become tabs in error
// state and a file that is already open switches to its existing tab.
func (r *registry) OpenFiles(ctx context.Context, refs []schema.FileRef) ([]schema.TabSnapshot, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	if len(refs) == 0 {
		return nil, nil
	}
	log := logx.Ctx(ctx)

	r.mu.Lock()
	loading := r.eventLocked(schema.TabEventLoadingFile, schema.TabSnapshot{})
	r.mu.Unlock()
	loading.Files = len(refs)
	r.emit(loading)

	results := readAll(ctx, r.host, refs, r.cfg.ReadConcurrency)

	r.mu.Lock()
	var (
		created  []*tab
		failed   []*tab
		activate schema.TabID
	)
	ids := make([]schema.TabID, len(refs))
	for i, ref := range refs {
		if existing := r.findByFileLocked(ref, created); existing != nil {
			ids[i] = existing.id
			activate = existing.id
			continue
		}
		t := &tab{id: newTabID(), ref: &ref, status: schema.TabStatusOK}
		if err := results[i].err; err != nil {
			t.status = schema.TabStatusError
			t.errText = err.Error()
			t.markPersisted("")
			failed = append(failed, t)
			logx.WithRef(log, &ref).Warn("registry file open failed", "err", err)
		} else {
			t.content = results[i].text
			t.markPersisted(t.content)
		}
		created = append(created, t)
		ids[i] = t.id
		activate = t.id
	}
	events := r.appendTabsLocked(created, activate)
	for _, t := range failed {
		event := r.eventLocked(schema.TabEventFilesystemError, t.snapshot(r.cfg.UntitledName, t.id == r.active))
		event.Err = t.errText
		events = append(events, event)
	}
	out := make([]schema.TabSnapshot, len(ids))
	for i, id := range ids {
		out[i] = r.tabs[id].snapshot(r.cfg.UntitledName, id == r.active)
	}
	r.mu.Unlock()
	r.emit(events...)
	log.Debug("registry files opened", "requested", len(refs), "created", len(created))

	if len(created) > 0 {
		r.syncRetention(ctx)
	}
	return out, nil
}

// findByFileLocked returns an open tab, or one about to be added, backed by ref.
func (r *registry) findByFileLocked(ref schema.FileRef, pending []*tab) *tab {
	for _, id := range r.order {
		if t := r.tabs[id]; t.ref != nil && t.ref.SameFile(ref) {
			return t
		}
	}
	for _, t := range pending {
		if t.ref != nil && t.ref.SameFile(ref) {
			return t
		}
	}
	return nil
}

func (r *registry) Save(ctx context.Context, id schema.TabID) (schema.SaveResult, error) {
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.SaveResult{}, schema.ErrTabNotFound
	}
	ref := t.refCopy()
	inError := t.status == schema.TabStatusError
	r.mu.Unlock()
	if ref == nil {
		return r.SaveAs(ctx, id)
	}
	if inError {
		// The buffer never held the file's content.
		logx.WithRef(logx.WithTab(ctx, id), ref).Warn("registry save refused", "reason", "tab in error state")
		return schema.SaveResult{}, schema.ErrTabInError
	}
	return r.writeTab(ctx, id, *ref)
}

func (r *registry) SaveAs(ctx context.Context, id schema.TabID) (schema.SaveResult, error) {
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.SaveResult{}, schema.ErrTabNotFound
	}
	suggested := string(t.displayName(r.cfg.UntitledName))
	r.mu.Unlock()

	refs, err := r.host.ChooseEntry(ctx, host.ChooseRequest{Mode: schema.EntryModeSave, SuggestedName: suggested})
	if err != nil {
		return schema.SaveResult{}, err
	}
	if len(refs) == 0 {
		logx.WithTab(ctx, id).Debug("registry save cancelled")
		return schema.SaveResult{Cancelled: true}, nil
	}
	return r.writeTab(ctx, id, refs[0])
}

// writeTab writes the tab's current content to ref outside the lock and
// applies the outcome only if the tab still exists.
func (r *registry) writeTab(ctx context.Context, id schema.TabID, ref schema.FileRef) (schema.SaveResult, error) {
	log := logx.WithRef(logx.WithTab(ctx, id), &ref)
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.SaveResult{}, schema.ErrTabNotFound
	}
	text := t.content
	r.mu.Unlock()

	if err := r.host.Write(ctx, ref, text); err != nil {
		r.mu.Lock()
		var events []schema.TabEvent
		if t := r.tabs[id]; t != nil {
			event := r.eventLocked(schema.TabEventFilesystemError, t.snapshot(r.cfg.UntitledName, r.active == id))
			event.Err = err.Error()
			events = append(events, event)
		}
		r.mu.Unlock()
		r.emit(events...)
		log.Warn("registry tab save failed", "err", err)
		return schema.SaveResult{}, err
	}

	if !r.hasTab(id) {
		log.Debug("registry save completed after tab closed")
		return schema.SaveResult{}, schema.ErrTabNotFound
	}
	if retentionID, err := r.host.Retain(ctx, ref); err != nil {
		log.Warn("registry retain failed", "err", err)
	} else {
		ref.RetentionID = retentionID
	}

	r.mu.Lock()
	t = r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		log.Debug("registry save completed after tab closed")
		return schema.SaveResult{}, schema.ErrTabNotFound
	}
	pathChanged := t.ref == nil || !t.ref.SameFile(ref)
	t.ref = &ref
	t.untitled = 0
	t.status = schema.TabStatusOK
	t.errText = ""
	t.markPersisted(text)
	snap := t.snapshot(r.cfg.UntitledName, r.active == id)
	events := []schema.TabEvent{r.eventLocked(schema.TabEventSaved, snap)}
	if pathChanged {
		events = append(events, r.eventLocked(schema.TabEventPathChanged, snap))
	}
	r.mu.Unlock()
	r.emit(events...)
	log.Info("registry tab saved", "bytes", len(text), "dirty", snap.Dirty)
	if pathChanged {
		r.syncRetention(ctx)
	}
	return schema.SaveResult{Tab: snap}, nil
}

func (r *registry) hasTab(id schema.TabID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tabs[id]
	return ok
}

func (r *registry) Reload(ctx context.Context, id schema.TabID) (schema.TabSnapshot, error) {
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	ref := t.refCopy()
	dirty := t.dirty
	r.mu.Unlock()
	if ref == nil {
		return schema.TabSnapshot{}, schema.ErrNoBackingFile
	}
	if dirty {
		return schema.TabSnapshot{}, schema.ErrUnsavedChanges
	}

	text, readErr := r.host.Read(ctx, *ref)

	r.mu.Lock()
	t = r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	var event schema.TabEvent
	if readErr != nil {
		t.status = schema.TabStatusError
		t.errText = readErr.Error()
		event = r.eventLocked(schema.TabEventFilesystemError, t.snapshot(r.cfg.UntitledName, r.active == id))
		event.Err = readErr.Error()
	} else {
		t.status = schema.TabStatusOK
		t.errText = ""
		t.content = text
		t.markPersisted(text)
		event = r.eventLocked(schema.TabEventContentChanged, t.snapshot(r.cfg.UntitledName, r.active == id))
	}
	snap := t.snapshot(r.cfg.UntitledName, r.active == id)
	r.mu.Unlock()
	r.emit(event)
	if readErr != nil {
		logx.WithRef(logx.WithTab(ctx, id), ref).Warn("registry tab reload failed", "err", readErr)
		return snap, readErr
	}
	r.syncRetention(ctx)
	return snap, nil
}

func (r *registry) RetainOpenFiles(ctx context.Context) error {
	return r.retainFiles(ctx)
}

// syncRetention overwrites the retention set with the open files and logs
// failures.
func (r *registry) syncRetention(ctx context.Context) {
	if err := r.retainFiles(ctx); err != nil {
		logx.Ctx(ctx).Warn("registry retention save failed", "err", err)
	}
}

func (r *registry) retainFiles(ctx context.Context) error {
	refs := r.FilesToRetain(ctx)
	retained, err := r.host.RetainOnly(ctx, refs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range retained {
		for _, id := range r.order {
			t := r.tabs[id]
			if t.ref != nil && t.ref.SameFile(ref) {
				t.ref.RetentionID = ref.RetentionID
			}
		}
	}
	return nil
}

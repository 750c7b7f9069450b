package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/logx"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// registry implements the session registry.
type registry struct {
	cfg        schema.ServiceConfig
	host       host.Adapter
	store      EntryStore
	sink       EventSink
	confirm    Confirmer
	reconciled atomic.Bool
	now        func() time.Time

	mu     sync.Mutex
	tabs   map[schema.TabID]*tab
	order  []schema.TabID
	active schema.TabID
}

// NewRegistry constructs the session registry.
func NewRegistry(cfg schema.ServiceConfig, deps RegistryDeps) (Registry, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Host == nil {
		return nil, schema.ErrNoHost
	}
	return &registry{
		cfg:     normalized,
		host:    deps.Host,
		store:   deps.Store,
		sink:    deps.EventSink,
		confirm: deps.Confirmer,
		now:     time.Now,
		tabs:    make(map[schema.TabID]*tab),
	}, nil
}

func (r *registry) NewTab(ctx context.Context, req schema.NewTabRequest) (schema.TabSnapshot, error) {
	if ctx == nil {
		return schema.TabSnapshot{}, errors.New("missing context")
	}
	name, err := schema.NormalizeTabName(string(req.CustomName), r.cfg.TabNameMax)
	if err != nil {
		return schema.TabSnapshot{}, err
	}
	t := &tab{id: newTabID(), customName: name, status: schema.TabStatusOK}
	t.markPersisted("")
	t.setContent(req.Content)

	r.mu.Lock()
	events := r.appendTabsLocked([]*tab{t}, t.id)
	snap := t.snapshot(r.cfg.UntitledName, true)
	r.mu.Unlock()
	r.emit(events...)
	logx.WithTab(ctx, t.id).Debug("registry tab created", "name", snap.Name)
	return snap, nil
}

func (r *registry) SetContent(ctx context.Context, id schema.TabID, text string) (schema.TabSnapshot, error) {
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	wasDirty := t.dirty
	t.setContent(text)
	snap := t.snapshot(r.cfg.UntitledName, r.active == id)
	event := r.eventLocked(schema.TabEventContentChanged, snap)
	r.mu.Unlock()
	r.emit(event)
	if wasDirty != snap.Dirty {
		logx.WithTab(ctx, id).Trace("registry tab dirty changed", "dirty", snap.Dirty)
	}
	return snap, nil
}

func (r *registry) Rename(ctx context.Context, id schema.TabID, name string) (schema.TabSnapshot, error) {
	normalized, err := schema.NormalizeTabName(name, r.cfg.TabNameMax)
	if err != nil {
		return schema.TabSnapshot{}, err
	}
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	t.customName = normalized
	snap := t.snapshot(r.cfg.UntitledName, r.active == id)
	event := r.eventLocked(schema.TabEventRenamed, snap)
	r.mu.Unlock()
	r.emit(event)
	logx.WithTab(ctx, id).Debug("registry tab renamed", "name", snap.Name)
	return snap, nil
}

func (r *registry) Activate(ctx context.Context, id schema.TabID) (schema.TabSnapshot, error) {
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	var events []schema.TabEvent
	if r.active != id {
		r.active = id
		events = append(events, r.eventLocked(schema.TabEventActivated, t.snapshot(r.cfg.UntitledName, true)))
	}
	snap := t.snapshot(r.cfg.UntitledName, true)
	r.mu.Unlock()
	r.emit(events...)
	logx.WithTab(ctx, id).Trace("registry tab activated")
	return snap, nil
}

func (r *registry) Next(ctx context.Context) (schema.TabSnapshot, error) {
	return r.step(ctx, 1)
}

func (r *registry) Previous(ctx context.Context) (schema.TabSnapshot, error) {
	return r.step(ctx, -1)
}

func (r *registry) step(ctx context.Context, delta int) (schema.TabSnapshot, error) {
	r.mu.Lock()
	if len(r.order) == 0 {
		r.mu.Unlock()
		return schema.TabSnapshot{}, schema.ErrNoTabs
	}
	idx := indexOf(r.order, r.active)
	if idx < 0 {
		idx = 0
	}
	n := len(r.order)
	target := r.order[((idx+delta)%n+n)%n]
	r.mu.Unlock()
	return r.Activate(ctx, target)
}

func (r *registry) Reorder(ctx context.Context, from, to int) error {
	r.mu.Lock()
	if from < 0 || from >= len(r.order) || to < 0 || to >= len(r.order) {
		r.mu.Unlock()
		return schema.ErrInvalidIndex
	}
	if from == to {
		r.mu.Unlock()
		return nil
	}
	id := r.order[from]
	order := append(r.order[:from:from], r.order[from+1:]...)
	order = append(order[:to], append([]schema.TabID{id}, order[to:]...)...)
	r.order = order
	event := r.eventLocked(schema.TabEventReordered, r.tabs[id].snapshot(r.cfg.UntitledName, r.active == id))
	r.mu.Unlock()
	r.emit(event)
	logx.WithTab(ctx, id).Trace("registry tab reordered", "from", from, "to", to)
	return nil
}

func (r *registry) List(_ context.Context) schema.ListResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	tabs := make([]schema.TabSnapshot, 0, len(r.order))
	for _, id := range r.order {
		tabs = append(tabs, r.tabs[id].snapshot(r.cfg.UntitledName, id == r.active))
	}
	return schema.ListResponse{Tabs: tabs, ActiveTab: r.active}
}

func (r *registry) Get(_ context.Context, id schema.TabID) (schema.TabSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tabs[id]
	if t == nil {
		return schema.TabSnapshot{}, schema.ErrTabNotFound
	}
	return t.snapshot(r.cfg.UntitledName, id == r.active), nil
}

func (r *registry) Current(_ context.Context) (schema.TabSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tabs[r.active]
	if t == nil {
		return schema.TabSnapshot{}, false
	}
	return t.snapshot(r.cfg.UntitledName, true), true
}

func (r *registry) FilesToRetain(_ context.Context) []schema.FileRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filesToRetainLocked()
}

// filesToRetainLocked lists readable file-backed tabs in display order.
func (r *registry) filesToRetainLocked() []schema.FileRef {
	var refs []schema.FileRef
	for _, id := range r.order {
		t := r.tabs[id]
		if t.ref == nil || t.status == schema.TabStatusError {
			continue
		}
		refs = append(refs, *t.ref)
	}
	return refs
}

func (r *registry) Snapshot(_ context.Context) persist.SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := persist.SessionSnapshot{
		Version: persist.SnapshotVersion,
		SavedAt: r.now().UTC(),
		Tabs:    make([]persist.SnapshotTab, 0, len(r.order)),
	}
	for _, id := range r.order {
		t := r.tabs[id]
		entry := persist.SnapshotTab{
			Content:    t.content,
			CustomName: t.customName,
			Dirty:      t.dirty,
			IsCurrent:  id == r.active,
		}
		if t.ref != nil {
			entry.EntryName = t.ref.Name
			entry.RetentionID = t.ref.RetentionID
		}
		snap.Tabs = append(snap.Tabs, entry)
	}
	return snap
}

// appendTabsLocked appends tabs, makes activate current and returns the
// resulting notifications.
func (r *registry) appendTabsLocked(tabs []*tab, activate schema.TabID) []schema.TabEvent {
	events := make([]schema.TabEvent, 0, len(tabs)+1)
	for _, t := range tabs {
		if t.ref == nil && t.untitled == 0 {
			t.untitled = r.nextUntitledLocked()
		}
		r.tabs[t.id] = t
		r.order = append(r.order, t.id)
		events = append(events, r.eventLocked(schema.TabEventCreated, t.snapshot(r.cfg.UntitledName, false)))
	}
	if activate != 0 && activate != r.active {
		if t := r.tabs[activate]; t != nil {
			r.active = activate
			events = append(events, r.eventLocked(schema.TabEventActivated, t.snapshot(r.cfg.UntitledName, true)))
		}
	}
	return events
}

// nextUntitledLocked returns the lowest ordinal not used by an open untitled tab.
func (r *registry) nextUntitledLocked() int {
	used := make(map[int]bool)
	for _, t := range r.tabs {
		if t.ref == nil && t.untitled > 0 {
			used[t.untitled] = true
		}
	}
	n := 1
	for used[n] {
		n++
	}
	return n
}

func (r *registry) eventLocked(typ schema.TabEventType, snap schema.TabSnapshot) schema.TabEvent {
	return schema.TabEvent{
		Type:      typ,
		Tab:       snap,
		ActiveTab: r.active,
		Order:     append([]schema.TabID(nil), r.order...),
	}
}

func (r *registry) emit(events ...schema.TabEvent) {
	if r.sink == nil {
		return
	}
	for _, event := range events {
		r.sink.OnTabEvent(event)
	}
}

func indexOf(order []schema.TabID, id schema.TabID) int {
	for i, candidate := range order {
		if candidate == id {
			return i
		}
	}
	return -1
}

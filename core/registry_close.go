package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/quicktext/internal/logx"
	"pkt.systems/quicktext/schema"
)

func (r *registry) CloseCurrent(ctx context.Context) (schema.CloseResult, error) {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active == 0 {
		return schema.CloseResult{}, schema.ErrNoTabs
	}
	return r.Close(ctx, active)
}

// Close removes a tab, asking the confirmer once when it has unsaved changes.
func (r *registry) Close(ctx context.Context, id schema.TabID) (schema.CloseResult, error) {
	if ctx == nil {
		return schema.CloseResult{}, errors.New("missing context")
	}
	log := logx.WithTab(ctx, id)
	ctx = logx.ContextWithTabLogger(ctx, log, id)
	r.mu.Lock()
	t := r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.CloseResult{}, schema.ErrTabNotFound
	}
	snap := t.snapshot(r.cfg.UntitledName, r.active == id)
	r.mu.Unlock()

	if snap.Dirty {
		proceed, err := r.resolveUnsaved(ctx, snap)
		if err != nil {
			return schema.CloseResult{}, err
		}
		if !proceed {
			log.Debug("registry tab close cancelled")
			return schema.CloseResult{Cancelled: true, ActiveTab: r.activeTab()}, nil
		}
	}

	r.mu.Lock()
	t = r.tabs[id]
	if t == nil {
		r.mu.Unlock()
		return schema.CloseResult{}, schema.ErrTabNotFound
	}
	hadFile := t.ref != nil
	events := r.removeLocked(id)
	active := r.active
	r.mu.Unlock()
	r.emit(events...)
	log.Info("registry tab closed", "active", int64(active))

	if hadFile {
		r.syncRetention(ctx)
	}
	return schema.CloseResult{Closed: true, ActiveTab: active}, nil
}

// resolveUnsaved asks the confirmer about one dirty tab and reports whether
// the caller may proceed.
func (r *registry) resolveUnsaved(ctx context.Context, snap schema.TabSnapshot) (bool, error) {
	if r.confirm == nil {
		return false, nil
	}
	decision, err := r.confirm.ConfirmClose(ctx, snap)
	if err != nil {
		return false, err
	}
	switch decision {
	case schema.CloseDiscard:
		return true, nil
	case schema.CloseSave:
		res, err := r.Save(ctx, snap.ID)
		if err != nil {
			return false, err
		}
		return !res.Cancelled, nil
	case schema.CloseCancel, "":
		return false, nil
	default:
		return false, fmt.Errorf("unknown close decision %q", decision)
	}
}

// removeLocked drops id and moves the current tab to the right neighbour,
// else the left one.
func (r *registry) removeLocked(id schema.TabID) []schema.TabEvent {
	t := r.tabs[id]
	idx := indexOf(r.order, id)
	delete(r.tabs, id)
	if idx >= 0 {
		r.order = append(r.order[:idx], r.order[idx+1:]...)
	}
	wasActive := r.active == id
	if wasActive {
		switch {
		case idx >= 0 && idx < len(r.order):
			r.active = r.order[idx]
		case idx > 0:
			r.active = r.order[idx-1]
		default:
			r.active = 0
		}
	}
	events := []schema.TabEvent{r.eventLocked(schema.TabEventClosed, t.snapshot(r.cfg.UntitledName, false))}
	if wasActive && r.active != 0 {
		events = append(events, r.eventLocked(schema.TabEventActivated, r.tabs[r.active].snapshot(r.cfg.UntitledName, true)))
	}
	return events
}

func (r *registry) activeTab() schema.TabID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// PromptAllUnsaved confirms every dirty tab in order and runs onComplete only
// when none of them was cancelled.
func (r *registry) PromptAllUnsaved(ctx context.Context, onComplete func()) (bool, error) {
	r.mu.Lock()
	var dirty []schema.TabSnapshot
	for _, id := range r.order {
		if t := r.tabs[id]; t.dirty {
			dirty = append(dirty, t.snapshot(r.cfg.UntitledName, id == r.active))
		}
	}
	r.mu.Unlock()

	log := logx.Ctx(ctx)
	for _, snap := range dirty {
		if _, err := r.Get(ctx, snap.ID); err != nil {
			continue
		}
		proceed, err := r.resolveUnsaved(ctx, snap)
		if err != nil {
			log.Warn("registry unsaved prompt failed", "tab", int64(snap.ID), "err", err)
			return false, err
		}
		if !proceed {
			log.Debug("registry unsaved prompt cancelled", "tab", int64(snap.ID))
			return false, nil
		}
	}
	if onComplete != nil {
		onComplete()
	}
	return true, nil
}

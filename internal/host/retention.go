package host

import (
	"context"
	"sync"
	"time"

	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// retentionBook caches the persisted retention set and writes the full set
// back after every change.
type retentionBook struct {
	mu     sync.Mutex
	store  RetentionStore
	set    persist.RetentionSet
	loaded bool
	now    func() time.Time
}

func newRetentionBook(store RetentionStore) *retentionBook {
	return &retentionBook{store: store, now: time.Now}
}

func (b *retentionBook) ensureLoaded(ctx context.Context) {
	if b.loaded {
		return
	}
	if b.store != nil {
		b.set = b.store.LoadRetentionSet(ctx).Clone()
	}
	b.loaded = true
}

func (b *retentionBook) save(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	return b.store.SaveRetentionSet(ctx, b.set.Clone())
}

func (b *retentionBook) upsert(ctx context.Context, ref FileRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureLoaded(ctx)
	b.set.Upsert(entryFor(ref, b.now()))
	return b.save(ctx)
}

func (b *retentionBook) replace(ctx context.Context, refs []FileRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureLoaded(ctx)
	next := persist.RetentionSet{}
	now := b.now()
	for _, ref := range refs {
		next.Upsert(entryFor(ref, now))
	}
	b.set = next
	return b.save(ctx)
}

func (b *retentionBook) lookup(ctx context.Context, id schema.RetentionID) (persist.RetainedEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureLoaded(ctx)
	return b.set.Find(id)
}

func (b *retentionBook) remove(ctx context.Context, id schema.RetentionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureLoaded(ctx)
	if !b.set.Remove(id) {
		return nil
	}
	return b.save(ctx)
}

func (b *retentionBook) entries(ctx context.Context) []persist.RetainedEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureLoaded(ctx)
	return b.set.Clone().Entries
}

func entryFor(ref FileRef, now time.Time) persist.RetainedEntry {
	return persist.RetainedEntry{
		ID:           ref.RetentionID,
		Host:         ref.Host,
		Name:         ref.Name,
		Path:         ref.Path,
		LastAccessed: now.UTC(),
	}
}

package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

const sandboxRoot = "/sandbox"

type recordingSink struct {
	mu     sync.Mutex
	events []schema.TabEvent
}

func (s *recordingSink) OnTabEvent(event schema.TabEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) count(typ schema.TabEventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, event := range s.events {
		if event.Type == typ {
			n++
		}
	}
	return n
}

func (s *recordingSink) last(typ schema.TabEventType) (schema.TabEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == typ {
			return s.events[i], true
		}
	}
	return schema.TabEvent{}, false
}

// countFor counts events about tab id.
func (s *recordingSink) countFor(id schema.TabID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, event := range s.events {
		if event.Tab.ID == id {
			n++
		}
	}
	return n
}

type scriptedConfirmer struct {
	mu        sync.Mutex
	decisions []schema.CloseDecision
	asked     []schema.TabID
}

func (c *scriptedConfirmer) ConfirmClose(_ context.Context, tab schema.TabSnapshot) (schema.CloseDecision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked = append(c.asked, tab.ID)
	if len(c.decisions) == 0 {
		return schema.CloseCancel, nil
	}
	decision := c.decisions[0]
	c.decisions = c.decisions[1:]
	return decision, nil
}

type failingWriteHost struct {
	host.Adapter
}

func (failingWriteHost) Write(_ context.Context, ref schema.FileRef, _ string) error {
	return &host.WriteError{Ref: ref, Err: errors.New("disk full")}
}

// blockingHost parks the next Read or Write once armed until release is
// closed.
type blockingHost struct {
	host.Adapter
	armed   atomic.Bool
	started chan struct{}
	release chan struct{}
}

func newBlockingHost(a host.Adapter) *blockingHost {
	return &blockingHost{Adapter: a, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingHost) hold() {
	if b.armed.CompareAndSwap(true, false) {
		b.started <- struct{}{}
		<-b.release
	}
}

func (b *blockingHost) Read(ctx context.Context, ref schema.FileRef) (string, error) {
	b.hold()
	return b.Adapter.Read(ctx, ref)
}

func (b *blockingHost) Write(ctx context.Context, ref schema.FileRef, text string) error {
	b.hold()
	return b.Adapter.Write(ctx, ref, text)
}

type harness struct {
	reg   Registry
	fs    afero.Fs
	store *persist.Store
	sink  *recordingSink
	host  host.Adapter
}

type harnessOptions struct {
	picker  host.Picker
	confirm Confirmer
	wrap    func(host.Adapter) host.Adapter
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	return restartHarness(t, afero.NewMemMapFs(), persist.NewMemoryStore(nil), opts)
}

// restartHarness builds a fresh adapter and registry over existing state, as
// a new process would.
func restartHarness(t *testing.T, fs afero.Fs, store *persist.Store, opts harnessOptions) *harness {
	t.Helper()
	sb, err := host.NewSandbox(host.Config{SandboxRoot: sandboxRoot}, host.Deps{Store: store, Picker: opts.picker, Fs: fs})
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}
	var adapter host.Adapter = sb
	if opts.wrap != nil {
		adapter = opts.wrap(adapter)
	}
	sink := &recordingSink{}
	reg, err := NewRegistry(schema.ServiceConfig{StateDir: t.TempDir()}, RegistryDeps{
		Host:      adapter,
		Store:     store,
		EventSink: sink,
		Confirmer: opts.confirm,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return &harness{reg: reg, fs: fs, store: store, sink: sink, host: adapter}
}

func (h *harness) writeFile(t *testing.T, name, content string) {
	t.Helper()
	if err := afero.WriteFile(h.fs, sandboxRoot+"/"+name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func (h *harness) readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := afero.ReadFile(h.fs, sandboxRoot+"/"+name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func (h *harness) ref(t *testing.T, name string) schema.FileRef {
	t.Helper()
	ref, err := h.host.Grant(context.Background(), name)
	if err != nil {
		t.Fatalf("grant %s: %v", name, err)
	}
	return ref
}

func (h *harness) open(t *testing.T, names ...string) []schema.TabSnapshot {
	t.Helper()
	refs := make([]schema.FileRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, h.ref(t, name))
	}
	tabs, err := h.reg.OpenFiles(context.Background(), refs)
	if err != nil {
		t.Fatalf("open files: %v", err)
	}
	return tabs
}

func (h *harness) names(t *testing.T) []schema.TabName {
	t.Helper()
	list := h.reg.List(context.Background())
	names := make([]schema.TabName, 0, len(list.Tabs))
	for _, tab := range list.Tabs {
		names = append(names, tab.Name)
	}
	return names
}

func assertOneCurrent(t *testing.T, reg Registry) {
	t.Helper()
	list := reg.List(context.Background())
	current := 0
	for _, tab := range list.Tabs {
		if tab.Active {
			current++
		}
	}
	if len(list.Tabs) == 0 {
		if current != 0 || list.ActiveTab != 0 {
			t.Fatalf("expected no current tab in empty registry, got %+v", list)
		}
		return
	}
	if current != 1 {
		t.Fatalf("expected exactly one current tab, got %d in %+v", current, list.Tabs)
	}
}

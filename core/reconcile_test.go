package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

func launchFiles(h *harness, t *testing.T, names ...string) []schema.LaunchFile {
	t.Helper()
	files := make([]schema.LaunchFile, 0, len(names))
	for _, name := range names {
		files = append(files, schema.LaunchFile{Ref: h.ref(t, name)})
	}
	return files
}

func seedSnapshot(t *testing.T, h *harness, snap persist.SessionSnapshot) {
	t.Helper()
	if err := h.store.SaveSessionSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestReconcileLaunchFilesWin(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	ctx := context.Background()
	h.writeFile(t, "a.txt", "alpha")
	h.writeFile(t, "b.txt", "beta")
	seedSnapshot(t, h, persist.SessionSnapshot{Tabs: []persist.SnapshotTab{{Content: "old draft", Dirty: true, IsCurrent: true}}})

	res, err := h.reg.Reconcile(ctx, schema.LaunchRequest{Files: launchFiles(h, t, "b.txt", "a.txt"), NewDocument: true})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Source != schema.LaunchSourceLaunch || res.Tabs != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got, want := h.names(t), []schema.TabName{"b.txt", "a.txt"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected launch files only %v, got %v", want, got)
	}
	assertOneCurrent(t, h.reg)
}

func TestReconcileNewDocument(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	seedSnapshot(t, h, persist.SessionSnapshot{Tabs: []persist.SnapshotTab{{Content: "old"}}})
	res, err := h.reg.Reconcile(context.Background(), schema.LaunchRequest{NewDocument: true})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Source != schema.LaunchSourceNewDocument || res.Tabs != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	list := h.reg.List(context.Background())
	if list.Tabs[0].Content != "" || list.Tabs[0].Ref != nil {
		t.Fatalf("expected one empty untitled tab, got %+v", list.Tabs[0])
	}
}

func TestReconcileSnapshotRoundTrip(t *testing.T) {
	first := newHarness(t, harnessOptions{})
	ctx := context.Background()
	first.writeFile(t, "a.txt", "alpha")
	tab := first.open(t, "a.txt")[0]
	if _, err := first.reg.SetContent(ctx, tab.ID, "alpha edited"); err != nil {
		t.Fatalf("set content: %v", err)
	}
	if _, err := first.reg.Rename(ctx, tab.ID, "Alpha"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := first.reg.NewTab(ctx, schema.NewTabRequest{Content: "draft", CustomName: "Ideas"}); err != nil {
		t.Fatalf("new tab: %v", err)
	}
	if _, err := first.reg.NewTab(ctx, schema.NewTabRequest{}); err != nil {
		t.Fatalf("new tab: %v", err)
	}
	if _, err := first.reg.Activate(ctx, tab.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := first.store.SaveSessionSnapshot(ctx, first.reg.Snapshot(ctx)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	first.writeFile(t, "a.txt", "alpha changed on disk")

	second := restartHarness(t, first.fs, first.store, harnessOptions{})
	res, err := second.reg.Reconcile(ctx, schema.LaunchRequest{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Source != schema.LaunchSourceSnapshot || res.Tabs != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	list := second.reg.List(ctx)
	restored := list.Tabs[0]
	if restored.Ref == nil || restored.Ref.Name != "a.txt" {
		t.Fatalf("expected file-backed tab, got %+v", restored)
	}
	if restored.Content != "alpha changed on disk" {
		t.Fatalf("expected on-disk content, got %q", restored.Content)
	}
	if !restored.Dirty || restored.CustomName != "Alpha" || !restored.Active {
		t.Fatalf("expected dirty flag, custom name and current tab kept, got %+v", restored)
	}
	draft := list.Tabs[1]
	if draft.Ref != nil || draft.Content != "draft" || draft.Name != "Ideas" || !draft.Dirty {
		t.Fatalf("unexpected unsaved tab %+v", draft)
	}
	empty := list.Tabs[2]
	if empty.Dirty || empty.Content != "" {
		t.Fatalf("expected clean empty tab, got %+v", empty)
	}
	assertOneCurrent(t, second.reg)
}

func TestReconcileSnapshotFallsBackWhenFileGone(t *testing.T) {
	first := newHarness(t, harnessOptions{})
	ctx := context.Background()
	first.writeFile(t, "gone.txt", "last known")
	first.open(t, "gone.txt")
	if err := first.store.SaveSessionSnapshot(ctx, first.reg.Snapshot(ctx)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := first.fs.Remove(sandboxRoot + "/gone.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	second := restartHarness(t, first.fs, first.store, harnessOptions{})
	if _, err := second.reg.Reconcile(ctx, schema.LaunchRequest{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	list := second.reg.List(ctx)
	if len(list.Tabs) != 1 {
		t.Fatalf("expected one tab, got %d", len(list.Tabs))
	}
	tab := list.Tabs[0]
	if tab.Ref != nil || tab.Content != "last known" || !tab.Dirty {
		t.Fatalf("expected unsaved fallback tab, got %+v", tab)
	}
	if ids := second.store.LoadRetentionSet(ctx).IDs(); len(ids) != 0 {
		t.Fatalf("expected missing file dropped from retention, got %v", ids)
	}
}

func TestReconcileSnapshotByEntryName(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	ctx := context.Background()
	h.writeFile(t, "named.txt", "from disk")
	if _, err := h.host.Retain(ctx, h.ref(t, "named.txt")); err != nil {
		t.Fatalf("retain: %v", err)
	}
	seedSnapshot(t, h, persist.SessionSnapshot{Tabs: []persist.SnapshotTab{{Content: "stale", EntryName: "named.txt", IsCurrent: true}}})
	restarted := restartHarness(t, h.fs, h.store, harnessOptions{})
	if _, err := restarted.reg.Reconcile(ctx, schema.LaunchRequest{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	tab, ok := restarted.reg.Current(ctx)
	if !ok || tab.Ref == nil || tab.Content != "from disk" {
		t.Fatalf("expected entry name to resolve retained file, got %+v", tab)
	}
}

func TestReconcileSnapshotKeepsSameNamedFilesApart(t *testing.T) {
	first := newHarness(t, harnessOptions{})
	ctx := context.Background()
	first.writeFile(t, "a/notes.txt", "from a")
	first.writeFile(t, "b/notes.txt", "from b")
	first.open(t, "a/notes.txt", "b/notes.txt")
	if err := first.store.SaveSessionSnapshot(ctx, first.reg.Snapshot(ctx)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	second := restartHarness(t, first.fs, first.store, harnessOptions{})
	if _, err := second.reg.Reconcile(ctx, schema.LaunchRequest{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	list := second.reg.List(ctx)
	if len(list.Tabs) != 2 {
		t.Fatalf("expected two tabs, got %d", len(list.Tabs))
	}
	want := []struct{ path, content string }{{"a/notes.txt", "from a"}, {"b/notes.txt", "from b"}}
	for i, w := range want {
		tab := list.Tabs[i]
		if tab.Ref == nil || tab.Ref.Path != w.path || tab.Content != w.content {
			t.Fatalf("tab %d: expected %s with %q, got %+v", i, w.path, w.content, tab)
		}
	}
	ids := second.store.LoadRetentionSet(ctx).IDs()
	if want := []schema.RetentionID{"retained_a/notes.txt", "retained_b/notes.txt"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected retention ids %v, got %v", want, ids)
	}
}

func TestReconcileRetainedPrunesMissing(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	ctx := context.Background()
	h.writeFile(t, "keep.txt", "keep")
	h.writeFile(t, "gone.txt", "gone")
	for _, name := range []string{"keep.txt", "gone.txt"} {
		if _, err := h.host.Retain(ctx, h.ref(t, name)); err != nil {
			t.Fatalf("retain %s: %v", name, err)
		}
	}
	if err := h.fs.Remove(sandboxRoot + "/gone.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	restarted := restartHarness(t, h.fs, h.store, harnessOptions{})
	res, err := restarted.reg.Reconcile(ctx, schema.LaunchRequest{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Source != schema.LaunchSourceRetained || res.Tabs != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if want := []schema.RetentionID{"retained_gone.txt"}; !reflect.DeepEqual(res.Pruned, want) {
		t.Fatalf("expected pruned %v, got %v", want, res.Pruned)
	}
	if ids := restarted.store.LoadRetentionSet(ctx).IDs(); !reflect.DeepEqual(ids, []schema.RetentionID{"retained_keep.txt"}) {
		t.Fatalf("expected persisted set pruned, got %v", ids)
	}
	if got := restarted.names(t); !reflect.DeepEqual(got, []schema.TabName{"keep.txt"}) {
		t.Fatalf("unexpected tabs %v", got)
	}
}

func TestReconcileEmpty(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	res, err := h.reg.Reconcile(context.Background(), schema.LaunchRequest{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Source != schema.LaunchSourceEmpty || res.Tabs != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := h.names(t); !reflect.DeepEqual(got, []schema.TabName{"Untitled"}) {
		t.Fatalf("expected one untitled tab, got %v", got)
	}
	assertOneCurrent(t, h.reg)
}

func TestReconcileRunsOnce(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	ctx := context.Background()
	if _, err := h.reg.Reconcile(ctx, schema.LaunchRequest{}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if _, err := h.reg.Reconcile(ctx, schema.LaunchRequest{NewDocument: true}); !errors.Is(err, schema.ErrAlreadyReconciled) {
		t.Fatalf("expected ErrAlreadyReconciled, got %v", err)
	}
	if n := len(h.reg.List(ctx).Tabs); n != 1 {
		t.Fatalf("expected second reconcile to change nothing, got %d tabs", n)
	}
}

package quicktext

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"pkt.systems/quicktext/core"
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

type countingSink struct {
	events []schema.TabEvent
}

func (s *countingSink) OnTabEvent(event schema.TabEvent) {
	s.events = append(s.events, event)
}

func newTestApp(t *testing.T, fs afero.Fs, store *persist.Store, deps Deps) *App {
	t.Helper()
	deps.Store = store
	deps.Fs = fs
	app, err := New(Config{
		Service: schema.ServiceConfig{StateDir: t.TempDir()},
		Host:    host.Config{Mode: host.ModeSandbox, SandboxRoot: "/sandbox"},
	}, deps)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func TestAppStartReportsFirstRunOnce(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := persist.NewMemoryStore(nil)

	app := newTestApp(t, fs, store, Deps{})
	res, err := app.Start(ctx, schema.LaunchRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !res.FirstRun {
		t.Fatalf("expected first run")
	}
	if res.Reconcile.Source != schema.LaunchSourceEmpty || res.Reconcile.Tabs != 1 {
		t.Fatalf("unexpected reconcile result %+v", res.Reconcile)
	}
	if _, err := app.Start(ctx, schema.LaunchRequest{}); err == nil {
		t.Fatalf("expected second start to fail")
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	again := newTestApp(t, fs, store, Deps{})
	res, err = again.Start(ctx, schema.LaunchRequest{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if res.FirstRun {
		t.Fatalf("expected installed flag to persist")
	}
	_ = again.Close(ctx)
}

func TestAppTeardownRestoresSession(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := persist.NewMemoryStore(nil)
	if err := afero.WriteFile(fs, "/sandbox/notes.txt", []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	app := newTestApp(t, fs, store, Deps{})
	ref, err := app.Host().Grant(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	res, err := app.Start(ctx, schema.LaunchRequest{Files: []schema.LaunchFile{{Ref: ref}}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Reconcile.Source != schema.LaunchSourceLaunch {
		t.Fatalf("expected launch source, got %s", res.Reconcile.Source)
	}
	if _, err := app.Registry().NewTab(ctx, schema.NewTabRequest{Content: "scratch"}); err != nil {
		t.Fatalf("new tab: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if set := store.LoadRetentionSet(ctx); len(set.Entries) != 1 || set.Entries[0].Name != "notes.txt" {
		t.Fatalf("expected notes.txt retained, got %+v", set.Entries)
	}

	again := newTestApp(t, fs, store, Deps{})
	res, err = again.Start(ctx, schema.LaunchRequest{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if res.Reconcile.Source != schema.LaunchSourceSnapshot || res.Reconcile.Tabs != 2 {
		t.Fatalf("unexpected restore %+v", res.Reconcile)
	}
	list := again.Registry().List(ctx)
	if list.Tabs[0].Content != "hello" || list.Tabs[1].Content != "scratch" {
		t.Fatalf("unexpected restored tabs %+v", list.Tabs)
	}
	if list.ActiveTab != list.Tabs[1].ID {
		t.Fatalf("expected last created tab to stay current")
	}
	_ = again.Close(ctx)
}

func TestAppHideSavesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore(nil)
	app := newTestApp(t, afero.NewMemMapFs(), store, Deps{})
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	if _, err := app.Start(ctx, schema.LaunchRequest{NewDocument: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	cur, ok := app.Registry().Current(ctx)
	if !ok {
		t.Fatalf("expected current tab")
	}
	if _, err := app.Registry().SetContent(ctx, cur.ID, "draft"); err != nil {
		t.Fatalf("set content: %v", err)
	}
	app.Hide()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := store.LoadSessionSnapshot(ctx)
		if snap != nil && len(snap.Tabs) == 1 && snap.Tabs[0].Content == "draft" {
			if !snap.Tabs[0].Dirty || !snap.Tabs[0].IsCurrent {
				t.Fatalf("unexpected snapshot tab %+v", snap.Tabs[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hide did not save a snapshot")
}

func TestAppCloseWindowCancelKeepsAppOpen(t *testing.T) {
	ctx := context.Background()
	decision := schema.CloseCancel
	confirm := core.ConfirmerFunc(func(context.Context, schema.TabSnapshot) (schema.CloseDecision, error) {
		return decision, nil
	})
	app := newTestApp(t, afero.NewMemMapFs(), persist.NewMemoryStore(nil), Deps{Confirmer: confirm})
	if _, err := app.Start(ctx, schema.LaunchRequest{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := app.Registry().NewTab(ctx, schema.NewTabRequest{Content: "unsaved"}); err != nil {
		t.Fatalf("new tab: %v", err)
	}

	closed, err := app.CloseWindow(ctx)
	if err != nil {
		t.Fatalf("close window: %v", err)
	}
	if closed {
		t.Fatalf("expected cancel to keep the window open")
	}
	if err := app.SaveSession(ctx); err != nil {
		t.Fatalf("expected app to stay usable: %v", err)
	}

	decision = schema.CloseDiscard
	closed, err = app.CloseWindow(ctx)
	if err != nil || !closed {
		t.Fatalf("expected close after discard, got %v %v", closed, err)
	}
}

func TestAppForwardsEventsToSinkAndBus(t *testing.T) {
	ctx := context.Background()
	sink := &countingSink{}
	app := newTestApp(t, afero.NewMemMapFs(), persist.NewMemoryStore(nil), Deps{EventSink: sink})
	ch, cancel := app.Bus().Subscribe(schema.TabEventCreated)
	defer cancel()

	if _, err := app.Start(ctx, schema.LaunchRequest{NewDocument: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer app.Close(ctx)

	select {
	case event := <-ch:
		if event.Type != schema.TabEventCreated {
			t.Fatalf("unexpected event %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("bus did not receive tab-created")
	}
	found := false
	for _, event := range sink.events {
		if event.Type == schema.TabEventCreated {
			found = true
		}
	}
	if !found {
		t.Fatalf("sink did not receive tab-created")
	}
}

func TestNewRejectsUnknownHostMode(t *testing.T) {
	_, err := New(Config{Host: host.Config{Mode: "cloud"}}, Deps{Store: persist.NewMemoryStore(nil)})
	if err == nil {
		t.Fatalf("expected error for unknown host mode")
	}
}

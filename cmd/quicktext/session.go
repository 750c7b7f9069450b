package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"pkt.systems/pslog"
	"pkt.systems/quicktext"
	"pkt.systems/quicktext/internal/appconfig"
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

func hostConfig(cfg appconfig.Config) host.Config {
	return host.Config{
		Mode:           cfg.Host.Mode,
		SandboxRoot:    cfg.Host.SandboxRoot,
		MaxReadBytes:   cfg.Host.MaxReadBytes,
		TextExtensions: cfg.Host.TextExtensions,
	}
}

func newApp(ctx context.Context, cfg appconfig.Config) (*quicktext.App, error) {
	return quicktext.New(quicktext.Config{
		Service: cfg.ServiceConfig(),
		Host:    hostConfig(cfg),
	}, quicktext.Deps{
		Picker: nativePicker(),
		Logger: pslog.Ctx(ctx),
	})
}

// openState opens the entry store and the host adapter without a registry,
// for commands that only inspect persisted state.
func openState(ctx context.Context, cfg appconfig.Config) (*persist.Store, host.Adapter, error) {
	logger := pslog.Ctx(ctx)
	store, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open state %s: %w", cfg.StateDir, err)
	}
	adapter, err := host.Select(hostConfig(cfg), host.Deps{Store: store, Logger: logger})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, adapter, nil
}

func printTabs(w io.Writer, list schema.ListResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSTATE\tCHARS\tPATH")
	for _, tab := range list.Tabs {
		marker := ""
		if tab.ID == list.ActiveTab {
			marker = "*"
		}
		path := ""
		if tab.Ref != nil {
			path = tab.Ref.Path
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n", marker, tab.ID, tab.Name, tabState(tab), utf8.RuneCountInString(tab.Content), path)
	}
	return tw.Flush()
}

func tabState(tab schema.TabSnapshot) string {
	switch {
	case tab.Status == schema.TabStatusError:
		return "error: " + tab.Error
	case tab.Dirty:
		return "modified"
	default:
		return "saved"
	}
}

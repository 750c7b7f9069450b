// Package dialogpicker prompts through the operating system's file dialog.
// It needs cgo and GTK on Linux, so only the CLI imports it.
package dialogpicker

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/sqweek/dialog"
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/schema"
)

// Picker shows native open and save dialogs.
type Picker struct {
	Filters []Filter
}

// Filter restricts the dialog to a set of extensions.
type Filter struct {
	Desc       string
	Extensions []string
}

// New returns a picker offering text files plus an all-files fallback.
func New() *Picker {
	return &Picker{Filters: []Filter{
		{Desc: "Text files", Extensions: []string{"txt", "md", "log", "csv", "json", "yaml", "yml"}},
		{Desc: "All files", Extensions: []string{"*"}},
	}}
}

// Pick shows one dialog. The native dialog selects a single file.
func (p *Picker) Pick(ctx context.Context, req host.ChooseRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	builder := dialog.File()
	for _, filter := range p.Filters {
		builder = builder.Filter(filter.Desc, filter.Extensions...)
	}
	var (
		path string
		err  error
	)
	if req.Mode == schema.EntryModeSave {
		path, err = builder.Title("Save As").Save()
	} else {
		path, err = builder.Title("Open").Load()
	}
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			return nil, nil
		}
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	return []string{filepath.Clean(path)}, nil
}

package host

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"
	"pkt.systems/pslog"
	"pkt.systems/quicktext/internal/logx"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// files implements the operations both host models share on top of an afero.Fs.
type files struct {
	kind        schema.HostKind
	fs          afero.Fs
	picker      Picker
	book        *retentionBook
	maxRead     int64
	textExts    []string
	log         pslog.Logger
	grant       func(ctx context.Context, path string) (FileRef, error)
	retentionID func(ref FileRef) schema.RetentionID
}

func newFiles(kind schema.HostKind, fs afero.Fs, cfg Config, deps Deps) *files {
	maxRead := cfg.MaxReadBytes
	if maxRead <= 0 {
		maxRead = DefaultMaxReadBytes
	}
	exts := cfg.TextExtensions
	if len(exts) == 0 {
		exts = DefaultTextExtensions
	}
	log := deps.Logger
	if log != nil {
		log = log.With("host", string(kind))
	}
	return &files{
		kind:     kind,
		fs:       fs,
		picker:   deps.Picker,
		book:     newRetentionBook(deps.Store),
		maxRead:  maxRead,
		textExts: append([]string(nil), exts...),
		log:      log,
	}
}

func (f *files) logger(ctx context.Context, ref *FileRef) pslog.Logger {
	log := f.log
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	return logx.WithRef(log, ref)
}

// Kind returns the host model.
func (f *files) Kind() schema.HostKind {
	return f.kind
}

// Grant resolves a launch-time path.
func (f *files) Grant(ctx context.Context, path string) (FileRef, error) {
	return f.grant(ctx, path)
}

// ChooseEntry prompts through the picker and grants every chosen path.
func (f *files) ChooseEntry(ctx context.Context, req ChooseRequest) ([]FileRef, error) {
	paths, err := pick(ctx, f.picker, req)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		f.logger(ctx, nil).Debug("host choose cancelled", "mode", string(req.Mode))
		return nil, nil
	}
	if req.Mode == schema.EntryModeSave || !req.Multiple {
		paths = paths[:1]
	}
	refs := make([]FileRef, 0, len(paths))
	for _, path := range paths {
		ref, err := f.grant(ctx, path)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Read returns the decoded text of ref.
func (f *files) Read(ctx context.Context, ref FileRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ReadError{Ref: ref, Err: err}
	}
	if ref.Host != f.kind {
		return "", &ReadError{Ref: ref, Err: ErrWrongHost}
	}
	name := filepath.FromSlash(ref.Path)
	info, err := f.fs.Stat(name)
	if err != nil {
		return "", &ReadError{Ref: ref, Err: err}
	}
	if info.IsDir() {
		return "", &ReadError{Ref: ref, Err: ErrIsDirectory}
	}
	if info.Size() > f.maxRead {
		return "", &ReadError{Ref: ref, Err: ErrTooLarge}
	}
	data, err := afero.ReadFile(f.fs, name)
	if err != nil {
		return "", &ReadError{Ref: ref, Err: err}
	}
	text, err := decodeText(ref.Name, data, f.textExts)
	if err != nil {
		return "", &ReadError{Ref: ref, Err: err}
	}
	f.logger(ctx, &ref).Trace("host read ok", "bytes", len(data))
	return text, nil
}

// Write atomically replaces the content of ref.
func (f *files) Write(ctx context.Context, ref FileRef, text string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Ref: ref, Err: err}
	}
	if ref.Host != f.kind {
		return &WriteError{Ref: ref, Err: ErrWrongHost}
	}
	if err := writeFileAtomic(f.fs, filepath.FromSlash(ref.Path), []byte(text)); err != nil {
		f.logger(ctx, &ref).Warn("host write failed", "err", err)
		return &WriteError{Ref: ref, Err: err}
	}
	f.logger(ctx, &ref).Trace("host write ok", "bytes", len(text))
	return nil
}

// Retain records ref in the retention set and returns its stable id.
func (f *files) Retain(ctx context.Context, ref FileRef) (schema.RetentionID, error) {
	if ref.Host != f.kind {
		return "", ErrWrongHost
	}
	ref.RetentionID = f.retentionID(ref)
	if err := f.book.upsert(ctx, ref); err != nil {
		return "", err
	}
	return ref.RetentionID, nil
}

// RetainOnly replaces the retention set with refs of this host model.
func (f *files) RetainOnly(ctx context.Context, refs []FileRef) ([]FileRef, error) {
	kept := make([]FileRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Host != f.kind {
			continue
		}
		ref.RetentionID = f.retentionID(ref)
		kept = append(kept, ref)
	}
	if err := f.book.replace(ctx, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// Restore returns the retained reference for id, or nil when unknown.
func (f *files) Restore(ctx context.Context, id schema.RetentionID) (*FileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	entry, ok := f.book.lookup(ctx, id)
	if !ok || entry.Host != f.kind {
		return nil, nil
	}
	ref, err := f.grant(ctx, entry.Path)
	if err != nil {
		f.logger(ctx, nil).Debug("host restore rejected", "retention_id", string(id), "err", err)
		return nil, nil
	}
	ref.RetentionID = id
	if entry.Name != "" {
		ref.Name = entry.Name
	}
	return &ref, nil
}

// Revalidate reports whether ref still points at a regular, reachable file.
func (f *files) Revalidate(ctx context.Context, ref FileRef) bool {
	if ctx.Err() != nil || ref.Host != f.kind {
		return false
	}
	info, err := f.fs.Stat(filepath.FromSlash(ref.Path))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Forget drops id from the retention set.
func (f *files) Forget(ctx context.Context, id schema.RetentionID) error {
	return f.book.remove(ctx, id)
}

// Retained lists the retention set.
func (f *files) Retained(ctx context.Context) []persist.RetainedEntry {
	return f.book.entries(ctx)
}

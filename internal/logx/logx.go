package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/quicktext/schema"
)

type contextKey int

const (
	tabKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTab annotates the context logger with the tab id.
func WithTab(ctx context.Context, tabID schema.TabID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tabID == 0 {
		return log
	}
	if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
		return log
	}
	return log.With("tab", int64(tabID))
}

// WithRef annotates the logger with file reference metadata when available.
func WithRef(log pslog.Logger, ref *schema.FileRef) pslog.Logger {
	if ref == nil {
		return log
	}
	if ref.Name != "" {
		log = log.With("file", ref.Name)
	}
	if ref.Path != "" && ref.Path != ref.Name {
		log = log.With("path", ref.Path)
	}
	if ref.Host != "" {
		log = log.With("host", string(ref.Host))
	}
	return log
}

// ContextWithTab stores the tab marker on the context for log de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if ctx == nil || tabID == 0 {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithTabLogger attaches the logger and tab marker to the context.
func ContextWithTabLogger(ctx context.Context, log pslog.Logger, tabID schema.TabID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTab(ctx, tabID)
}

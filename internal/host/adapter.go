package host

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"pkt.systems/pslog"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// FileRef is the opaque handle the core passes back to the adapter.
type FileRef = schema.FileRef

// DefaultMaxReadBytes caps the size of files read into a tab.
const DefaultMaxReadBytes int64 = 16 << 20

// DefaultTextExtensions are always treated as text regardless of content sniffing.
var DefaultTextExtensions = []string{".txt", ".md", ".log", ".csv", ".ini", ".conf"}

// Mode values accepted by Select.
const (
	ModeAuto    = "auto"
	ModeNative  = "native"
	ModeSandbox = "sandbox"
)

// ChooseRequest describes a picker invocation.
type ChooseRequest struct {
	Mode          schema.EntryMode
	Multiple      bool
	SuggestedName string
}

// Adapter is the capability interface over a host file-access model.
type Adapter interface {
	Kind() schema.HostKind
	// Grant turns a launch-time path into a reference the host may access.
	Grant(ctx context.Context, path string) (FileRef, error)
	// ChooseEntry returns nil, nil when the user cancels.
	ChooseEntry(ctx context.Context, req ChooseRequest) ([]FileRef, error)
	Read(ctx context.Context, ref FileRef) (string, error)
	Write(ctx context.Context, ref FileRef, text string) error
	Retain(ctx context.Context, ref FileRef) (schema.RetentionID, error)
	// RetainOnly replaces the retention set with exactly refs and returns
	// them with retention ids filled in.
	RetainOnly(ctx context.Context, refs []FileRef) ([]FileRef, error)
	// Restore returns nil, nil for unknown or expired ids.
	Restore(ctx context.Context, id schema.RetentionID) (*FileRef, error)
	Revalidate(ctx context.Context, ref FileRef) bool
	Forget(ctx context.Context, id schema.RetentionID) error
	Retained(ctx context.Context) []persist.RetainedEntry
}

// RetentionStore persists the retention set.
type RetentionStore interface {
	LoadRetentionSet(ctx context.Context) persist.RetentionSet
	SaveRetentionSet(ctx context.Context, set persist.RetentionSet) error
}

// Config selects and tunes the host adapter.
type Config struct {
	Mode           string
	SandboxRoot    string
	MaxReadBytes   int64
	TextExtensions []string
}

// Deps wires collaborators into the adapter.
type Deps struct {
	Store  RetentionStore
	Picker Picker
	// Fs overrides the OS filesystem, mainly for tests.
	Fs     afero.Fs
	Logger pslog.Logger
	GOOS   string
	Getenv func(string) string
}

// DetectKind reports the host model available on the platform.
func DetectKind(goos string, getenv func(string) string) schema.HostKind {
	switch goos {
	case "darwin", "windows":
		return schema.HostNative
	}
	if getenv == nil {
		return schema.HostSandbox
	}
	if getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != "" {
		return schema.HostNative
	}
	return schema.HostSandbox
}

// Select builds the adapter for the configured or detected host model.
func Select(cfg Config, deps Deps) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeAuto
	}
	var kind schema.HostKind
	switch mode {
	case ModeAuto:
		goos := deps.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}
		getenv := deps.Getenv
		if getenv == nil {
			getenv = os.Getenv
		}
		kind = DetectKind(goos, getenv)
	case ModeNative:
		kind = schema.HostNative
	case ModeSandbox:
		kind = schema.HostSandbox
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownHost, cfg.Mode)
	}
	if deps.Logger != nil {
		deps.Logger.Debug("host selected", "mode", mode, "host", string(kind))
	}
	if kind == schema.HostNative {
		return NewNative(cfg, deps), nil
	}
	return NewSandbox(cfg, deps)
}

package host

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"pkt.systems/quicktext/schema"
)

// Native accesses the OS filesystem by absolute path.
type Native struct {
	*files
}

// NewNative constructs the native host adapter.
func NewNative(cfg Config, deps Deps) *Native {
	fs := deps.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	n := &Native{files: newFiles(schema.HostNative, fs, cfg, deps)}
	n.grant = n.grantPath
	n.retentionID = NativeRetentionID
	return n
}

// NativeRetentionID derives a stable id from the cleaned absolute path.
func NativeRetentionID(ref FileRef) schema.RetentionID {
	key := "file://" + filepath.ToSlash(filepath.Clean(ref.Path))
	return schema.RetentionID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String())
}

func (n *Native) grantPath(_ context.Context, path string) (FileRef, error) {
	if strings.TrimSpace(path) == "" {
		return FileRef{}, schema.ErrNotGranted
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileRef{}, err
	}
	return FileRef{Host: schema.HostNative, Name: filepath.Base(abs), Path: abs}, nil
}

package host

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"pkt.systems/quicktext/schema"
)

// RetentionPrefix prefixes sandbox retention ids.
const RetentionPrefix = "retained_"

// Sandbox only touches files under a granted root, keyed by file name.
type Sandbox struct {
	*files
	root string
}

// NewSandbox constructs the sandbox host adapter rooted at cfg.SandboxRoot.
func NewSandbox(cfg Config, deps Deps) (*Sandbox, error) {
	root := strings.TrimSpace(cfg.SandboxRoot)
	if root == "" {
		return nil, errors.New("sandbox root is required")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	base := deps.Fs
	if base == nil {
		base = afero.NewOsFs()
		if err := os.MkdirAll(root, 0o700); err != nil {
			return nil, err
		}
	} else if err := base.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	s := &Sandbox{
		files: newFiles(schema.HostSandbox, afero.NewBasePathFs(base, root), cfg, deps),
		root:  root,
	}
	s.grant = s.grantPath
	s.retentionID = SandboxRetentionID
	return s, nil
}

// Root returns the absolute sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// SandboxRetentionID keys handles by root-relative path.
func SandboxRetentionID(ref FileRef) schema.RetentionID {
	key := ref.Path
	if key == "" {
		key = ref.Name
	}
	return schema.RetentionID(RetentionPrefix + path.Clean(key))
}

// grantPath accepts root-relative paths and absolute paths inside the root.
func (s *Sandbox) grantPath(_ context.Context, p string) (FileRef, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return FileRef{}, schema.ErrNotGranted
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) {
		rel, err := filepath.Rel(s.root, clean)
		if err != nil {
			return FileRef{}, schema.ErrNotGranted
		}
		clean = rel
	}
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return FileRef{}, schema.ErrNotGranted
	}
	rel := filepath.ToSlash(clean)
	return FileRef{Host: schema.HostSandbox, Name: path.Base(rel), Path: rel}, nil
}

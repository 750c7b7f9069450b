package host

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const defaultFileMode os.FileMode = 0o644

// writeFileAtomic replaces name through a temp file in the same directory so
// readers never observe a partial write. The prior content stays intact on
// failure.
func writeFileAtomic(fs afero.Fs, name string, data []byte) error {
	perm := defaultFileMode
	info, err := fs.Stat(name)
	switch {
	case err == nil:
		if info.IsDir() {
			return ErrIsDirectory
		}
		perm = info.Mode().Perm()
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	tmp, err := afero.TempFile(fs, filepath.Dir(name), ".quicktext-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := fs.Rename(tmpName, name); err != nil {
		cleanup()
		return err
	}
	return nil
}

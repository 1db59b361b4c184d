package node

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func readFileByPath(path string) ([]byte, error) {
	return readFileFromDir(filepath.Dir(path), filepath.Base(path))
}

func readFileFromDir(dir, name string) ([]byte, error) {
	if err := checkFileName(name); err != nil {
		return nil, err
	}
	return fs.ReadFile(os.DirFS(dir), name)
}

func checkFileName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid file name: %q", name)
	}
	return nil
}

// writeFileAtomic replaces path with b via a synced temp file and rename.
// An existing file is only replaced when overwrite is set.
func writeFileAtomic(path string, b []byte, overwrite bool) error {
	if err := checkFileName(filepath.Base(path)); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- operator-provided path.
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	_, werr := f.Write(b)
	serr := f.Sync()
	cerr := f.Close()
	switch {
	case werr != nil:
		return fmt.Errorf("write tmp: %w", werr)
	case serr != nil:
		return fmt.Errorf("fsync tmp: %w", serr)
	case cerr != nil:
		return fmt.Errorf("close tmp: %w", cerr)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

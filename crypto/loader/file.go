package loader

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

const (
	keyPerm    = 0400
	folderPerm = 0700
)

// keyFile loads a key from a file that only its owner can read.
//
// - implements loader.Loader
type keyFile struct {
	path string
}

// NewFileLoader returns a loader of the key in the file at the path.
func NewFileLoader(path string) Loader {
	return keyFile{path: path}
}

// LoadOrCreate implements loader.Loader. A new key is written to a temporary
// file of the same folder that is then renamed, so that the file never holds a
// partial key.
func (f keyFile) LoadOrCreate(g Generator) ([]byte, error) {
	data, err := f.Load()
	if err == nil {
		return data, nil
	}

	if !xerrors.Is(err, fs.ErrNotExist) {
		return nil, xerrors.Errorf("failed to load file: %v", err)
	}

	data, err = g.Generate()
	if err != nil {
		return nil, xerrors.Errorf("generator failed: %v", err)
	}

	err = f.store(data)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Load implements loader.Loader.
func (f keyFile) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, xerrors.Errorf("while reading file: %w", err)
	}

	return data, nil
}

func (f keyFile) store(data []byte) error {
	dir := filepath.Dir(f.path)

	err := os.MkdirAll(dir, folderPerm)
	if err != nil {
		return xerrors.Errorf("while creating folder: %v", err)
	}

	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return xerrors.Errorf("while creating file: %v", err)
	}

	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(keyPerm)
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		return xerrors.Errorf("while writing: %v", err)
	}

	err = os.Rename(tmp.Name(), f.path)
	if err != nil {
		return xerrors.Errorf("while storing key: %v", err)
	}

	return nil
}

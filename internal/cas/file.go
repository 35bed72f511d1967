// internal/cas/file.go
package cas

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadFile opens, validates, and reads the entire content of a .cas file.
// the content is decoded once as a check, so a buffer returned without error
// is known to be well formed.
func ReadFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening cas file '%s': %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("error reading cas file '%s': %w", path, err)
	}

	if _, err := Frame(data); err != nil {
		return nil, fmt.Errorf("invalid cas file '%s': %w", path, err)
	}

	return data, nil
}

// ReadFileOrEmpty behaves like ReadFile but treats a missing file as an empty
// container. the add command uses it to create new tapes.
func ReadFileOrEmpty(path string) ([]byte, bool, error) {
	data, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// WriteFile replaces the .cas file at path with data. the content is written
// to a temporary file in the same directory first and renamed over the
// target, so a failed write never leaves a half written tape behind.
func WriteFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("error creating cas file '%s': %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("error writing cas file '%s': %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("error closing cas file '%s': %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("error writing cas file '%s': %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing cas file '%s': %w", path, err)
	}
	return nil
}

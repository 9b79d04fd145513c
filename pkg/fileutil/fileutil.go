package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileExists returns whether a regular file exists at the given path.
func FileExists(filename string) (bool, error) {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// Copy copies a single file and returns the number of bytes written.
func Copy(src, dst string) (int64, error) {
	exists, err := FileExists(src)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errors.Errorf("source file '%s' does not exist", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer destination.Close()

	return io.Copy(destination, source)
}

// ListFiles returns the names of the regular files directly inside dir.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory '%s'", dir)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// ClearDir removes the regular files directly inside dir, creating the
// directory if it does not exist yet. Subdirectories are left alone.
func ClearDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory '%s'", dir)
	}
	files, err := ListFiles(dir)
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return errors.Wrapf(err, "failed to remove '%s'", name)
		}
	}
	return nil
}

// CopyDir copies the regular files directly inside src into dst.
func CopyDir(src, dst string) (int, error) {
	files, err := ListFiles(src)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, errors.Wrapf(err, "failed to create directory '%s'", dst)
	}
	for _, name := range files {
		if _, err := Copy(filepath.Join(src, name), filepath.Join(dst, name)); err != nil {
			return 0, errors.Wrapf(err, "failed to copy '%s'", name)
		}
	}
	return len(files), nil
}

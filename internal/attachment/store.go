// Package attachment stores the bytes of files uploaded for expenses.
package attachment

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("the attachment file does not exist")

// Store keeps attachment bytes. Locations are opaque to callers.
type Store interface {
	Save(r io.Reader) (location string, size int64, err error)
	Open(location string) (io.ReadCloser, error)
	Delete(location string) error
}

// Dir stores every attachment as one file in a directory.
type Dir struct {
	path string
}

// NewDir creates the directory if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("could not create attachment directory: %w", err)
	}

	return &Dir{path: path}, nil
}

func (d *Dir) Save(r io.Reader) (string, int64, error) {
	location := uuid.NewString()

	f, err := os.OpenFile(filepath.Join(d.path, location), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, err
	}

	return location, size, f.Sync()
}

func (d *Dir) Open(location string) (io.ReadCloser, error) {
	f, err := os.Open(d.file(location))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the file. Deleting a missing file is not an error.
func (d *Dir) Delete(location string) error {
	err := os.Remove(d.file(location))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error().Err(err).Str("location", location).Msg("Attachment")
		return err
	}
	return nil
}

// file confines location to the directory.
func (d *Dir) file(location string) string {
	return filepath.Join(d.path, filepath.Base(filepath.Clean("/"+location)))
}

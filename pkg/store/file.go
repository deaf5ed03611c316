package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/mod"
)

// FileStore keeps one JSON document per mod in a directory. Writes go
// through a temp file and a rename so a crash mid-write never leaves a
// truncated record.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store in the given directory.
// The directory will be created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "create store dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, mod.CanonicalID(id)+".json")
}

// List implements Store.
func (s *FileStore) List() ([]*mod.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read store dir")
	}
	var records []*mod.Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read record %s", e.Name())
		}
		var r mod.Record
		if err := json.Unmarshal(data, &r); err != nil {
			// A corrupt record is surfaced, not skipped: silently dropping
			// an installed mod from the set would desync resolution.
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "corrupt record %s", e.Name())
		}
		records = append(records, &r)
	}
	return records, nil
}

// Get implements Store.
func (s *FileStore) Get(id string) (*mod.Record, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read record %s", id)
	}
	var r mod.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "corrupt record %s", id)
	}
	return &r, nil
}

// Put implements Store.
func (s *FileStore) Put(r *mod.Record) error {
	if err := r.Normalize(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode record %s", r.ID)
	}

	final := s.path(r.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "write record %s", r.ID)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeFilesystem, err, "commit record %s", r.ID)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "delete record %s", id)
	}
	return nil
}

// Close implements Store. File stores hold no open handles.
func (s *FileStore) Close() error { return nil }

package store

import (
	"os"
	"strings"

	"github.com/modfort/modfort/pkg/errors"
)

// WriteLoadOrder rewrites the load-order artifact: one canonical id per
// line, in activation order. The file is replaced atomically so the host
// framework never reads a half-written sequence.
func WriteLoadOrder(path string, ids []string) error {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "write load order")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeFilesystem, err, "commit load order")
	}
	return nil
}

// ReadLoadOrder reads the load-order artifact. A missing file is an empty
// order, not an error: the artifact only exists after the first
// successful resolution.
func ReadLoadOrder(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read load order")
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

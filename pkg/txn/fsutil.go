package txn

import (
	"io"
	"os"
	"path/filepath"

	"github.com/modfort/modfort/pkg/errors"
)

// copyTree copies every file under src into dst, preserving relative
// layout. File modes are normalized (0644/0755): archives carry
// unreliable permission bits.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "walk %s", src)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "rel %s", path)
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeFilesystem, err, "create dir %s", rel)
			}
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(errors.ErrCodeFilesystem, err, "copy to %s", dst)
	}
	return out.Close()
}

// moveDir relocates a directory, preferring a single rename. When src and
// dst sit on different filesystems the rename fails and the move degrades
// to copy+delete, which widens the inconsistency window; commit paths
// keep everything on one filesystem precisely to avoid that.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "remove %s after copy", src)
	}
	return nil
}

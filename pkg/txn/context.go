// Package txn implements the transactional mod installer: extract,
// validate, gate, stage, then commit-or-rollback. A transaction either
// produces a fully installed mod or leaves the filesystem exactly as it
// found it; the one non-atomic window (the commit move) is shielded by a
// timestamped backup that rollback restores.
package txn

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/modfort/modfort/pkg/errors"
)

// Context holds the scratch directories of one install session. The
// session directory (extraction + staging) is guaranteed released on
// every exit path; the backup directory is intentionally excluded from
// cleanup because rollback may still need it after Release runs.
type Context struct {
	// SessionDir is the per-transaction scratch root, uuid-named so two
	// sessions can never collide.
	SessionDir string
	// ExtractDir receives the unpacked archive.
	ExtractDir string
	// StagingDir receives the validated files before commit. Distinct
	// from both ExtractDir and the destination, so a mid-copy failure
	// can never corrupt a working install.
	StagingDir string
	// BackupDir is set once an existing install has been moved aside.
	BackupDir string
	// TargetDir is the final destination under the mods directory.
	TargetDir string
}

// NewContext creates the session scratch directories under workRoot.
// An empty workRoot falls back to the OS temp directory.
func NewContext(workRoot string) (*Context, error) {
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	session := filepath.Join(workRoot, "modfort-txn-"+uuid.NewString())
	c := &Context{
		SessionDir: session,
		ExtractDir: filepath.Join(session, "extract"),
		StagingDir: filepath.Join(session, "staging"),
	}
	for _, dir := range []string{c.ExtractDir, c.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.Release()
			return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "create session dir")
		}
	}
	return c, nil
}

// BackupPath derives the timestamped backup location for a target. The
// backup lives next to the target (same filesystem) so moving it is a
// rename, not a copy.
func (c *Context) BackupPath(target string, now time.Time) string {
	return fmt.Sprintf("%s.backup-%s", target, now.UTC().Format("20060102T150405"))
}

// Release deletes the session directory. Idempotent; the backup, if any,
// survives.
func (c *Context) Release() {
	if c.SessionDir != "" {
		os.RemoveAll(c.SessionDir)
	}
}

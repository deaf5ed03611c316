package txn

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/host"
	"github.com/modfort/modfort/pkg/mod"
)

// buildModZip writes a zip archive containing the given files and returns
// its path.
func buildModZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pkg.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	ins := NewInstaller(t.TempDir())
	ins.WorkRoot = t.TempDir()
	return ins
}

const basicManifest = `id = "jetpack"
name = "Jetpack"
version = "1.2.0"
entry_file = "jetpack.dll"
`

func TestInstallSuccess(t *testing.T) {
	ins := newTestInstaller(t)
	zipPath := buildModZip(t, map[string]string{
		"mod.toml":    basicManifest,
		"jetpack.dll": "payload",
		"assets/a":    "texture",
	})

	res, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
	require.NoError(t, err)
	require.NotNil(t, res.Record)

	rec := res.Record
	assert.Equal(t, "jetpack", rec.ID)
	assert.Equal(t, "1.2.0", rec.Version)
	assert.Equal(t, "jetpack.dll", rec.EntryFile)
	assert.True(t, rec.Enabled)
	assert.NotEmpty(t, rec.Checksum)
	assert.Equal(t, StateDone, res.State)

	data, err := os.ReadFile(filepath.Join(rec.InstallPath, "jetpack.dll"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Checksum must match a fresh digest of the installed tree.
	digest, err := host.SHA256{}.DigestTree(rec.InstallPath)
	require.NoError(t, err)
	assert.Equal(t, digest, rec.Checksum)

	// No session scratch left behind.
	entries, err := os.ReadDir(ins.WorkRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallHostProcessRunning(t *testing.T) {
	ins := newTestInstaller(t)
	ins.Probe = host.StaticProbe{Running: true}
	zipPath := buildModZip(t, map[string]string{"mod.toml": basicManifest, "jetpack.dll": "x"})

	_, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeHostRunning))
	assert.True(t, errors.Retryable(err))

	entries, err := os.ReadDir(ins.ModsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallAlreadyInstalled(t *testing.T) {
	ins := newTestInstaller(t)
	target := filepath.Join(ins.ModsDir, "jetpack")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "old.dll"), []byte("old"), 0o644))
	zipPath := buildModZip(t, map[string]string{"mod.toml": basicManifest, "jetpack.dll": "new"})

	_, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyInstalled))

	// Existing install untouched.
	data, err := os.ReadFile(filepath.Join(target, "old.dll"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestInstallOverwrite(t *testing.T) {
	ins := newTestInstaller(t)
	target := filepath.Join(ins.ModsDir, "jetpack")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "old.dll"), []byte("old"), 0o644))
	zipPath := buildModZip(t, map[string]string{"mod.toml": basicManifest, "jetpack.dll": "new"})

	res, err := ins.Install(context.Background(), Request{ArchivePath: zipPath, Overwrite: true})
	require.NoError(t, err)
	require.NotNil(t, res.Record)

	// New contents in, old contents gone.
	data, err := os.ReadFile(filepath.Join(target, "jetpack.dll"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = os.Stat(filepath.Join(target, "old.dll"))
	assert.True(t, os.IsNotExist(err))

	// The backup is removed after a successful commit.
	entries, err := os.ReadDir(ins.ModsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "jetpack", entries[0].Name())
}

func TestInstallMissingDependencyBlocks(t *testing.T) {
	ins := newTestInstaller(t)
	zipPath := buildModZip(t, map[string]string{
		"mod.toml": `id = "jetpack"
name = "Jetpack"
version = "1.0.0"
entry_file = "jetpack.dll"

[[dependencies]]
id = "fuel-core"
`,
		"jetpack.dll": "x",
	})

	res, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDependencyBlocked))
	require.NotNil(t, res)
	require.NotNil(t, res.Outcome)
	require.Len(t, res.Outcome.Missing, 1)
	assert.Equal(t, "fuel-core", res.Outcome.Missing[0].ID)

	// Destination untouched on a gate failure.
	_, statErr := os.Stat(filepath.Join(ins.ModsDir, "jetpack"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstallAdvisoryConflict(t *testing.T) {
	installed := []*mod.Record{{ID: "fuel-core", Name: "Fuel", Version: "1.0.0", Enabled: true}}
	zipFiles := map[string]string{
		"mod.toml": `id = "jetpack"
name = "Jetpack"
version = "1.0.0"
entry_file = "jetpack.dll"

[[dependencies]]
id = "fuel-core"
version_range = ">=2.0.0"
`,
		"jetpack.dll": "x",
	}

	t.Run("blocks by default", func(t *testing.T) {
		ins := newTestInstaller(t)
		zipPath := buildModZip(t, zipFiles)
		res, err := ins.Install(context.Background(), Request{ArchivePath: zipPath, Installed: installed})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDependencyBlocked))
		require.NotNil(t, res)
		require.NotNil(t, res.Outcome)
		assert.True(t, res.Outcome.OK, "a version conflict alone is advisory")
		require.Len(t, res.Outcome.Conflicts, 1)
	})

	t.Run("proceeds when allowed", func(t *testing.T) {
		ins := newTestInstaller(t)
		zipPath := buildModZip(t, zipFiles)
		res, err := ins.Install(context.Background(), Request{
			ArchivePath:   zipPath,
			Installed:     installed,
			AllowAdvisory: true,
		})
		require.NoError(t, err)
		require.NotNil(t, res.Record)
		assert.Len(t, res.Outcome.Conflicts, 1)
	})
}

func TestInstallFrameworkGate(t *testing.T) {
	zipFiles := map[string]string{
		"mod.toml": `id = "jetpack"
name = "Jetpack"
version = "1.0.0"
entry_file = "jetpack.dll"
min_framework_version = "2.0.0"
`,
		"jetpack.dll": "x",
	}

	t.Run("framework too old", func(t *testing.T) {
		ins := newTestInstaller(t)
		ins.Framework = host.StaticStatus{S: host.FrameworkStatus{Present: true, Version: "1.5.0"}}
		zipPath := buildModZip(t, zipFiles)
		_, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDependencyBlocked))
	})

	t.Run("framework absent", func(t *testing.T) {
		ins := newTestInstaller(t)
		ins.Framework = host.StaticStatus{S: host.FrameworkStatus{}}
		zipPath := buildModZip(t, zipFiles)
		_, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDependencyBlocked))
	})

	t.Run("framework new enough", func(t *testing.T) {
		ins := newTestInstaller(t)
		ins.Framework = host.StaticStatus{S: host.FrameworkStatus{Present: true, Version: "2.1.0"}}
		zipPath := buildModZip(t, zipFiles)
		res, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
		require.NoError(t, err)
		require.NotNil(t, res.Record)
	})
}

func TestInstallInvalidArchive(t *testing.T) {
	ins := newTestInstaller(t)
	notZip := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0o644))

	_, err := ins.Install(context.Background(), Request{ArchivePath: notZip})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArchive))

	entries, err := os.ReadDir(ins.ModsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallCancelled(t *testing.T) {
	ins := newTestInstaller(t)
	zipPath := buildModZip(t, map[string]string{"mod.toml": basicManifest, "jetpack.dll": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ins.Install(ctx, Request{ArchivePath: zipPath})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(ins.ModsDir, "jetpack"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRollbackRestoresBackup(t *testing.T) {
	ins := newTestInstaller(t)
	tc, err := NewContext(ins.WorkRoot)
	require.NoError(t, err)
	defer tc.Release()

	target := filepath.Join(ins.ModsDir, "jetpack")
	backup := tc.BackupPath(target, time.Now())
	require.NoError(t, os.MkdirAll(backup, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backup, "old.dll"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "new.dll"), []byte("new"), 0o644))

	tr := &transaction{ins: ins, ctx: tc, target: target, backup: backup, targetWritten: true}
	require.NoError(t, tr.rollback())

	data, err := os.ReadFile(filepath.Join(target, "old.dll"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	_, err = os.Stat(filepath.Join(target, "new.dll"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err))

	// Running it again is a no-op.
	require.NoError(t, tr.rollback())
	data, err = os.ReadFile(filepath.Join(target, "old.dll"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestRollbackWithoutBackup(t *testing.T) {
	ins := newTestInstaller(t)
	tc, err := NewContext(ins.WorkRoot)
	require.NoError(t, err)
	defer tc.Release()

	target := filepath.Join(ins.ModsDir, "jetpack")
	require.NoError(t, os.MkdirAll(target, 0o755))

	tr := &transaction{ins: ins, ctx: tc, target: target, targetWritten: true}
	require.NoError(t, tr.rollback())

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
	require.NoError(t, tr.rollback())
}

func TestBackupPathIsSiblingOfTarget(t *testing.T) {
	tc := &Context{}
	now := time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC)
	got := tc.BackupPath("/mods/jetpack", now)
	assert.Equal(t, "/mods/jetpack.backup-20250301T123045", got)
}

// failingChecksummer errors on every tree digest, which makes the
// commit step fail after the destination moves have happened.
type failingChecksummer struct{}

func (failingChecksummer) Digest([]byte) string { return "" }
func (failingChecksummer) DigestTree(string) (string, error) {
	return "", fmt.Errorf("short read")
}

func TestCommitFailureRestoresPriorInstall(t *testing.T) {
	ins := newTestInstaller(t)
	oldZip := buildModZip(t, map[string]string{
		"mod.toml":    basicManifest,
		"jetpack.dll": "old payload",
	})
	_, err := ins.Install(context.Background(), Request{ArchivePath: oldZip})
	require.NoError(t, err)

	ins.Checksum = failingChecksummer{}
	newZip := buildModZip(t, map[string]string{
		"mod.toml": `id = "jetpack"
name = "Jetpack"
version = "2.0.0"
entry_file = "jetpack.dll"
`,
		"jetpack.dll": "new payload",
	})
	res, err := ins.Install(context.Background(), Request{ArchivePath: newZip, Overwrite: true})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)

	// The prior install is back, byte for byte, with no backup left over.
	data, err := os.ReadFile(filepath.Join(ins.ModsDir, "jetpack", "jetpack.dll"))
	require.NoError(t, err)
	assert.Equal(t, "old payload", string(data))
	entries, err := os.ReadDir(ins.ModsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCommitFailureFreshInstallLeavesNothing(t *testing.T) {
	ins := newTestInstaller(t)
	ins.Checksum = failingChecksummer{}
	zipPath := buildModZip(t, map[string]string{
		"mod.toml":    basicManifest,
		"jetpack.dll": "payload",
	})

	res, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)

	_, statErr := os.Stat(filepath.Join(ins.ModsDir, "jetpack"))
	assert.True(t, os.IsNotExist(statErr))
}

// wreckingChecksummer simulates the mods directory disappearing out from
// under a commit: the digest fails and rollback cannot restore anything.
type wreckingChecksummer struct{ modsDir string }

func (wreckingChecksummer) Digest([]byte) string { return "" }
func (w wreckingChecksummer) DigestTree(string) (string, error) {
	if err := os.RemoveAll(w.modsDir); err != nil {
		return "", err
	}
	if err := os.WriteFile(w.modsDir, []byte("x"), 0o644); err != nil {
		return "", err
	}
	return "", fmt.Errorf("mods directory lost")
}

func TestRollbackFailureReportsInconsistentState(t *testing.T) {
	ins := newTestInstaller(t)
	ins.Checksum = wreckingChecksummer{modsDir: ins.ModsDir}
	zipPath := buildModZip(t, map[string]string{
		"mod.toml":    basicManifest,
		"jetpack.dll": "payload",
	})

	_, err := ins.Install(context.Background(), Request{ArchivePath: zipPath})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeStateInconsistent))
	assert.Contains(t, err.Error(), "rollback failed after")
}

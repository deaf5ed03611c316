package txn

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modfort/modfort/pkg/archive"
	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/host"
	"github.com/modfort/modfort/pkg/manifest"
	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/resolve"
	"github.com/modfort/modfort/pkg/version"
)

// State names one phase of an install transaction. Every state has an
// error edge into RollingBack.
type State string

const (
	StateIdle               State = "idle"
	StateExtracting         State = "extracting"
	StateManifestValidating State = "manifest-validating"
	StateDependencyGating   State = "dependency-gating"
	StateStaging            State = "staging"
	StateCommitting         State = "committing"
	StateDone               State = "done"
	StateRollingBack        State = "rolling-back"
	StateFailed             State = "failed"
)

// Installer runs install transactions. All collaborators are injected;
// the zero value is not usable.
type Installer struct {
	Probe     host.ProcessProbe
	Checksum  host.Checksummer
	Framework host.StatusProvider
	Logger    *log.Logger

	// WorkRoot hosts per-session scratch directories. Empty means the OS
	// temp directory.
	WorkRoot string
	// ModsDir is the destination root; each mod installs into
	// ModsDir/<canonical id>.
	ModsDir string
}

// NewInstaller wires an Installer with default collaborators for any left
// nil.
func NewInstaller(modsDir string) *Installer {
	return &Installer{
		Probe:     host.StaticProbe{},
		Checksum:  host.SHA256{},
		Framework: host.StaticStatus{S: host.FrameworkStatus{Present: true}},
		Logger:    log.Default(),
		ModsDir:   modsDir,
	}
}

// Request describes one install intent.
type Request struct {
	ArchivePath string
	// Overwrite permits replacing an existing install of the same id.
	Overwrite bool
	// AllowAdvisory permits committing despite advisory findings
	// (version conflicts, incompatibilities). Missing dependencies and
	// cycles always block regardless.
	AllowAdvisory bool
	// Installed is the current record set the candidate is resolved
	// against.
	Installed []*mod.Record
}

// Result reports a finished transaction. On failure Record is nil and
// Outcome, when non-nil, carries the resolution findings that blocked it.
type Result struct {
	Record  *mod.Record
	Outcome *resolve.Outcome
	State   State
}

// transaction tracks the mutable state of one Install call.
type transaction struct {
	ins   *Installer
	ctx   *Context
	state State

	target        string
	backup        string
	targetWritten bool // the commit move into target has happened
}

// Install runs the full transaction for req. On any failure after the
// destination has been touched, the prior state is restored exactly; a
// failure before that leaves the destination untouched. The context is
// honored between steps, but not once the commit move begins - that step
// runs to completion.
func (ins *Installer) Install(ctx context.Context, req Request) (*Result, error) {
	logger := ins.Logger
	if logger == nil {
		logger = log.Default()
	}

	// Precondition: refuse while the host process is running, before any
	// I/O. A process starting after this check is a documented residual
	// risk, not a silently ignored one.
	if running, err := ins.Probe.IsHostProcessRunning(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "probe host process")
	} else if running {
		return nil, errors.New(errors.ErrCodeHostRunning,
			"host game process is running; close it and retry")
	}

	tc, err := NewContext(ins.WorkRoot)
	if err != nil {
		return nil, err
	}
	defer tc.Release()

	t := &transaction{ins: ins, ctx: tc, state: StateIdle}

	result, err := t.run(ctx, req, logger)
	if err != nil {
		rbErr := t.rollback()
		if rbErr != nil {
			// Rollback failure is fatal by policy: surface it as an
			// inconsistent-state error wrapping the original cause.
			return result, errors.Wrap(errors.ErrCodeStateInconsistent, rbErr,
				"rollback failed after: %v", err)
		}
		t.state = StateFailed
		if result != nil {
			result.State = t.state
		}
		return result, err
	}
	return result, nil
}

func (t *transaction) run(ctx context.Context, req Request, logger *log.Logger) (*Result, error) {
	start := time.Now()

	// Extracting.
	if err := t.step(ctx, StateExtracting); err != nil {
		return nil, err
	}
	src, err := archive.OpenZip(req.ArchivePath)
	if err != nil {
		return nil, err
	}
	if err := archive.Extract(ctx, src, t.ctx.ExtractDir); err != nil {
		src.Close()
		return nil, err
	}
	src.Close()
	logger.Debug("extracted archive", "path", req.ArchivePath)

	// ManifestValidating.
	if err := t.step(ctx, StateManifestValidating); err != nil {
		return nil, err
	}
	m, root, err := manifest.Locate(t.ctx.ExtractDir)
	if err != nil {
		return nil, err
	}
	entry, err := m.ResolveEntryFile(root)
	if err != nil {
		return nil, err
	}
	m.EntryFile = entry
	if err := t.gateFramework(m); err != nil {
		return nil, err
	}
	logger.Debug("validated manifest", "id", m.ID, "version", m.Version)

	candidate, err := m.Record()
	if err != nil {
		return nil, err
	}

	// Duplicate guard before any destination work.
	t.target = t.ins.targetFor(candidate.ID)
	if !req.Overwrite {
		if _, statErr := os.Stat(t.target); statErr == nil {
			return nil, errors.New(errors.ErrCodeAlreadyInstalled,
				"%s is already installed", candidate.ID)
		}
		for _, r := range req.Installed {
			if mod.CanonicalID(r.ID) == candidate.ID {
				return nil, errors.New(errors.ErrCodeAlreadyInstalled,
					"%s is already installed", candidate.ID)
			}
		}
	}

	// DependencyGating: resolve (installed ∪ candidate) before touching
	// the destination. A block here leaves it untouched.
	if err := t.step(ctx, StateDependencyGating); err != nil {
		return nil, err
	}
	hypothetical := append(append([]*mod.Record(nil), req.Installed...), candidate)
	outcome := resolve.Resolve(hypothetical, resolve.Options{})
	result := &Result{Outcome: outcome, State: t.state}
	if !outcome.OK {
		return result, errors.New(errors.ErrCodeDependencyBlocked,
			"dependency resolution failed:\n%s", outcome.Summary())
	}
	if outcome.Advisory() && !req.AllowAdvisory {
		return result, errors.New(errors.ErrCodeDependencyBlocked,
			"advisory findings block the install:\n%s", outcome.Summary())
	}

	// Staging: copy the validated package into a directory distinct from
	// both the extraction area and the destination.
	if err := t.step(ctx, StateStaging); err != nil {
		return result, err
	}
	if err := copyTree(root, t.ctx.StagingDir); err != nil {
		return result, err
	}

	// Committing: move the old install aside, then the staged dir in.
	// Move semantics keep the inconsistency window to two renames. Not
	// cancellable: from here the transaction runs to completion.
	if err := t.step(ctx, StateCommitting); err != nil {
		return result, err
	}
	if _, statErr := os.Stat(t.target); statErr == nil {
		t.backup = t.ctx.BackupPath(t.target, time.Now())
		if err := os.Rename(t.target, t.backup); err != nil {
			t.backup = ""
			return result, errors.Wrap(errors.ErrCodeFilesystem, err, "move existing install aside")
		}
		t.ctx.BackupDir = t.backup
	}
	if err := moveDir(t.ctx.StagingDir, t.target); err != nil {
		return result, err
	}
	t.targetWritten = true

	checksum, err := t.ins.checksummer().DigestTree(t.target)
	if err != nil {
		return result, err
	}

	now := time.Now().UTC()
	candidate.Enabled = true
	candidate.InstallPath = t.target
	candidate.Checksum = checksum
	candidate.InstalledAt = now
	candidate.UpdatedAt = now

	// Success: the backup is no longer needed.
	if t.backup != "" {
		if err := os.RemoveAll(t.backup); err != nil {
			return result, errors.Wrap(errors.ErrCodeFilesystem, err, "remove backup")
		}
		t.backup = ""
	}

	t.state = StateDone
	result.Record = candidate
	result.State = StateDone
	logger.Info("installed mod",
		"id", candidate.ID,
		"version", candidate.Version,
		"duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// step advances the state machine, honoring cooperative cancellation at
// the boundary between states.
func (t *transaction) step(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "cancelled before %s", next)
	}
	t.state = next
	return nil
}

// rollback restores the pre-transaction state: delete any partially
// written destination, put the backup back, drop staging. Idempotent, and
// never raises on already-absent targets.
func (t *transaction) rollback() error {
	t.state = StateRollingBack

	if t.targetWritten || t.backup != "" {
		if err := os.RemoveAll(t.target); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "remove partial install %s", t.target)
		}
		t.targetWritten = false
	}
	if t.backup != "" {
		if _, err := os.Stat(t.backup); err == nil {
			if err := os.Rename(t.backup, t.target); err != nil {
				return errors.Wrap(errors.ErrCodeFilesystem, err, "restore backup %s", t.backup)
			}
		}
		t.backup = ""
	}
	// Staging and extraction live under the session dir; Release handles
	// them even if this rollback never ran.
	os.RemoveAll(t.ctx.StagingDir)
	return nil
}

// gateFramework enforces the manifest's minimum host-framework version.
func (t *transaction) gateFramework(m *manifest.Manifest) error {
	if m.MinFrameworkVersion == "" {
		return nil
	}
	status, err := t.ins.framework().Status()
	if err != nil {
		return err
	}
	if !status.Present {
		return errors.New(errors.ErrCodeDependencyBlocked,
			"package requires host framework >=%s but none is installed", m.MinFrameworkVersion)
	}
	if status.Version == "" {
		return nil
	}
	ok, err := version.Satisfies(status.Version, ">="+m.MinFrameworkVersion)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeDependencyBlocked,
			"host framework %s is older than required %s", status.Version, m.MinFrameworkVersion)
	}
	return nil
}

func (ins *Installer) targetFor(id string) string {
	return filepath.Join(ins.ModsDir, mod.CanonicalID(id))
}

func (ins *Installer) checksummer() host.Checksummer {
	if ins.Checksum == nil {
		return host.SHA256{}
	}
	return ins.Checksum
}

func (ins *Installer) framework() host.StatusProvider {
	if ins.Framework == nil {
		return host.StaticStatus{S: host.FrameworkStatus{Present: true}}
	}
	return ins.Framework
}

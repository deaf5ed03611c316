// Package repo coordinates the mod repository: the installed-record
// store, the transactional installer, and the resolver.
//
// # Usage
//
// Construct a Repository with New, then drive it through Install,
// Uninstall, SetEnabled, List and Resolve. All mutating operations take
// an internal lock, so a Repository is safe for concurrent use, with a
// single writer at a time.
//
// Every successful mutation ends the same way: the record store is
// updated, and the load-order artifact is rewritten from a fresh
// resolution of the enabled set. Readers of that artifact therefore
// always see an order consistent with the records on disk.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/observability"
	"github.com/modfort/modfort/pkg/resolve"
	"github.com/modfort/modfort/pkg/store"
	"github.com/modfort/modfort/pkg/txn"
	"github.com/modfort/modfort/pkg/version"
)

// Repository is the single entry point for mutating the installed set.
type Repository struct {
	mu sync.Mutex

	store     store.Store
	installer *txn.Installer
	logger    *log.Logger

	// loadOrderPath is where the resolved order artifact is written after
	// each successful mutation. Empty disables the artifact.
	loadOrderPath string
	priority      mod.PriorityPolicy
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the repository logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithLoadOrderPath sets where the load-order artifact is written.
func WithLoadOrderPath(path string) Option {
	return func(r *Repository) { r.loadOrderPath = path }
}

// WithPriority overrides the duplicate-resolution priority policy.
func WithPriority(p mod.PriorityPolicy) Option {
	return func(r *Repository) { r.priority = p }
}

// New builds a Repository over a store and an installer.
func New(st store.Store, ins *txn.Installer, opts ...Option) *Repository {
	r := &Repository{
		store:     st,
		installer: ins,
		logger:    log.Default(),
		priority:  mod.DefaultPriority,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InstallOptions mirror the transaction request knobs.
type InstallOptions struct {
	Overwrite     bool
	AllowAdvisory bool
}

// List returns all installed records, duplicates collapsed by the
// repository's priority policy, sorted by id.
func (r *Repository) List() ([]*mod.Record, error) {
	records, err := r.store.List()
	if err != nil {
		return nil, err
	}
	observability.Store().OnStoreRead(context.Background(), "list")
	records = mod.Dedupe(records, r.priority)
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Get returns the record for id, or nil when not installed.
func (r *Repository) Get(id string) (*mod.Record, error) {
	rec, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	observability.Store().OnStoreRead(context.Background(), "get")
	return rec, nil
}

// Resolve runs dependency resolution over the enabled set and returns
// the outcome. Read-only: no state changes regardless of findings.
func (r *Repository) Resolve() (*resolve.Outcome, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}
	enabled := enabledOnly(records)

	start := time.Now()
	ctx := context.Background()
	observability.Resolve().OnResolveStart(ctx, len(enabled))
	outcome := resolve.Resolve(enabled, resolve.Options{Priority: r.priority})
	observability.Resolve().OnResolveComplete(ctx, len(enabled),
		len(outcome.Missing), len(outcome.Conflicts), len(outcome.Cycles), time.Since(start))
	return outcome, nil
}

// Install runs an install transaction for the archive at path, persists
// the resulting record, and rewrites the load-order artifact.
func (r *Repository) Install(ctx context.Context, archivePath string, opts InstallOptions) (result *txn.Result, retErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	observability.Transaction().OnInstallStart(ctx, archivePath)
	defer func() {
		id := ""
		if result != nil && result.Record != nil {
			id = result.Record.ID
		}
		observability.Transaction().OnInstallComplete(ctx, id, time.Since(start), retErr)
	}()

	snapshot, err := r.List()
	if err != nil {
		return nil, err
	}

	res, err := r.installer.Install(ctx, txn.Request{
		ArchivePath:   archivePath,
		Overwrite:     opts.Overwrite,
		AllowAdvisory: opts.AllowAdvisory,
		Installed:     snapshot,
	})
	if err != nil {
		if res != nil && res.State == txn.StateFailed {
			observability.Transaction().OnRollback(ctx, archivePath, err)
		}
		return res, err
	}
	rec := res.Record

	// Re-check the store after the commit. The lock makes a collision
	// impossible from this process; an external writer is not. On a
	// collision the freshly written files are removed, keeping the rule
	// that a failed install leaves no trace.
	if !opts.Overwrite {
		existing, err := r.store.Get(rec.ID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			if rmErr := os.RemoveAll(rec.InstallPath); rmErr != nil {
				return res, errors.Wrap(errors.ErrCodeStateInconsistent, rmErr,
					"remove colliding install %s", rec.InstallPath)
			}
			return res, errors.New(errors.ErrCodeAlreadyInstalled,
				"%s was installed concurrently", rec.ID)
		}
	}

	if err := r.store.Put(rec); err != nil {
		return res, err
	}
	observability.Store().OnStoreWrite(ctx, "put", rec.ID)
	r.rewriteLoadOrder()
	return res, nil
}

// Uninstall removes a mod's files and record. Blocked while any
// installed mod, enabled or not, declares a non-optional dependency on
// it; the error names every blocking dependent.
func (r *Repository) Uninstall(ctx context.Context, id string) (retErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	observability.Transaction().OnUninstallStart(ctx, id)
	defer func() {
		observability.Transaction().OnUninstallComplete(ctx, id, time.Since(start), retErr)
	}()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "cancelled")
	}
	if running, err := r.installer.Probe.IsHostProcessRunning(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "probe host process")
	} else if running {
		return errors.New(errors.ErrCodeHostRunning,
			"host game process is running; close it and retry")
	}

	cid := mod.CanonicalID(id)
	rec, err := r.store.Get(cid)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New(errors.ErrCodeNotInstalled, "%s is not installed", cid)
	}

	records, err := r.List()
	if err != nil {
		return err
	}
	if dependents := requiredBy(records, cid, false); len(dependents) > 0 {
		return errors.New(errors.ErrCodeUninstallBlocked,
			"%s is required by: %s", cid, strings.Join(dependents, ", "))
	}

	if rec.InstallPath != "" {
		if err := r.removeInstallDir(rec.InstallPath); err != nil {
			return err
		}
	}
	if err := r.store.Delete(cid); err != nil {
		return err
	}
	observability.Store().OnStoreWrite(ctx, "delete", cid)
	r.logger.Info("uninstalled mod", "id", cid)
	r.rewriteLoadOrder()
	return nil
}

// SetEnabled flips a mod's enabled flag. Enabling re-gates the full
// enabled set as if the mod were already enabled; disabling is blocked
// while enabled mods require it.
func (r *Repository) SetEnabled(ctx context.Context, id string, enabled, allowAdvisory bool) (*resolve.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cancelled")
	}

	cid := mod.CanonicalID(id)
	rec, err := r.store.Get(cid)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New(errors.ErrCodeNotInstalled, "%s is not installed", cid)
	}
	if rec.Enabled == enabled {
		return nil, nil
	}

	records, err := r.List()
	if err != nil {
		return nil, err
	}

	if !enabled {
		if dependents := requiredBy(records, cid, true); len(dependents) > 0 {
			return nil, errors.New(errors.ErrCodeUninstallBlocked,
				"%s is required by: %s", cid, strings.Join(dependents, ", "))
		}
	} else {
		// Gate against the hypothetical enabled set.
		hypothetical := make([]*mod.Record, 0, len(records))
		for _, other := range records {
			if other.ID == cid {
				clone := *other
				clone.Enabled = true
				hypothetical = append(hypothetical, &clone)
				continue
			}
			hypothetical = append(hypothetical, other)
		}
		outcome := resolve.Resolve(enabledOnly(hypothetical), resolve.Options{Priority: r.priority})
		if !outcome.OK {
			summary := outcome.Summary()
			if notes := disabledDepNotes(records, outcome); len(notes) > 0 {
				summary += "\n" + strings.Join(notes, "\n")
			}
			return outcome, errors.New(errors.ErrCodeDependencyBlocked,
				"enabling %s fails resolution:\n%s", cid, summary)
		}
		if outcome.Advisory() && !allowAdvisory {
			return outcome, errors.New(errors.ErrCodeDependencyBlocked,
				"advisory findings block enabling %s:\n%s", cid, outcome.Summary())
		}
	}

	rec.Enabled = enabled
	if err := r.store.Put(rec); err != nil {
		return nil, err
	}
	observability.Store().OnStoreWrite(ctx, "put", cid)
	r.logger.Info("set enabled", "id", cid, "enabled", enabled)
	r.rewriteLoadOrder()
	return nil, nil
}

// SyncLoadOrder regenerates the load-order artifact from the current
// enabled set. Unlike the best-effort rewrite that follows a mutation,
// a set that does not resolve is an error here.
func (r *Repository) SyncLoadOrder() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadOrderPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no load-order path configured")
	}
	records, err := r.List()
	if err != nil {
		return err
	}
	outcome := resolve.Resolve(enabledOnly(records), resolve.Options{Priority: r.priority})
	if !outcome.OK {
		return errors.New(errors.ErrCodeDependencyBlocked, "enabled set does not resolve; artifact left untouched")
	}
	return store.WriteLoadOrder(r.loadOrderPath, outcome.Order)
}

// rewriteLoadOrder regenerates the artifact from the current enabled
// set. Best effort after a successful mutation: a failure is logged, the
// mutation itself has already been persisted.
func (r *Repository) rewriteLoadOrder() {
	if r.loadOrderPath == "" {
		return
	}
	records, err := r.List()
	if err != nil {
		r.logger.Warn("load-order rewrite skipped", "err", err)
		return
	}
	outcome := resolve.Resolve(enabledOnly(records), resolve.Options{Priority: r.priority})
	if !outcome.OK {
		r.logger.Warn("load-order rewrite skipped: enabled set does not resolve")
		return
	}
	if err := store.WriteLoadOrder(r.loadOrderPath, outcome.Order); err != nil {
		r.logger.Warn("load-order rewrite failed", "err", err)
	}
}

// removeInstallDir deletes an install directory, refusing paths outside
// the mods root.
func (r *Repository) removeInstallDir(path string) error {
	root := r.installer.ModsDir
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New(errors.ErrCodeStateInconsistent,
			"install path %s is outside the mods directory", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "remove %s", path)
	}
	return nil
}

// requiredBy lists records with a non-optional dependency on id, sorted.
// With activeOnly, disabled dependents are ignored: uninstall checks the
// whole installed set, disable only what actually loads.
func requiredBy(records []*mod.Record, id string, activeOnly bool) []string {
	var out []string
	for _, rec := range records {
		if rec.ID == id || (activeOnly && !rec.Enabled) {
			continue
		}
		for _, dep := range rec.Dependencies {
			if dep.Optional {
				continue
			}
			if mod.CanonicalID(dep.ID) == id {
				out = append(out, rec.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// disabledDepNotes annotates missing findings whose dependency is in
// fact installed but disabled. Resolution over the enabled set cannot
// see those records, so the version diagnostic is restored here.
func disabledDepNotes(records []*mod.Record, outcome *resolve.Outcome) []string {
	byID := make(map[string]*mod.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	var notes []string
	for _, m := range outcome.Missing {
		rec, ok := byID[mod.CanonicalID(m.ID)]
		if !ok || rec.Enabled {
			continue
		}
		note := fmt.Sprintf("%s %s is installed but disabled", rec.ID, rec.Version)
		if m.VersionRange != "" {
			if sat, err := version.Satisfies(rec.Version, m.VersionRange); err == nil && !sat {
				note += fmt.Sprintf(" and does not satisfy %s", m.VersionRange)
			}
		}
		notes = append(notes, note)
	}
	return notes
}

func enabledOnly(records []*mod.Record) []*mod.Record {
	out := make([]*mod.Record, 0, len(records))
	for _, rec := range records {
		if rec.Enabled {
			out = append(out, rec)
		}
	}
	return out
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modfort/modfort/pkg/host"
	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/repo"
	"github.com/modfort/modfort/pkg/store"
	"github.com/modfort/modfort/pkg/txn"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the modfort CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands, configures
// logging based on the --verbose flag, and executes the command tree
// under ctx, so a cancelled ctx aborts in-flight commands between
// transaction steps. The logger is attached to the context and
// accessible to all commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "modfort",
		Short:        "Modfort installs and manages game mods",
		Long:         `Modfort is a local mod manager: it installs mod archives transactionally, tracks what is installed, resolves dependencies between mods, and computes a safe load order.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("modfort %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/modfort/config.toml)")

	root.AddCommand(newInstallCmd(&configPath))
	root.AddCommand(newUninstallCmd(&configPath))
	root.AddCommand(newEnableCmd(&configPath))
	root.AddCommand(newDisableCmd(&configPath))
	root.AddCommand(newListCmd(&configPath))
	root.AddCommand(newCheckCmd(&configPath))
	root.AddCommand(newOrderCmd(&configPath))
	root.AddCommand(newGraphCmd(&configPath))
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}

// openRepository builds the repository stack from configuration: store
// backend, installer, probes. The returned cleanup closes the store.
func openRepository(cmd *cobra.Command, configPath string) (*repo.Repository, func(), error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := loggerFromContext(cmd.Context())

	stateDir := cfg.StateDir()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create state dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ModsDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create mods dir: %w", err)
	}

	var st store.Store
	switch cfg.Store.Backend {
	case "sqlite":
		st, err = store.NewSQLiteStore(filepath.Join(stateDir, "modfort.db"))
	default:
		st, err = store.NewFileStore(filepath.Join(stateDir, "records"))
	}
	if err != nil {
		return nil, nil, err
	}

	ins := txn.NewInstaller(cfg.ModsDir())
	ins.WorkRoot = cfg.Paths.WorkDir
	ins.Logger = logger
	if cfg.Host.ProcessName != "" {
		ins.Probe = host.ProcProbe{Name: cfg.Host.ProcessName}
	}
	if cfg.Host.LoaderPath != "" {
		ins.Framework = host.FileStatusProvider{
			LoaderPath:  cfg.Host.LoaderPath,
			VersionPath: cfg.Host.VersionPath,
			GameDir:     cfg.Paths.GameDir,
		}
	}

	r := repo.New(st, ins,
		repo.WithLogger(logger),
		repo.WithLoadOrderPath(cfg.LoadOrderPath()),
		repo.WithPriority(priorityPolicy(cfg.Resolver.DuplicatePriority)),
	)
	return r, func() { st.Close() }, nil
}

// priorityPolicy maps config rule names onto the resolver policy,
// silently skipping unknown names so an old config keeps working.
func priorityPolicy(names []string) mod.PriorityPolicy {
	var policy mod.PriorityPolicy
	for _, name := range names {
		switch mod.PriorityRule(name) {
		case mod.PreferEnabled, mod.PreferRicherMetadata, mod.PreferHigherVersion, mod.PreferNewerInstall:
			policy = append(policy, mod.PriorityRule(name))
		}
	}
	if len(policy) == 0 {
		return mod.DefaultPriority
	}
	return policy
}

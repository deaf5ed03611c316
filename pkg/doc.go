// Package pkg provides the core libraries for Modfort mod management.
//
// # Overview
//
// Modfort installs plugin-style game mods from zip archives, tracks what
// is installed, and keeps the installed set loadable. The pkg directory
// is organized into three main areas:
//
//  1. Domain logic: [manifest], [mod], [resolve], [version]
//  2. Installation machinery: [archive], [txn], [repo], [host]
//  3. Supporting infrastructure: [store], [render], [errors], [observability]
//
// # Architecture
//
// The typical data flow through Modfort:
//
//	Mod archive (.zip)
//	         ↓
//	    [archive] package (safe extraction)
//	         ↓
//	    [manifest] package (descriptor parsing + validation)
//	         ↓
//	    [resolve] package (dependency resolution + load order)
//	         ↓
//	    [txn] package (staged, reversible install)
//	         ↓
//	    [repo] + [store] packages (records + load-order artifact)
//
// # Quick Start
//
//	st, _ := store.NewFileStore("/games/fort/mods/.modfort/records")
//	ins := txn.NewInstaller("/games/fort/mods")
//	r := repo.New(st, ins)
//	res, err := r.Install(ctx, "jetpack-1.2.0.zip", repo.InstallOptions{})
//
// [archive]: github.com/modfort/modfort/pkg/archive
// [manifest]: github.com/modfort/modfort/pkg/manifest
// [mod]: github.com/modfort/modfort/pkg/mod
// [resolve]: github.com/modfort/modfort/pkg/resolve
// [version]: github.com/modfort/modfort/pkg/version
// [txn]: github.com/modfort/modfort/pkg/txn
// [repo]: github.com/modfort/modfort/pkg/repo
// [host]: github.com/modfort/modfort/pkg/host
// [store]: github.com/modfort/modfort/pkg/store
// [render]: github.com/modfort/modfort/pkg/render
// [errors]: github.com/modfort/modfort/pkg/errors
// [observability]: github.com/modfort/modfort/pkg/observability
package pkg

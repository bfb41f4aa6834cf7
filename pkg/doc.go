// Package pkg provides the libraries behind packforge.
//
// # Overview
//
// Packforge works out which framework packs a .NET build needs and gets
// them onto disk. The pkg directory is organized by stage:
//
//  1. [rid] - Runtime identifier compatibility graph and best-match lookup
//  2. [framework] - Targeting, runtime and crossgen pack selection
//  3. [conflicts] - Package file conflict resolution with package overrides
//  4. [workload] - Transactional workload pack installation and garbage collection
//  5. [assets] - Dependency graph extraction from project lock files
//  6. [pipeline] - Orchestration (plan → acquire, extract → render)
//
// Supporting packages: [version] (numeric and semantic versions), [packroot]
// (pack lookup on disk), [cache] (selection and feed caches), [httputil]
// (feed HTTP plumbing), [dag] (directed graphs), [io] (graph JSON),
// [render/nodelink] (DOT and SVG), [observability] (metrics hooks), [errors]
// (error codes and diagnostics) and [buildinfo].
//
// # Architecture
//
//	known-pack catalog + RID graph + framework references
//	         ↓
//	    [framework] Selector (packs to download, runtime packs, crossgen)
//	         ↓
//	    [workload] Installer (fetch, verify, extract, record; all or nothing)
//
//	project.assets.json
//	         ↓
//	    [assets] Extract (targets, packages, files, edges)
//	         ↓
//	    JSON / DOT / SVG
//
// # Quick Start
//
//	cat, _ := framework.LoadCatalogFile("catalog.toml")
//	g, _ := rid.LoadFile("runtime.json")
//	sel := &framework.Selector{Catalog: cat, Graph: g}
//
//	res, _ := sel.Select(framework.Request{
//	    TargetFramework:     "net8.0",
//	    FrameworkReferences: []framework.FrameworkReference{{Name: "Microsoft.NETCore.App"}},
//	    RuntimeIdentifier:   "linux-x64",
//	    SelfContained:       true,
//	})
//	for _, p := range res.PackagesToDownload {
//	    fmt.Println(p.ID, p.Version)
//	}
//
// # Errors
//
// Fatal errors are *[errors.Error] values carrying a machine-readable code.
// Resolution problems that should not stop a build (ambiguous catalog
// entries, unknown RIDs, missing runtime packs) are collected as
// [errors.Diagnostics] on the result instead.
package pkg

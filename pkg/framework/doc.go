// Package framework selects the packs a project build needs for each shared
// framework it references.
//
// For every framework reference the [Selector] picks:
//
//   - the runtime framework version, from the reference, then the project,
//     then the catalog according to a [VersionPolicy]
//   - the targeting pack, downloaded unless already present under a pack root
//   - the runtime pack for each requested RID, matched on exact labels and
//     walked through the RID graph
//
// and, for ahead-of-time builds, the crossgen pack for the host machine.
//
// The known packs come from a TOML [Catalog]:
//
//	[[runtime_pack]]
//	runtime_framework_name = "Microsoft.NETCore.App"
//	target_framework = "net8.0"
//	name_pattern = "Microsoft.NETCore.App.Runtime.**RID**"
//	runtime_identifiers = ["linux-x64", "win-x64"]
//	latest_version = "8.0.5"
//
// Selection never stops at the first problem. Ambiguous catalogs, unknown
// RIDs and missing host support land in Result.Diagnostics; use
// Result.Diagnostics.Err to turn them into an error.
package framework

// Package assets flattens a resolved project into lists a build consumes.
//
// The input [Model] is what restore decided: targets (framework plus an
// optional RID), libraries (packages or referenced projects) and, per
// target, each library's dependencies and asset groups. [Extract] turns it
// into a [Graph] of definitions (targets, packages, files) and two edge
// lists: package to package, and file to package grouped by asset role.
//
// A file must have one type across every group it appears in. A file that is
// a managed assembly in one group and a native library in another means the
// model is corrupt, and Extract fails with CONTRACT_VIOLATION instead of
// picking one.
//
// [ReadModel] decodes the subset of a project lock file packforge uses;
// [Graph.ToDAG] exports the package graph of one target for rendering.
package assets

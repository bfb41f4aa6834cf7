// Package conflicts decides which of several candidate files wins when they
// would occupy the same compile-time name, analyzer name or output path.
//
// Candidates come from package references, analyzers, copy-local files,
// other runtime files and the shared framework's platform manifest. Losers
// are removed from (or, for references, no longer deployed with) the build
// and reported as [Conflict] values so callers can explain the outcome.
package conflicts

package conflicts

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/errors"
)

// Input is the set of candidate files for one project build.
type Input struct {
	References        []*Item // Compile references; Private marks copy-local references
	Analyzers         []*Item
	CopyLocal         []*Item // Files copied to the output directory
	OtherRuntimeItems []*Item // Runtime files that are never removed, only compared against
	PlatformItems     []*Item // Files shipped by the shared framework (see ParsePlatformManifest)
	PreferredPackages []string
	Overrides         []PackageOverride
	Logger            *log.Logger
}

// Conflict records one losing candidate.
type Conflict struct {
	Item      *Item
	Type      ItemType
	PackageID string
	Winner    *Item
	Reason    Reason
}

// Output holds the de-conflicted lists. Input items are never mutated;
// references that stop being copy-local are returned as copies.
type Output struct {
	ReferencesWithoutConflicts []*Item
	AnalyzersWithoutConflicts  []*Item
	CopyLocalWithoutConflicts  []*Item
	Conflicts                  []Conflict
	// CompilePlatformWinners lists platform items that beat a reference in
	// the compile pass, in the order they first won.
	CompilePlatformWinners []*Item
}

// ResolvePackageFileConflicts runs the compile, analyzer and runtime passes
// over in and returns the surviving items.
//
// The compile pass matches references and platform items by simple assembly
// name; losing references are removed. The analyzer pass matches analyzers
// by file name. The runtime pass matches copy-local files, other runtime
// files, copy-local references and platform items by destination path; a
// losing copy-local file is removed and a losing reference is kept for
// compilation but no longer deployed.
func ResolvePackageFileConflicts(in Input) (*Output, error) {
	index, err := NewOverrideIndex(in.Overrides)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(index, in.PreferredPackages, in.Logger)

	var (
		out             Output
		lost            = newItemSet()
		referenceLosers = newItemSet()
		analyzerLosers  = newItemSet()
		copyLocalLosers = newItemSet()
		notCopyLocal    = newItemSet()
		platformWinners = newItemSet()
	)
	record := func(winner, loser *Item, reason Reason) {
		if lost.add(loser) {
			out.Conflicts = append(out.Conflicts, Conflict{
				Item:      loser,
				Type:      loser.Type,
				PackageID: loser.PackageID,
				Winner:    winner,
				Reason:    reason,
			})
		}
	}

	compile := make([]*Item, 0, len(in.PlatformItems)+len(in.References))
	compile = append(compile, in.PlatformItems...)
	compile = append(compile, in.References...)
	resolver.Resolve(compile, (*Item).ReferenceKey, func(winner, loser *Item, reason Reason) {
		record(winner, loser, reason)
		if loser.Type == Reference {
			referenceLosers.add(loser)
			if winner.Type == Platform {
				platformWinners.add(winner)
			}
		}
	})

	resolver.Resolve(in.Analyzers, (*Item).AnalyzerKey, func(winner, loser *Item, reason Reason) {
		record(winner, loser, reason)
		analyzerLosers.add(loser)
	})

	runtime := make([]*Item, 0, len(in.PlatformItems)+len(in.CopyLocal)+len(in.OtherRuntimeItems)+len(in.References))
	runtime = append(runtime, in.PlatformItems...)
	runtime = append(runtime, in.CopyLocal...)
	runtime = append(runtime, in.OtherRuntimeItems...)
	for _, ref := range in.References {
		if ref.Private && !referenceLosers.has(ref) {
			runtime = append(runtime, ref)
		}
	}
	resolver.Resolve(runtime, (*Item).RuntimeKey, func(winner, loser *Item, reason Reason) {
		record(winner, loser, reason)
		switch loser.Type {
		case CopyLocal:
			copyLocalLosers.add(loser)
		case Reference:
			notCopyLocal.add(loser)
		}
	})

	refs, err := RemoveConflicts(in.References, referenceLosers.items)
	if err != nil {
		return nil, err
	}
	for i, ref := range refs {
		if notCopyLocal.has(ref) {
			clone := *ref
			clone.Private = false
			refs[i] = &clone
		}
	}
	out.ReferencesWithoutConflicts = refs

	if out.AnalyzersWithoutConflicts, err = RemoveConflicts(in.Analyzers, analyzerLosers.items); err != nil {
		return nil, err
	}
	if out.CopyLocalWithoutConflicts, err = RemoveConflicts(in.CopyLocal, copyLocalLosers.items); err != nil {
		return nil, err
	}
	out.CompilePlatformWinners = platformWinners.items
	return &out, nil
}

// RemoveConflicts returns items without any of excluded, keeping order.
// Exclusion is by instance and removes every occurrence, so an instance
// listed twice in items shortens the result by two: [X, X, Y] without X is
// [Y]. An equal but distinct instance stays. An excluded item that does not
// occur in items is a contract violation.
func RemoveConflicts(items, excluded []*Item) ([]*Item, error) {
	if len(excluded) == 0 {
		return append([]*Item(nil), items...), nil
	}
	drop := newItemSet()
	for _, e := range excluded {
		drop.add(e)
	}
	seen := newItemSet()
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if drop.has(it) {
			seen.add(it)
			continue
		}
		out = append(out, it)
	}
	if seen.len() != drop.len() {
		for _, e := range drop.items {
			if !seen.has(e) {
				return nil, errors.ContractViolation("excluded item %s is not among the candidates", e)
			}
		}
	}
	return out, nil
}

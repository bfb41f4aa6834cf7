package conflicts

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/version"
)

// Reason records which rule decided a conflict.
type Reason int

const (
	ReasonPackageOverride Reason = iota
	ReasonPlatform
	ReasonPreferredPackage
	ReasonAssemblyVersion
	ReasonFileVersion
	ReasonInputOrder
)

func (r Reason) String() string {
	switch r {
	case ReasonPackageOverride:
		return "package override"
	case ReasonPlatform:
		return "platform item"
	case ReasonPreferredPackage:
		return "preferred package"
	case ReasonAssemblyVersion:
		return "higher assembly version"
	case ReasonFileVersion:
		return "higher file version"
	default:
		return "input order"
	}
}

// Resolver picks one winner among candidates that share a key.
//
// Rules are applied in order and the first one that distinguishes the two
// candidates decides:
//
//  1. a package override between the owning packages
//  2. a Platform item beats any other type
//  3. the package listed earliest in PreferredPackages
//  4. the higher assembly version, then the higher file version, compared
//     only when both candidates carry one
//  5. the candidate seen first
type Resolver struct {
	Overrides         *OverrideIndex
	PreferredPackages []string
	Logger            *log.Logger
}

// NewResolver creates a resolver. overrides may be nil.
func NewResolver(overrides *OverrideIndex, preferred []string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{Overrides: overrides, PreferredPackages: preferred, Logger: logger}
}

// Resolve walks candidates in order, keeping one winner per key. onLoser is
// called once for every candidate that loses. A candidate that is the same
// instance as the current winner for its key is not a conflict and is
// skipped. An empty key never conflicts.
func (r *Resolver) Resolve(candidates []*Item, key func(*Item) string, onLoser func(winner, loser *Item, reason Reason)) {
	winners := make(map[string]*Item)
	for _, c := range candidates {
		k := key(c)
		if k == "" {
			continue
		}
		current, ok := winners[k]
		if !ok {
			winners[k] = c
			continue
		}
		if current == c {
			continue
		}
		winner, reason := r.Choose(current, c)
		loser := c
		if winner == c {
			loser = current
			winners[k] = c
		}
		r.logger().Debug("conflict resolved",
			"key", k, "winner", winner.SourcePath, "loser", loser.SourcePath, "reason", reason)
		onLoser(winner, loser, reason)
	}
}

// Choose returns the winner between two conflicting candidates, first being
// the one seen earlier, and the rule that decided it.
func (r *Resolver) Choose(first, second *Item) (*Item, Reason) {
	if r.Overrides.Overrides(first, second) {
		return first, ReasonPackageOverride
	}
	if r.Overrides.Overrides(second, first) {
		return second, ReasonPackageOverride
	}

	if first.Type == Platform && second.Type != Platform {
		return first, ReasonPlatform
	}
	if second.Type == Platform && first.Type != Platform {
		return second, ReasonPlatform
	}

	if w := r.preferredWinner(first, second); w != nil {
		return w, ReasonPreferredPackage
	}

	if c, ok := version.CompareNumericStrings(first.AssemblyVersion, second.AssemblyVersion); ok && c != 0 {
		if c > 0 {
			return first, ReasonAssemblyVersion
		}
		return second, ReasonAssemblyVersion
	}
	if c, ok := version.CompareNumericStrings(first.FileVersion, second.FileVersion); ok && c != 0 {
		if c > 0 {
			return first, ReasonFileVersion
		}
		return second, ReasonFileVersion
	}

	r.logger().Debug("could not determine a winner, keeping the first candidate",
		"first", first.SourcePath, "second", second.SourcePath)
	return first, ReasonInputOrder
}

func (r *Resolver) preferredWinner(a, b *Item) *Item {
	if len(r.PreferredPackages) == 0 {
		return nil
	}
	ra, okA := r.preferredRank(a.PackageID)
	rb, okB := r.preferredRank(b.PackageID)
	switch {
	case okA && okB && ra != rb:
		if ra < rb {
			return a
		}
		return b
	case okA && !okB:
		return a
	case okB && !okA:
		return b
	}
	return nil
}

func (r *Resolver) preferredRank(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for i, p := range r.PreferredPackages {
		if strings.EqualFold(p, id) {
			return i, true
		}
	}
	return 0, false
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

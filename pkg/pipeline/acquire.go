package pipeline

import (
	"strings"

	"github.com/matzehuels/packforge/pkg/framework"
	"github.com/matzehuels/packforge/pkg/workload"
)

// PacksFor lists the packs a selection needs on disk, in the order of
// PackagesToDownload. Kind and RID come from the matching runtime or
// crossgen item; a package with no such item, such as a targeting pack or a
// runtime pack of a framework-dependent build, is a framework pack. Each pack
// appears once.
func PacksFor(sel *framework.Result) []workload.PackInfo {
	if sel == nil {
		return nil
	}
	key := func(id, version string) string {
		return strings.ToLower(id) + "/" + strings.ToLower(version)
	}
	typed := make(map[string]workload.PackInfo)
	for _, rp := range sel.RuntimePacks {
		typed[key(rp.Name, rp.Version)] = workload.PackInfo{Kind: workload.KindFramework, RID: rp.RuntimeIdentifier}
	}
	for _, cp := range sel.CrossgenPacks {
		typed[key(cp.Name, cp.Version)] = workload.PackInfo{Kind: workload.KindTool, RID: cp.RuntimeIdentifier}
	}

	var packs []workload.PackInfo
	seen := make(map[string]bool)
	for _, d := range sel.PackagesToDownload {
		p, ok := typed[key(d.ID, d.Version)]
		if !ok {
			p.Kind = workload.KindFramework
		}
		p.ID, p.Version = d.ID, d.Version
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		packs = append(packs, p)
	}
	return packs
}

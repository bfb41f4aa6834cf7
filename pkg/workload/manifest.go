package workload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/rid"
)

// ManifestFileName is the file each manifest directory holds.
const ManifestFileName = "WorkloadManifest.json"

// Manifest is one workload manifest: the workloads it defines and the packs
// those workloads are made of.
type Manifest struct {
	ID        string                  `json:"-"`
	Version   string                  `json:"version"`
	Workloads map[string]WorkloadDef  `json:"workloads"`
	Packs     map[string]ManifestPack `json:"packs"`
}

// WorkloadDef lists the packs of one workload.
type WorkloadDef struct {
	Description string   `json:"description,omitempty"`
	Packs       []string `json:"packs"`
	Extends     []string `json:"extends,omitempty"`
	// Platforms restricts the workload to hosts matching one of these RIDs.
	Platforms []string `json:"platforms,omitempty"`
}

// ManifestPack declares a pack. AliasTo maps host RIDs to the package that
// implements the pack on that host.
type ManifestPack struct {
	Kind    PackKind          `json:"kind"`
	Version string            `json:"version"`
	AliasTo map[string]string `json:"alias-to,omitempty"`
}

// ManifestProvider reads manifests from <Dir>/<band>/<manifest-id>/WorkloadManifest.json.
type ManifestProvider struct {
	Dir string
	// Graph resolves alias-to and platform RIDs; nil means exact matches only.
	Graph *rid.Graph
	// HostRID picks pack aliases; empty means rid.HostRID().
	HostRID string
}

// Load reads every manifest of a band, sorted by id.
func (p *ManifestProvider) Load(band FeatureBand) ([]Manifest, error) {
	dir := filepath.Join(p.Dir, band.String())
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), ManifestFileName)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest %s", path)
		}
		m.ID = e.Name()
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *ManifestProvider) host() string {
	if p.HostRID != "" {
		return p.HostRID
	}
	return rid.HostRID()
}

// matchRID picks the key of candidates that best fits the host.
func (p *ManifestProvider) matchRID(candidates []string) (string, bool) {
	host := p.host()
	if p.Graph != nil {
		if m := p.Graph.BestMatch(host, candidates, nil); m.OK() {
			return m.RID, true
		}
		return "", false
	}
	for _, c := range candidates {
		if c == host {
			return c, true
		}
	}
	return "", false
}

// Workloads returns the ids of every workload defined for band.
func (p *ManifestProvider) Workloads(band FeatureBand) ([]string, error) {
	manifests, err := p.Load(band)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range manifests {
		for id := range m.Workloads {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Packs resolves workloads, following extends, into the packs to install on
// this host. Packs without an alias for the host are skipped; unknown
// workloads and packs are errors.
func (p *ManifestProvider) Packs(band FeatureBand, workloads []string) ([]PackInfo, error) {
	manifests, err := p.Load(band)
	if err != nil {
		return nil, err
	}
	defs := make(map[string]WorkloadDef)
	packs := make(map[string]ManifestPack)
	for _, m := range manifests {
		for id, w := range m.Workloads {
			defs[strings.ToLower(id)] = w
		}
		for id, pk := range m.Packs {
			packs[id] = pk
		}
	}

	var order []string
	seenPack := make(map[string]bool)
	seenWorkload := make(map[string]bool)
	var visit func(id string) error
	visit = func(id string) error {
		key := strings.ToLower(id)
		if seenWorkload[key] {
			return nil
		}
		seenWorkload[key] = true
		def, ok := defs[key]
		if !ok {
			return errors.New(errors.ErrCodeNotFound, "workload %s is not defined for band %s", id, band)
		}
		if len(def.Platforms) > 0 {
			if _, ok := p.matchRID(def.Platforms); !ok {
				return nil
			}
		}
		for _, base := range def.Extends {
			if err := visit(base); err != nil {
				return err
			}
		}
		for _, packID := range def.Packs {
			if !seenPack[packID] {
				seenPack[packID] = true
				order = append(order, packID)
			}
		}
		return nil
	}
	for _, w := range workloads {
		if err := visit(w); err != nil {
			return nil, err
		}
	}

	var out []PackInfo
	for _, id := range order {
		pk, ok := packs[id]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "pack %s is referenced but not declared", id)
		}
		info := PackInfo{ID: id, Version: pk.Version, Kind: pk.Kind}
		if len(pk.AliasTo) > 0 {
			keys := make([]string, 0, len(pk.AliasTo))
			for k := range pk.AliasTo {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			match, ok := p.matchRID(keys)
			if !ok {
				continue
			}
			info.ResolvedPackageID = pk.AliasTo[match]
			info.RID = match
		}
		if err := info.Validate(); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

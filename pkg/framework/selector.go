package framework

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/packroot"
	"github.com/matzehuels/packforge/pkg/rid"
)

// Selector resolves framework references to targeting, runtime and crossgen
// packs. It holds no per-call state and is safe for concurrent use.
type Selector struct {
	Catalog   *Catalog
	Graph     *rid.Graph
	PackRoots packroot.Search
	Logger    *log.Logger
}

// selection carries the accumulators of one Select call.
type selection struct {
	req         Request
	tfm         TargetFramework
	res         *Result
	unknownRIDs map[string]bool
	logger      *log.Logger
}

// Select resolves every framework reference in req.
//
// Ambiguous catalogs, unknown RIDs and missing crossgen support are reported
// in Result.Diagnostics and resolution carries on. Unavailability of a
// runtime pack for a RID is deferred and only escalated for directly
// declared references when runtime packs are required. The returned error is
// reserved for malformed requests.
func (s *Selector) Select(req Request) (*Result, error) {
	if s.Catalog == nil || s.Graph == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "selector needs a catalog and a RID graph")
	}
	tfm, err := ParseTargetFramework(req.TargetFramework)
	if err != nil {
		return nil, err
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	sel := &selection{
		req:         req,
		tfm:         tfm,
		res:         &Result{},
		unknownRIDs: make(map[string]bool),
		logger:      logger,
	}

	for _, ref := range req.FrameworkReferences {
		s.selectReference(sel, ref)
	}
	if req.ReadyToRun {
		s.selectCrossgen(sel)
	}
	sel.res.EscalateUnavailable(req.RuntimePacksRequired())
	return sel.res, nil
}

func (s *Selector) selectReference(sel *selection, ref FrameworkReference) {
	known, ok := s.Catalog.frameworkReference(ref.Name, sel.tfm)
	if !ok {
		sel.res.Diagnostics.Errorf(errors.ErrCodeNotFound,
			"framework reference %s is not known for %s", ref.Name, sel.tfm)
		return
	}

	pack := s.runtimePack(sel, ref, known)
	fwVersion, packVersion := sel.req.versions(ref, known, pack)
	sel.logger.Debug("framework reference",
		"name", ref.Name, "policy", sel.req.Policy(ref), "version", fwVersion, "runtime_pack_version", packVersion)

	sel.res.RuntimeFrameworks = append(sel.res.RuntimeFrameworks, RuntimeFramework{
		Name:          known.RuntimeFrameworkName,
		Version:       fwVersion,
		FrameworkName: known.Name,
	})
	s.selectTargetingPack(sel, known, fwVersion)

	if pack != nil {
		s.selectRuntimePacks(sel, ref, *pack, packVersion)
	}
}

// runtimePack picks the catalog runtime pack whose labels equal ref.Labels.
// With several matches the ambiguity is reported and the first one is used.
func (s *Selector) runtimePack(sel *selection, ref FrameworkReference, known KnownFrameworkReference) *KnownRuntimePack {
	matches := s.Catalog.runtimePacks(known.RuntimeFrameworkName, sel.tfm, ref.Labels)
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return &matches[0]
	}
	patterns := make([]string, len(matches))
	for i, m := range matches {
		patterns[i] = m.NamePattern
	}
	sel.res.Diagnostics.Errorf(errors.ErrCodeAmbiguousRuntimePack,
		"framework reference %s with labels [%s] matches several runtime packs: %s",
		ref.Name, strings.Join(ref.Labels, ","), strings.Join(patterns, ", "))
	return &matches[0]
}

func (s *Selector) selectTargetingPack(sel *selection, known KnownFrameworkReference, fwVersion string) {
	if known.TargetingPackName == "" {
		return
	}
	v := known.TargetingPackVersion
	if v == "" {
		v = fwVersion
	}
	tp := TargetingPack{
		Name:          known.TargetingPackName,
		Version:       v,
		FrameworkName: known.Name,
		Profile:       known.Profile,
	}
	if dir, ok := s.PackRoots.Find(tp.Name, tp.Version); ok {
		tp.Path = dir
	} else if !sel.req.DisableTargetingPackDownload {
		sel.res.download(tp.Name, tp.Version)
	}
	sel.res.TargetingPacks = append(sel.res.TargetingPacks, tp)
}

func (s *Selector) selectRuntimePacks(sel *selection, ref FrameworkReference, pack KnownRuntimePack, packVersion string) {
	deploy := sel.req.RuntimePacksRequired() || pack.AlwaysCopyLocal
	for _, requested := range sel.req.requestedRIDs() {
		m := s.Graph.BestMatch(requested, pack.RuntimeIdentifiers, pack.ExcludedRuntimeIdentifiers)
		switch m.Outcome {
		case rid.UnknownRID:
			if !sel.unknownRIDs[requested] {
				sel.unknownRIDs[requested] = true
				sel.res.Diagnostics.Errorf(errors.ErrCodeUnknownRID,
					"runtime identifier %s is not in the RID graph", requested)
			}
		case rid.Unreachable:
			sel.res.UnavailableRuntimePacks = append(sel.res.UnavailableRuntimePacks, UnavailableRuntimePack{
				FrameworkName:     ref.Name,
				RuntimeIdentifier: requested,
				NamePattern:       pack.NamePattern,
				Transitive:        ref.IsTransitive,
			})
		case rid.Resolved:
			// The pack is acquired for any RID-specific build; it is only
			// referenced when its bits get deployed.
			name := strings.ReplaceAll(pack.NamePattern, RIDToken, m.RID)
			sel.res.download(name, packVersion)
			if !deploy {
				continue
			}
			sel.res.RuntimePacks = append(sel.res.RuntimePacks, RuntimePack{
				Name:              name,
				Version:           packVersion,
				FrameworkName:     ref.Name,
				RuntimeIdentifier: m.RID,
				RequestedRID:      requested,
				IsTrimmable:       pack.IsTrimmable,
				AlwaysCopyLocal:   pack.AlwaysCopyLocal,
			})
		}
	}
}

// selectCrossgen picks the compiler pack for the target framework and the
// host machine. Host RIDs are matched without exclusions.
func (s *Selector) selectCrossgen(sel *selection) {
	packs := s.Catalog.crossgenPacks(sel.tfm)
	if len(packs) == 0 {
		sel.res.Diagnostics.Errorf(errors.ErrCodeCrossgenPackMissing,
			"no crossgen pack is known for %s", sel.tfm)
		return
	}
	if len(packs) > 1 {
		patterns := make([]string, len(packs))
		for i, p := range packs {
			patterns[i] = p.NamePattern
		}
		sel.res.Diagnostics.Errorf(errors.ErrCodeAmbiguousCrossgenPack,
			"several crossgen packs match %s: %s", sel.tfm, strings.Join(patterns, ", "))
	}
	pack := packs[0]

	host := sel.req.HostRID
	if host == "" {
		host = rid.HostRID()
	}
	if host == "" {
		sel.res.Diagnostics.Errorf(errors.ErrCodeHostRIDUnsupported,
			"cannot determine a runtime identifier for this machine")
		return
	}
	m := s.Graph.BestMatch(host, pack.RuntimeIdentifiers, nil)
	if !m.OK() {
		sel.res.Diagnostics.Errorf(errors.ErrCodeHostRIDUnsupported,
			"crossgen pack %s does not support host %s (%s)", pack.NamePattern, host, m.Outcome)
		return
	}
	name := strings.ReplaceAll(pack.NamePattern, RIDToken, m.RID)
	sel.res.CrossgenPacks = append(sel.res.CrossgenPacks, CrossgenPack{
		Name:              name,
		Version:           pack.Version,
		RuntimeIdentifier: m.RID,
	})
	sel.res.download(name, pack.Version)
}

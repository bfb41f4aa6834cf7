package conflicts

import (
	"fmt"
	"strings"
)

// ItemType is the category a conflict candidate came from.
type ItemType int

const (
	Reference ItemType = iota
	Analyzer
	CopyLocal
	Platform
	RuntimeOther
)

var itemTypeNames = [...]string{
	Reference:    "Reference",
	Analyzer:     "Analyzer",
	CopyLocal:    "CopyLocal",
	Platform:     "Platform",
	RuntimeOther: "RuntimeOther",
}

func (t ItemType) String() string {
	if int(t) < len(itemTypeNames) {
		return itemTypeNames[t]
	}
	return fmt.Sprintf("ItemType(%d)", int(t))
}

// Item is one candidate file. Identity is the pointer: the same *Item may
// appear more than once in an input list, and two distinct *Item values with
// equal fields are different candidates.
type Item struct {
	SourcePath         string   // Candidate file, as given by the build
	DestinationSubPath string   // Output-relative path for runtime items ("" → file name)
	Type               ItemType // Category; every item has exactly one
	PackageID          string   // Owning package, "" if not package-sourced
	PackageVersion     string   // Owning package version, for override checks
	AssemblyVersion    string   // Optional, first tie-break
	FileVersion        string   // Optional, second tie-break
	Private            bool     // For references: also deployed (copy-local) to the output directory
}

func (i *Item) String() string {
	if i.PackageID != "" {
		return fmt.Sprintf("%s (%s %s)", i.SourcePath, i.Type, i.PackageID)
	}
	return fmt.Sprintf("%s (%s)", i.SourcePath, i.Type)
}

// FileName returns the last path element, accepting either separator.
func (i *Item) FileName() string {
	return baseName(i.SourcePath)
}

// ReferenceKey is the compile-time identity: the simple assembly name,
// compared case-insensitively.
func (i *Item) ReferenceKey() string {
	name := i.FileName()
	lower := strings.ToLower(name)
	for _, ext := range []string{".dll", ".exe", ".winmd"} {
		if strings.HasSuffix(lower, ext) {
			return lower[:len(lower)-len(ext)]
		}
	}
	return lower
}

// RuntimeKey is the deployment identity: the destination path inside the
// output directory, compared case-insensitively with '/' separators.
func (i *Item) RuntimeKey() string {
	p := i.DestinationSubPath
	if p == "" {
		p = i.FileName()
	}
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}

// AnalyzerKey identifies an analyzer by file name.
func (i *Item) AnalyzerKey() string {
	return strings.ToLower(i.FileName())
}

func baseName(p string) string {
	if idx := strings.LastIndexAny(p, `/\`); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// itemSet is an insertion-ordered set of items keyed by identity.
type itemSet struct {
	index map[*Item]int
	items []*Item
}

func newItemSet() *itemSet {
	return &itemSet{index: make(map[*Item]int)}
}

func (s *itemSet) add(it *Item) bool {
	if _, ok := s.index[it]; ok {
		return false
	}
	s.index[it] = len(s.items)
	s.items = append(s.items, it)
	return true
}

func (s *itemSet) has(it *Item) bool {
	_, ok := s.index[it]
	return ok
}

func (s *itemSet) len() int { return len(s.items) }

package workload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/packforge/pkg/errors"
)

const (
	pendingSuffix = ".pending"
	removedSuffix = ".removed"
)

// Record marks a pack as installed for one feature band.
type Record struct {
	Pack        PackInfo  `json:"pack"`
	FeatureBand string    `json:"feature_band"`
	InstalledAt time.Time `json:"installed_at"`
}

// recordEntry is one record file found on disk.
type recordEntry struct {
	path    string
	band    string
	pending bool
	pack    PackInfo
}

func recordsRoot(root string) string {
	return filepath.Join(root, "metadata", "installed-packs", "v1")
}

func recordPath(root string, p PackInfo, band FeatureBand) string {
	return filepath.Join(recordsRoot(root), strings.ToLower(p.ID), strings.ToLower(p.Version), band.String()+".json")
}

// writeRecord stages the record for p in tx. The record becomes visible at
// commit; until then it only exists as a pending file.
func writeRecord(tx *Transaction, root string, p PackInfo, band FeatureBand) error {
	final := recordPath(root, p, band)
	pending := final + pendingSuffix
	_, statErr := os.Stat(final)
	existed := statErr == nil

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(Record{Pack: p, FeatureBand: band.String(), InstalledAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}
	tx.OnRollback(func() error {
		if err := os.Remove(pending); err != nil && !os.IsNotExist(err) {
			return err
		}
		if !existed {
			if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		return nil
	})
	if err := os.WriteFile(pending, data, 0o644); err != nil {
		return err
	}
	tx.OnCommit(func() error { return os.Rename(pending, final) })
	return nil
}

func readRecord(path string) (Record, error) {
	var r Record
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, errors.Wrap(errors.ErrCodeInvalidManifest, err, "installation record %s", path)
	}
	return r, nil
}

// snapshotRecords lists every record file, committed and pending, at one
// point in time. Unreadable records still appear, identified by their path.
func snapshotRecords(root string) ([]recordEntry, error) {
	base := recordsRoot(root)
	ids, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []recordEntry
	for _, id := range ids {
		if !id.IsDir() {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(base, id.Name()))
		if err != nil {
			return nil, err
		}
		for _, ver := range versions {
			if !ver.IsDir() {
				continue
			}
			dir := filepath.Join(base, id.Name(), ver.Name())
			files, err := os.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				name := f.Name()
				pending := strings.HasSuffix(name, pendingSuffix)
				band := strings.TrimSuffix(strings.TrimSuffix(name, pendingSuffix), ".json")
				if band == name {
					continue
				}
				e := recordEntry{
					path:    filepath.Join(dir, name),
					band:    band,
					pending: pending,
					pack:    PackInfo{ID: id.Name(), Version: ver.Name()},
				}
				if r, err := readRecord(e.path); err == nil {
					e.pack = r.Pack
				}
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// PackRef is an installed pack id and version.
type PackRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

func (r PackRef) String() string { return fmt.Sprintf("%s@%s", r.ID, r.Version) }

func sortRefs(refs []PackRef) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := strings.ToLower(refs[i].ID), strings.ToLower(refs[j].ID)
		if a != b {
			return a < b
		}
		return refs[i].Version < refs[j].Version
	})
}

func workloadMarkersDir(root string, band FeatureBand) string {
	return filepath.Join(root, "metadata", "installed-workloads", band.String())
}

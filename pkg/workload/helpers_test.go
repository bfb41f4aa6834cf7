package workload

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
)

var quiet = log.New(discard{})

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// writeArchive writes a package archive holding files plus the usual
// package metadata entries.
func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	all := map[string]string{"[Content_Types].xml": "<Types/>", "_rels/.rels": "<Relationships/>"}
	for name, body := range files {
		all[name] = body
	}
	for name, body := range all {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// feedWith creates a flat folder feed holding one archive per pack.
func feedWith(t *testing.T, packs ...PackInfo) DirFeed {
	t.Helper()
	dir := t.TempDir()
	for _, p := range packs {
		writeArchive(t, filepath.Join(dir, archiveName(p.PackageID(), p.Version)), map[string]string{
			"data/" + p.ID + ".txt": p.String(),
			"tools/readme.md":       "# " + p.ID,
		})
	}
	return DirFeed{Dir: dir}
}

// writeManifest stores a manifest for band under dir.
func writeManifest(t *testing.T, dir string, band FeatureBand, id string, m Manifest) {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, band.String(), id, ManifestFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// snapshotTree maps every file under dir to its content.
func snapshotTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func equalTrees(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func containsRef(refs []PackRef, id string) bool {
	for _, r := range refs {
		if strings.EqualFold(r.ID, id) {
			return true
		}
	}
	return false
}

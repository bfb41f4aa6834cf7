package assets

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/packforge/pkg/errors"
)

func loadModel(t *testing.T) *Model {
	t.Helper()
	m, err := ReadModelFile(filepath.Join("testdata", "project.assets.json"))
	if err != nil {
		t.Fatalf("ReadModelFile: %v", err)
	}
	return m
}

func TestReadModel(t *testing.T) {
	m := loadModel(t)
	if got := len(m.Targets); got != 2 {
		t.Fatalf("targets = %d, want 2", got)
	}
	if m.Targets[1].Key() != "net8.0/linux-x64" || m.Targets[1].RID != "linux-x64" {
		t.Errorf("second target = %+v", m.Targets[1])
	}
	if got := m.ProjectDependencies["net8.0"]; !slices.Equal(got, []string{"Contoso.Data", "Shared"}) {
		t.Errorf("project dependencies = %v", got)
	}
	if !slices.Equal(m.PackageFolders, []string{"/home/dev/.nuget/packages/"}) {
		t.Errorf("package folders = %v", m.PackageFolders)
	}
	shared := m.Libraries[len(m.Libraries)-1]
	if shared.Type != LibraryProject || shared.Path != "../Shared/Shared.csproj" {
		t.Errorf("project library = %+v", shared)
	}
}

func TestExtractDefinitions(t *testing.T) {
	g, err := Extract(loadModel(t), Options{ProjectDir: "/src/App", Logger: quiet})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !slices.Equal(g.TargetKeys(), []string{"net8.0", "net8.0/linux-x64"}) {
		t.Errorf("targets = %v", g.TargetKeys())
	}
	if len(g.Packages) != 4 {
		t.Fatalf("packages = %d, want 4", len(g.Packages))
	}
	if got, want := g.Packages[0].ResolvedPath, filepath.Join("/home/dev/.nuget/packages", "contoso.data", "1.2.0"); got != want {
		t.Errorf("package path = %s, want %s", got, want)
	}
	if got, want := g.Packages[3].ResolvedPath, filepath.Join("/src", "Shared", "Shared.csproj"); got != want {
		t.Errorf("project path = %s, want %s", got, want)
	}

	for _, f := range g.Files {
		if filepath.Base(f.Path) == "_._" {
			t.Errorf("placeholder %s became a file definition", f.Key)
		}
	}

	types := make(map[string]FileType)
	for _, f := range g.Files {
		types[f.Key] = f.Type
	}
	tests := []struct {
		key  string
		want FileType
	}{
		{"Newtonsoft.Json/13.0.3/lib/net6.0/Newtonsoft.Json.dll", FileAssembly},
		{"Newtonsoft.Json/13.0.3/lib/net6.0/Newtonsoft.Json.xml", FileUnknown},
		{"SQLitePCLRaw.lib.e_sqlite3/2.1.6/runtimes/linux-x64/native/libe_sqlite3.so", FileNative},
		{"SQLitePCLRaw.lib.e_sqlite3/2.1.6/buildTransitive/net8.0/SQLitePCLRaw.lib.e_sqlite3.targets", FileBuild},
		{"Contoso.Data/1.2.0/lib/net8.0/de/Contoso.Data.resources.dll", FileAssembly},
		{"Shared/1.0.0/bin/placeholder/Shared.dll", FileAssembly},
	}
	for _, tt := range tests {
		got, ok := types[tt.key]
		if !ok {
			t.Errorf("no file definition for %s", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("%s type = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestExtractPackageDependencies(t *testing.T) {
	g, err := Extract(loadModel(t), Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	var topLevel, contoso []string
	for _, pd := range g.PackageDependencies {
		if pd.Target != "net8.0" {
			continue
		}
		switch pd.ParentPackage {
		case "":
			topLevel = append(topLevel, pd.Package)
		case "Contoso.Data/1.2.0":
			contoso = append(contoso, pd.Package)
		}
	}
	if !slices.Equal(topLevel, []string{"Contoso.Data/1.2.0", "Shared/1.0.0"}) {
		t.Errorf("top-level = %v", topLevel)
	}
	if !slices.Equal(contoso, []string{"Newtonsoft.Json/13.0.3", "SQLitePCLRaw.lib.e_sqlite3/2.1.6"}) {
		t.Errorf("Contoso.Data dependencies = %v", contoso)
	}
}

func TestExtractFileDependencies(t *testing.T) {
	g, err := Extract(loadModel(t), Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	deps := g.FilesFor("net8.0", "Contoso.Data/1.2.0")
	var roles []AssetRole
	for _, fd := range deps {
		roles = append(roles, fd.Role)
	}
	if !slices.Equal(roles, []AssetRole{RoleCompile, RoleRuntime, RoleResource}) {
		t.Errorf("roles = %v", roles)
	}
	if deps[2].Locale != "de" {
		t.Errorf("resource locale = %q", deps[2].Locale)
	}
	for _, fd := range g.FilesFor("net8.0", "SQLitePCLRaw.lib.e_sqlite3/2.1.6") {
		if filepath.Base(fd.File) == "_._" {
			t.Errorf("placeholder dependency %s", fd.File)
		}
	}
}

func TestExtractConflictingFileTypes(t *testing.T) {
	m := &Model{
		Libraries: []Library{{Name: "Pkg", Version: "1.0.0", Type: LibraryPackage}},
		Targets: []Target{{
			Framework: "net8.0",
			Libraries: []TargetLibrary{{
				Name: "Pkg", Version: "1.0.0", Type: LibraryPackage,
				Groups: []AssetGroup{
					{Role: RoleRuntime, Assets: []Asset{{Path: "lib/x.dll"}}},
					{Role: RoleNative, Assets: []Asset{{Path: "lib/x.dll"}}},
				},
			}},
		}},
	}
	_, err := Extract(m, Options{Logger: quiet})
	if !errors.Is(err, errors.ErrCodeContractViolation) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeContractViolation)
	}
}

func TestExtractSameTypeAcrossGroups(t *testing.T) {
	m := &Model{
		Libraries: []Library{{Name: "Pkg", Version: "1.0.0", Type: LibraryPackage}},
		Targets: []Target{{
			Framework: "net8.0",
			Libraries: []TargetLibrary{{
				Name: "Pkg", Version: "1.0.0", Type: LibraryPackage,
				Groups: []AssetGroup{
					{Role: RoleCompile, Assets: []Asset{{Path: "lib/x.dll"}}},
					{Role: RoleRuntime, Assets: []Asset{{Path: "lib/x.dll"}}},
				},
			}},
		}},
	}
	g, err := Extract(m, Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Files) != 1 || len(g.FileDependencies) != 2 {
		t.Errorf("files = %d, file dependencies = %d", len(g.Files), len(g.FileDependencies))
	}
}

func TestExtractContractViolations(t *testing.T) {
	tests := []struct {
		name  string
		model *Model
	}{
		{
			name:  "project without path",
			model: &Model{Libraries: []Library{{Name: "Other", Version: "1.0.0", Type: LibraryProject}}},
		},
		{
			name: "unknown target library",
			model: &Model{Targets: []Target{{
				Framework: "net8.0",
				Libraries: []TargetLibrary{{Name: "Ghost", Version: "1.0.0", Type: LibraryPackage}},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.model, Options{Logger: quiet})
			if !errors.Is(err, errors.ErrCodeContractViolation) {
				t.Errorf("err = %v, want %s", err, errors.ErrCodeContractViolation)
			}
		})
	}
}

func TestToDAG(t *testing.T) {
	g, err := Extract(loadModel(t), Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	d, err := g.ToDAG("net8.0")
	if err != nil {
		t.Fatal(err)
	}
	if got := dagSources(d); !slices.Equal(got, []string{"net8.0"}) {
		t.Errorf("sources = %v", got)
	}
	if got := d.Children("net8.0"); !slices.Equal(got, []string{"Contoso.Data/1.2.0", "Shared/1.0.0"}) {
		t.Errorf("top-level children = %v", got)
	}
	if n, ok := d.Node("Newtonsoft.Json/13.0.3"); !ok || n.Meta["version"] != "13.0.3" {
		t.Errorf("Newtonsoft.Json node = %+v", n)
	}
	if got := d.InDegree("Newtonsoft.Json/13.0.3"); got != 2 {
		t.Errorf("Newtonsoft.Json in-degree = %d, want 2", got)
	}
	if err := d.Validate(); err != nil {
		t.Error(err)
	}

	if _, err := g.ToDAG("net9.0"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown target err = %v", err)
	}
}

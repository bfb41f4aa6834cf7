package workload_test

import (
	"fmt"

	"github.com/matzehuels/packforge/pkg/workload"
)

func ExampleParseFeatureBand() {
	for _, v := range []string{"8.0.105", "8.0.299", "9.0.100-preview.3"} {
		band, _ := workload.ParseFeatureBand(v)
		fmt.Println(v, "->", band)
	}
	// Output:
	// 8.0.105 -> 8.0.100
	// 8.0.299 -> 8.0.200
	// 9.0.100-preview.3 -> 9.0.100-preview.3
}

func ExamplePackInfo_Path() {
	packs := []workload.PackInfo{
		{ID: "Microsoft.NET.Runtime.WebAssembly.Sdk", Version: "8.0.5", Kind: workload.KindSdk},
		{ID: "Microsoft.NET.Runtime.WebAssembly.Templates", Version: "8.0.5", Kind: workload.KindTemplate},
	}
	for _, p := range packs {
		fmt.Println(workload.StrategyFor(p.Kind), p.Path("/dotnet"))
	}
	// Output:
	// extract /dotnet/packs/Microsoft.NET.Runtime.WebAssembly.Sdk/8.0.5
	// copy-archive /dotnet/template-packs/microsoft.net.runtime.webassembly.templates.8.0.5.nupkg
}

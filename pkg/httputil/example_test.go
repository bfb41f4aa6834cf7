package httputil_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/httputil"
)

func ExampleCache() {
	dir := filepath.Join(os.TempDir(), "packforge-example")
	defer os.RemoveAll(dir)
	cache, err := httputil.NewCache(dir, 30*time.Minute)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	feed := cache.Namespace("feed:")

	index := map[string][]string{"versions": {"8.0.4", "8.0.5"}}
	if err := feed.Set("microsoft.netcore.app.ref", index); err != nil {
		fmt.Println("Error:", err)
		return
	}

	var got map[string][]string
	if ok, err := feed.Get("microsoft.netcore.app.ref", &got); ok && err == nil {
		fmt.Println("versions:", got["versions"])
	}
	// Output:
	// versions: [8.0.4 8.0.5]
}

func ExampleCache_Lookup() {
	dir := filepath.Join(os.TempDir(), "packforge-example-lookup")
	cache, _ := httputil.NewCache(dir, time.Hour)
	defer os.RemoveAll(dir)

	_ = cache.Store("index", []string{"8.0.5"}, `W/"42"`)
	if e, err := cache.Lookup("index"); err == nil && e != nil {
		fmt.Println("revalidate with:", e.ETag)
	}
	missing, _ := cache.Lookup("nonexistent")
	fmt.Println("missing:", missing == nil)
	// Output:
	// revalidate with: W/"42"
	// missing: true
}

func ExamplePolicy_Do() {
	attempts := 0
	policy := httputil.Policy{Attempts: 3, Delay: time.Millisecond}
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return httputil.CheckStatus(503, "https://feed.example/index.json")
		}
		return httputil.CheckStatus(404, "https://feed.example/index.json")
	})
	fmt.Println("attempts:", attempts)
	fmt.Println("code:", errors.GetCode(err))
	// Output:
	// attempts: 3
	// code: NOT_FOUND
}

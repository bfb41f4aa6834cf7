package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	r := NoopResolveHooks{}
	r.OnSelect(ctx, "net8.0", 3, 0, time.Millisecond, nil)
	r.OnConflicts(ctx, 120, 4, time.Millisecond)

	i := NoopInstallHooks{}
	i.OnPackOperation(ctx, "install", "Microsoft.NET.Runtime.MonoAOTCompiler.Task", time.Second, nil)
	i.OnPackOperation(ctx, "repair", "Microsoft.NET.Runtime.MonoAOTCompiler.Task", time.Second, errors.New("disk full"))
	i.OnGarbageCollect(ctx, 2, 1, 0, time.Second)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "selection")
	c.OnCacheMiss(ctx, "feed_index")
	c.OnCacheSet(ctx, "selection", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "feed.example", "/v3/flat/pack/index.json")
	h.OnResponse(ctx, "GET", "feed.example", "/v3/flat/pack/index.json", 200, time.Second)
	h.OnError(ctx, "GET", "feed.example", "/v3/flat/pack/index.json", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Resolve().(NoopResolveHooks); !ok {
		t.Error("Resolve() should return NoopResolveHooks by default")
	}
	if _, ok := Install().(NoopInstallHooks); !ok {
		t.Error("Install() should return NoopInstallHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customResolve := &testResolveHooks{}
	SetResolveHooks(customResolve)
	if Resolve() != customResolve {
		t.Error("SetResolveHooks should set custom hooks")
	}

	customInstall := &testInstallHooks{}
	SetInstallHooks(customInstall)
	if Install() != customInstall {
		t.Error("SetInstallHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Install().(NoopInstallHooks); !ok {
		t.Error("Reset() should restore NoopInstallHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testInstallHooks{}
	SetInstallHooks(custom)
	SetInstallHooks(nil)
	if Install() != custom {
		t.Error("SetInstallHooks(nil) should be ignored")
	}
}

type testResolveHooks struct{ NoopResolveHooks }
type testInstallHooks struct{ NoopInstallHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

package workload

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/packforge/pkg/cache"
	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/httputil"
	"github.com/matzehuels/packforge/pkg/observability"
)

// Fetcher acquires package archives. The installer never talks to the
// network itself; it hands this collaborator a destination path.
type Fetcher interface {
	// Fetch writes the archive of id@version to dest.
	Fetch(ctx context.Context, id, version, dest string) error
	// Versions lists the versions the feed has for id.
	Versions(ctx context.Context, id string) ([]string, error)
}

// DirFeed serves archives from a local folder, either flat
// (<dir>/<id>.<version>.nupkg) or hierarchical
// (<dir>/<id>/<version>/<id>.<version>.nupkg), ids and versions lower-cased.
type DirFeed struct {
	Dir string
}

func (f DirFeed) locate(id, version string) (string, bool) {
	name := archiveName(id, version)
	for _, p := range []string{
		filepath.Join(f.Dir, name),
		filepath.Join(f.Dir, strings.ToLower(id), strings.ToLower(version), name),
	} {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Fetch copies the archive into dest.
func (f DirFeed) Fetch(_ context.Context, id, version, dest string) error {
	src, ok := f.locate(id, version)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "%s@%s not found in %s", id, version, f.Dir)
	}
	return copyFile(src, dest)
}

// Versions lists versions present for id in either layout.
func (f DirFeed) Versions(_ context.Context, id string) ([]string, error) {
	lower := strings.ToLower(id)
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if entries, err := os.ReadDir(filepath.Join(f.Dir, lower)); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				add(e.Name())
			}
		}
	}
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read feed %s", f.Dir)
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if e.IsDir() || !strings.HasPrefix(name, lower+".") || !strings.HasSuffix(name, ".nupkg") {
			continue
		}
		v := strings.TrimSuffix(strings.TrimPrefix(name, lower+"."), ".nupkg")
		// Reject "<id>.Extra.1.0.0": the rest must start with a digit.
		if v != "" && v[0] >= '0' && v[0] <= '9' {
			add(v)
		}
	}
	return out, nil
}

// HTTPFeed fetches archives from a flat-container package feed:
//
//	GET {BaseURL}/{id}/index.json                     → {"versions": [...]}
//	GET {BaseURL}/{id}/{version}/{id}.{version}.nupkg
//
// with ids and versions lower-cased. Transient failures are retried per
// Retry, honoring the feed's Retry-After. Version listings are cached and
// revalidated with If-None-Match; concurrent lookups of the same id share
// one request.
type HTTPFeed struct {
	BaseURL string
	Client  *http.Client
	Cache   *httputil.Cache // optional; caches version listings
	Retry   httputil.Policy

	group singleflight.Group
}

const httpTimeout = 5 * time.Minute

type versionIndex struct {
	Versions []string `json:"versions"`
}

// NewHTTPFeed returns a feed rooted at baseURL.
func NewHTTPFeed(baseURL string, c *httputil.Cache) (*HTTPFeed, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	return &HTTPFeed{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: httpTimeout},
		Cache:   c,
	}, nil
}

// Versions returns the feed's version list for id.
func (f *HTTPFeed) Versions(ctx context.Context, id string) ([]string, error) {
	lower := strings.ToLower(id)
	// The shared request must outlive any single caller giving up.
	ch := f.group.DoChan(lower, func() (any, error) {
		return f.versions(context.WithoutCancel(ctx), lower)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return slices.Clone(r.Val.([]string)), nil
	}
}

func (f *HTTPFeed) versions(ctx context.Context, lower string) ([]string, error) {
	key := cache.NewDefaultKeyer().FeedKey(f.BaseURL, lower)
	var cached *httputil.Entry
	if f.Cache != nil {
		cached, _ = f.Cache.Lookup(key)
		if cached != nil && cached.Fresh(f.Cache.TTL(), time.Now()) {
			var index versionIndex
			if cached.Decode(&index) == nil {
				observability.Cache().OnCacheHit(ctx, "feed_index")
				return index.Versions, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "feed_index")
	}

	url := fmt.Sprintf("%s/%s/index.json", f.BaseURL, lower)
	var (
		index versionIndex
		etag  string
	)
	if cached != nil {
		etag = cached.ETag
	}
	err := f.Retry.Do(ctx, func() error {
		resp, err := f.get(ctx, url, etag)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		etag = resp.Header.Get("ETag")
		return json.NewDecoder(resp.Body).Decode(&index)
	})
	if stderrors.Is(err, httputil.ErrNotModified) && cached != nil {
		if err := cached.Decode(&index); err == nil {
			_ = f.Cache.Touch(key)
			observability.Cache().OnCacheHit(ctx, "feed_index_revalidated")
			return index.Versions, nil
		}
		etag = ""
		err = f.Retry.Do(ctx, func() error {
			resp, err := f.get(ctx, url, "")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			etag = resp.Header.Get("ETag")
			return json.NewDecoder(resp.Body).Decode(&index)
		})
	}
	if err != nil {
		return nil, err
	}
	if f.Cache != nil {
		_ = f.Cache.Store(key, index, etag)
		observability.Cache().OnCacheSet(ctx, "feed_index", len(index.Versions))
	}
	return index.Versions, nil
}

// Fetch downloads id@version into dest. A partial download never stays at
// dest.
func (f *HTTPFeed) Fetch(ctx context.Context, id, version, dest string) error {
	lid, lver := strings.ToLower(id), strings.ToLower(version)
	url := fmt.Sprintf("%s/%s/%s/%s", f.BaseURL, lid, lver, archiveName(lid, lver))
	tmp := dest + ".part"
	err := f.Retry.Do(ctx, func() error {
		resp, err := f.get(ctx, url, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		out, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "download %s", url)}
		}
		return out.Close()
	})
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// get issues a GET, conditional on etag when it is set. The caller closes
// the body of a successful response.
func (f *HTTPFeed) get(ctx context.Context, url, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := f.client().Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if stderrors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url)}
	}
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	if err := httputil.CheckResponse(resp, url); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (f *HTTPFeed) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

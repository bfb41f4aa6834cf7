// Package httputil provides the HTTP plumbing behind remote package feeds.
//
// # Caching
//
// [Cache] stores JSON-encodable responses in the filesystem
// (~/.cache/packforge/http by default) along with the ETag the server sent.
// Feeds use it for version listings. A fresh entry is served directly; a
// stale one is revalidated with If-None-Match and refreshed with
// [Cache.Touch] when the server answers 304:
//
//	e, _ := cache.Lookup(key)
//	if e != nil && e.Fresh(cache.TTL(), time.Now()) {
//	    return e.Decode(&index)
//	}
//	// GET with If-None-Match: e.ETag, then Touch or Store
//
// # Retry
//
// [Policy.Do] re-runs a request whose error is a [RetryableError], doubling
// the delay each time or waiting as long as the feed's Retry-After asks.
// [CheckResponse] classifies responses so that 429 and 5xx are retried and
// 404 is reported as NOT_FOUND:
//
//	policy := httputil.Policy{Attempts: 5, Delay: 500 * time.Millisecond}
//	err := policy.Do(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckResponse(resp, req.URL.String())
//	})
package httputil

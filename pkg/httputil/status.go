package httputil

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/matzehuels/packforge/pkg/errors"
)

// ErrNotModified is returned by [CheckStatus] for 304 responses to a
// conditional request. The caller's cached copy is still current.
var ErrNotModified = stderrors.New("not modified")

// CheckStatus maps an HTTP status to an error. 304 is [ErrNotModified], 404
// is NOT_FOUND, 429 and 5xx are retryable NETWORK_ERRORs, anything else but
// 200 is a plain NETWORK_ERROR.
func CheckStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotModified:
		return ErrNotModified
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "GET %s: not found", url)
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "GET %s: status %d", url, code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", url, code)
	}
}

// CheckResponse is [CheckStatus] for a response to url, with the feed's
// Retry-After carried on retryable errors.
func CheckResponse(resp *http.Response, url string) error {
	err := CheckStatus(resp.StatusCode, url)
	var re *RetryableError
	if stderrors.As(err, &re) {
		re.After = retryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return err
}

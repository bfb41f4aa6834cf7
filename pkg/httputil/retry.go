package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// RetryableError marks a feed failure worth another attempt: a dropped
// connection, a 5xx, or a 429. After is the wait the feed asked for in
// Retry-After, zero when it gave none.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy controls how often a feed request is tried and how long to wait in
// between. The zero value is [DefaultPolicy].
type Policy struct {
	// Attempts is the total number of tries.
	Attempts int
	// Delay is the wait before the second try. It doubles after each
	// failure unless the feed sent Retry-After.
	Delay time.Duration
	// MaxDelay caps every wait, including Retry-After. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy suits nuget.org-style feeds.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second, MaxDelay: 30 * time.Second}

func (p Policy) orDefault() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultPolicy.Attempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultPolicy.Delay
	}
	if p.MaxDelay < 0 {
		p.MaxDelay = 0
	}
	return p
}

// Do runs fn until it succeeds, fails with an error that is not a
// [RetryableError], or the attempts run out. It returns the last error, or
// ctx.Err() when ctx ends during a wait.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	p = p.orDefault()
	delay := p.Delay
	var err error
	for i := range p.Attempts {
		if err = fn(); err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		if i == p.Attempts-1 {
			break
		}
		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return err
}

// retryAfter parses a Retry-After header, either delay-seconds or an HTTP
// date. Unparseable or past values give zero.
func retryAfter(h string, now time.Time) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

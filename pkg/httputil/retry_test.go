package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPolicyDo(t *testing.T) {
	permanent := stderrors.New("bad request")
	transient := &RetryableError{Err: stderrors.New("status 503")}
	tests := []struct {
		name      string
		policy    Policy
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"first try succeeds", Policy{Attempts: 3, Delay: time.Millisecond}, []error{nil}, 1, nil},
		{"retries transient", Policy{Attempts: 3, Delay: time.Millisecond}, []error{transient, transient, nil}, 3, nil},
		{"stops on permanent", Policy{Attempts: 3, Delay: time.Millisecond}, []error{transient, permanent}, 2, permanent},
		{"gives up", Policy{Attempts: 2, Delay: time.Millisecond}, []error{transient, transient}, 2, transient},
		{"default attempts", Policy{Attempts: -1, Delay: time.Millisecond}, []error{permanent}, 1, permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := tt.policy.Do(context.Background(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !stderrors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolicyDoPrefersRetryAfter(t *testing.T) {
	// Delay alone would block for an hour.
	p := Policy{Attempts: 2, Delay: time.Hour}
	calls := 0
	start := time.Now()
	err := p.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &RetryableError{Err: stderrors.New("status 429"), After: time.Millisecond}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("Do() = %v after %d calls", err, calls)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("Retry-After was not used")
	}
}

func TestPolicyDoCapsWait(t *testing.T) {
	p := Policy{Attempts: 2, Delay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &RetryableError{Err: stderrors.New("status 429"), After: time.Hour}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("Do() = %v after %d calls", err, calls)
	}
}

func TestPolicyDoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{Attempts: 3, Delay: time.Hour}
	err := p.Do(ctx, func() error { return &RetryableError{Err: stderrors.New("timeout")} })
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"-3", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.header, now); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestCheckResponseCarriesRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Retry-After", "12")
	rec.WriteHeader(http.StatusTooManyRequests)

	err := CheckResponse(rec.Result(), "https://feed.example/a/index.json")
	var re *RetryableError
	if !stderrors.As(err, &re) {
		t.Fatalf("err = %v, want RetryableError", err)
	}
	if re.After != 12*time.Second {
		t.Errorf("After = %v, want 12s", re.After)
	}
}

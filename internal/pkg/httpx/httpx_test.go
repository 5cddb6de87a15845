package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for code, want := range map[int]bool{200: false, 400: false, 402: false, 408: true, 429: false, 500: true, 503: true} {
		if got := IsRetryableHTTPStatus(code); got != want {
			t.Fatalf("status=%d: want=%v got=%v", code, want, got)
		}
	}
}

func TestRetryDelay(t *testing.T) {
	within := func(d, center time.Duration) bool {
		return d >= center*8/10 && d <= center*12/10
	}
	if d := RetryDelay(nil, 2, 100*time.Millisecond, time.Second); !within(d, 400*time.Millisecond) {
		t.Fatalf("backoff: want~400ms got=%v", d)
	}
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3"}}}
	if d := RetryDelay(resp, 0, 100*time.Millisecond, 10*time.Second); !within(d, 3*time.Second) {
		t.Fatalf("retry-after: want~3s got=%v", d)
	}
	if d := RetryDelay(resp, 0, 100*time.Millisecond, time.Second); !within(d, time.Second) {
		t.Fatalf("capped: want~1s got=%v", d)
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("want=%v got=%v", context.Canceled, err)
	}
}

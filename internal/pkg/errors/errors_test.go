package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestUpstreamErrorMatchesKind(t *testing.T) {
	cases := []struct {
		name string
		err  *UpstreamError
		want error
	}{
		{"rate", &UpstreamError{Status: 429, Kind: ErrRateLimited}, ErrRateLimited},
		{"quota", &UpstreamError{Status: 402, Kind: ErrQuotaExceeded}, ErrQuotaExceeded},
		{"default", &UpstreamError{Status: 500, Body: "boom"}, ErrGenerationFailed},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("generate: %w", tc.err)
		if !errors.Is(wrapped, tc.want) {
			t.Fatalf("%s: errors.Is want=%v got=false", tc.name, tc.want)
		}
		var ue *UpstreamError
		if !errors.As(wrapped, &ue) || ue.Status != tc.err.Status {
			t.Fatalf("%s: errors.As failed", tc.name)
		}
	}
}

func TestUpstreamErrorMessageIncludesBody(t *testing.T) {
	err := &UpstreamError{Status: 503, Body: "gateway down"}
	want := "generation failed (status 503): gateway down"
	if err.Error() != want {
		t.Fatalf("message: want=%q got=%q", want, err.Error())
	}
}

func TestPartialPersistError(t *testing.T) {
	cause := errors.New("insert questions")
	err := fmt.Errorf("persist quiz: %w", &PartialPersistError{QuizID: "q-1", Err: cause})
	if !errors.Is(err, ErrPartialPersist) {
		t.Fatalf("want ErrPartialPersist match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("want cause match")
	}
	var ppe *PartialPersistError
	if !errors.As(err, &ppe) || ppe.QuizID != "q-1" {
		t.Fatalf("quiz id: want=q-1 got=%v", ppe)
	}
}

func TestNewUpstreamErrorClassifies(t *testing.T) {
	if err := NewUpstreamError(429, "", "", false); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("429: want ErrRateLimited")
	}
	if err := NewUpstreamError(402, "", "", false); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("402: want ErrQuotaExceeded")
	}
	if err := NewUpstreamError(500, "", "", false); !errors.Is(err, ErrGenerationFailed) || errors.Is(err, ErrRequestFailed) {
		t.Fatalf("500: want ErrGenerationFailed only")
	}
	streamed := NewUpstreamError(429, "", "", true)
	if !errors.Is(streamed, ErrRequestFailed) || !errors.Is(streamed, ErrRateLimited) {
		t.Fatalf("streamed 429: want ErrRequestFailed and ErrRateLimited")
	}
	if err := NewUpstreamError(503, "", "", true); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("streamed 503: want ErrRequestFailed")
	}
}

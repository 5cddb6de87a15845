package logger

import (
	"testing"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	l := &Logger{redact: true}
	out := l.sanitize([]interface{}{"api_key", "sk-live-123", "question_len", 42})
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != 42 {
		t.Fatalf("question_len: want=42 got=%v", out[3])
	}
}

func TestSanitizeHashesIdentity(t *testing.T) {
	l := &Logger{redact: true, salt: "s"}
	out := l.sanitize([]interface{}{"owner_id", "5b7c"})
	got, ok := out[1].(string)
	if !ok || len(got) != len("hash:")+12 {
		t.Fatalf("owner_id: unexpected value %v", out[1])
	}
	again := l.sanitize([]interface{}{"owner_id", "5b7c"})
	if again[1] != got {
		t.Fatalf("hash not stable: %v vs %v", again[1], got)
	}
}

func TestSanitizeDisabled(t *testing.T) {
	l := &Logger{redact: false}
	out := l.sanitize([]interface{}{"token", "abc"})
	if out[1] != "abc" {
		t.Fatalf("token: want=abc got=%v", out[1])
	}
}

func TestSanitizeOddKV(t *testing.T) {
	l := &Logger{redact: true}
	out := l.sanitize([]interface{}{"k", "v", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected out: %v", out)
	}
}

package stream

import (
	"strings"
	"testing"
)

func TestDecoderSkipsNonDataLines(t *testing.T) {
	var d Decoder
	got := d.Feed(":ping\n\nretry: 1000\nid: 7\ndata:{\"nospace\":true}\n")
	if len(got) != 0 {
		t.Fatalf("fragments: want none got=%v", got)
	}
	if d.Pending() != "" {
		t.Fatalf("pending: want empty got=%q", d.Pending())
	}
}

func TestDecoderKeepsIncompleteLine(t *testing.T) {
	var d Decoder
	got := d.Feed("data: {\"choices\":[{\"delta\":{\"content\":\"he")
	if len(got) != 0 {
		t.Fatalf("fragments: want none got=%v", got)
	}
	got = d.Feed("llo\"}}]}\n")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("fragments: want=[hello] got=%v", got)
	}
}

func TestDecoderRewindsMalformedLine(t *testing.T) {
	var d Decoder
	in := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\"\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"
	got := d.Feed(in)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("fragments: want=[a] got=%v", got)
	}
	if d.Malformed() != 1 {
		t.Fatalf("malformed: want=1 got=%d", d.Malformed())
	}
	if !strings.HasPrefix(d.Pending(), "data: {\"choices\":[{\"delta\"\n") {
		t.Fatalf("pending: malformed line must be at the head, got=%q", d.Pending())
	}
	if !strings.Contains(d.Pending(), "\"b\"") {
		t.Fatalf("pending: later bytes must be retained, got=%q", d.Pending())
	}
}

func TestDecoderIgnoresFeedAfterDone(t *testing.T) {
	var d Decoder
	d.Feed("data: [DONE]\n")
	if !d.Done() {
		t.Fatalf("done: want=true")
	}
	if got := d.Feed("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n"); len(got) != 0 {
		t.Fatalf("fragments after done: want none got=%v", got)
	}
}

func TestDecoderNoChoices(t *testing.T) {
	var d Decoder
	if got := d.Feed("data: {\"choices\":[]}\ndata: {}\n"); len(got) != 0 {
		t.Fatalf("fragments: want none got=%v", got)
	}
}

func TestDecoderWrongShapeDoesNotRewind(t *testing.T) {
	var d Decoder
	got := d.Feed("data: {\"choices\":[{\"delta\":{\"content\":{\"x\":1}}}]}\n" +
		"data: {\"choices\":[\"oops\"]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n")
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("fragments: want=[ok] got=%v", got)
	}
	if d.Malformed() != 0 || d.Pending() != "" {
		t.Fatalf("malformed=%d pending=%q", d.Malformed(), d.Pending())
	}
}

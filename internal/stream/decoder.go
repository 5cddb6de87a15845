package stream

import (
	"encoding/json"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Decoder splits decoded stream text into lines and classifies them.
// It keeps one text buffer across feeds; a line is only considered once
// its terminating newline has arrived.
type Decoder struct {
	buf       string
	done      bool
	malformed int
}

type deltaEvent struct {
	Choices json.RawMessage `json:"choices"`
}

type deltaChoice struct {
	Delta struct {
		Content json.RawMessage `json:"content"`
	} `json:"delta"`
}

// deltaContent returns the first choice's content. Payloads of any other
// shape yield nothing.
func deltaContent(payload []byte) string {
	var ev deltaEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ""
	}
	var choices []json.RawMessage
	if err := json.Unmarshal(ev.Choices, &choices); err != nil || len(choices) == 0 {
		return ""
	}
	var choice deltaChoice
	if err := json.Unmarshal(choices[0], &choice); err != nil {
		return ""
	}
	var content string
	if err := json.Unmarshal(choice.Delta.Content, &content); err != nil {
		return ""
	}
	return content
}

// Feed appends text to the buffer and returns the content fragments of
// every complete delta line now available. Once the terminal sentinel has
// been seen Feed returns nothing and Done reports true.
func (d *Decoder) Feed(text string) []string {
	if d.done {
		return nil
	}
	d.buf += text

	var out []string
	for {
		idx := strings.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]
		line = strings.TrimSuffix(line, "\r")

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneSentinel {
			d.done = true
			d.buf = ""
			break
		}

		if !json.Valid([]byte(payload)) {
			// Assume the event was cut mid-chunk: rewind and wait for more bytes.
			d.buf = line + "\n" + d.buf
			d.malformed++
			break
		}
		if frag := deltaContent([]byte(payload)); frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

// Done reports whether the terminal sentinel was seen.
func (d *Decoder) Done() bool { return d.done }

// Pending returns the unprocessed tail of the buffer.
func (d *Decoder) Pending() string { return d.buf }

// Malformed counts parse failures that caused a rewind.
func (d *Decoder) Malformed() int { return d.malformed }

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

const readChunkSize = 4096

// DeltaSink receives content fragments in arrival order.
type DeltaSink interface {
	OnDelta(fragment string)
}

// SinkFunc adapts a function to DeltaSink.
type SinkFunc func(fragment string)

func (f SinkFunc) OnDelta(fragment string) {
	if f != nil {
		f(fragment)
	}
}

// Result summarizes one ingestion run.
type Result struct {
	Content string
	// Done is true when the terminal sentinel ended the stream.
	Done   bool
	Deltas int
	// Malformed counts rewinds caused by unparseable event lines.
	Malformed int
	// Discarded is the trailing partial text dropped at end of transport.
	Discarded string
}

// Ingest reads r until the terminal sentinel, end of transport, a read
// error, or cancellation of ctx. Bytes are decoded as UTF-8 incrementally so
// characters split across reads are reassembled. When r is an io.Closer it
// is closed on cancellation to unblock a pending read.
func Ingest(ctx context.Context, r io.Reader, sink DeltaSink) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r == nil {
		return Result{}, apperr.ErrNoStream
	}
	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	tr := transform.NewReader(r, unicode.UTF8.NewDecoder())
	var (
		dec     Decoder
		content strings.Builder
		res     Result
		chunk   = make([]byte, readChunkSize)
	)
	finish := func() Result {
		res.Content = content.String()
		res.Done = dec.Done()
		res.Malformed = dec.Malformed()
		return res
	}

	for {
		if ctx.Err() != nil {
			return finish(), fmt.Errorf("%w: %v", apperr.ErrStreamAborted, ctx.Err())
		}
		n, err := tr.Read(chunk)
		if n > 0 {
			for _, frag := range dec.Feed(string(chunk[:n])) {
				content.WriteString(frag)
				res.Deltas++
				if sink != nil {
					sink.OnDelta(frag)
				}
			}
			if dec.Done() {
				return finish(), nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return finish(), fmt.Errorf("%w: %v", apperr.ErrStreamAborted, ctx.Err())
			}
			if errors.Is(err, io.EOF) {
				res.Discarded = dec.Pending()
				return finish(), nil
			}
			return finish(), fmt.Errorf("%w: read stream: %w", apperr.ErrRequestFailed, err)
		}
	}
}

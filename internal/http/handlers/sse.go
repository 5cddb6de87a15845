package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// sseWriter writes text/event-stream frames. Headers are committed on the
// first frame so earlier failures can still be answered as JSON.
type sseWriter struct {
	c       *gin.Context
	started bool
}

func newSSEWriter(c *gin.Context) *sseWriter { return &sseWriter{c: c} }

func (w *sseWriter) Started() bool { return w.started }

func (w *sseWriter) start() {
	if w.started {
		return
	}
	w.started = true
	h := w.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.c.Status(http.StatusOK)
	w.c.Writer.WriteHeaderNow()
}

// Data writes one unnamed frame; raw is sent as-is.
func (w *sseWriter) Data(raw string) error {
	w.start()
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", raw); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

// Event writes a named frame with v encoded as JSON.
func (w *sseWriter) Event(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.start()
	if _, err := fmt.Fprintf(w.c.Writer, "event: %s\ndata: %s\n\n", name, b); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

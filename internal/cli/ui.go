package cli

import (
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var (
	cyan  = color.New(color.FgCyan, color.Bold)
	dim   = color.New(color.FgHiBlack)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

// waitSpinner shows progress until the first output arrives. Stop is safe
// to call more than once.
type waitSpinner struct {
	s    *spinner.Spinner
	once sync.Once
}

func newWaitSpinner(w io.Writer, msg string) *waitSpinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	_ = s.Color("cyan")
	return &waitSpinner{s: s}
}

func (ws *waitSpinner) Start() { ws.s.Start() }

func (ws *waitSpinner) Stop() {
	ws.once.Do(ws.s.Stop)
}

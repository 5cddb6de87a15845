package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/studydesk-backend/internal/documents"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

func newAskCommand(o *options) *cobra.Command {
	var notesPath string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the tutor a question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is empty")
			}
			var notes string
			if notesPath != "" {
				text, err := readNotes(notesPath)
				if err != nil {
					return err
				}
				notes = text
			}
			return runAsk(cmd, o, question, notes)
		},
	}
	cmd.Flags().StringVarP(&notesPath, "notes", "n", "", "notes file to answer from (txt, md, pdf, docx, html)")
	return cmd
}

func readNotes(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ex, err := documents.Extract(documents.File{Name: filepath.Base(path), Data: data})
	if err != nil {
		return "", err
	}
	return ex.Text, nil
}

func runAsk(cmd *cobra.Command, o *options, question, notes string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	client, err := stream.NewClient(stream.ClientOptions{URL: o.endpoint("/api/ask-doubt"), APIKey: o.token})
	if err != nil {
		return err
	}

	sp := newWaitSpinner(errOut, "Thinking...")
	sp.Start()
	defer sp.Stop()

	body, err := client.Open(ctx, question, notes)
	if err != nil {
		sp.Stop()
		return fmt.Errorf("ask: %w", err)
	}
	defer body.Close()

	started := false
	res, err := stream.Ingest(ctx, body, stream.SinkFunc(func(fragment string) {
		if !started {
			started = true
			sp.Stop()
			cyan.Fprint(out, "tutor → ")
		}
		fmt.Fprint(out, fragment)
	}))
	sp.Stop()
	if started {
		fmt.Fprintln(out)
	}
	if res.Discarded != "" {
		dim.Fprintf(errOut, "(dropped %d unreadable trailing bytes)\n", len(res.Discarded))
	}
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	if !started {
		dim.Fprintln(errOut, "(no answer)")
	}
	if notes != "" && started {
		dim.Fprintf(errOut, "sources: %s\n", stream.NotesSourceLabel)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/studydesk-backend/internal/generation"
)

type options struct {
	server  string
	token   string
	noColor bool

	// newCaller builds the tool caller used by generate; tests replace it.
	newCaller func(cfg gatewayConfig) (generation.ToolCaller, error)
}

func (o *options) endpoint(path string) string {
	return strings.TrimRight(o.server, "/") + path
}

// NewRootCommand builds the studyctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{newCaller: newGatewayCaller})
}

func newRootCommand(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "studyctl",
		Short: "Terminal client for the study desk",
		Long: `studyctl talks to a study desk backend and to the AI gateway.

Examples:
  studyctl ask "why do cells need mitochondria" --notes biology.md
  studyctl generate --type quiz chapter1.pdf chapter2.md
  studyctl tasks add revise chapter 3
  studyctl tasks done 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&o.server, "server", envOr("STUDYDESK_URL", "http://localhost:8080"), "backend base URL")
	root.PersistentFlags().StringVar(&o.token, "token", os.Getenv("STUDYDESK_TOKEN"), "bearer token for the backend")
	root.PersistentFlags().BoolVar(&o.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newAskCommand(o))
	root.AddCommand(newGenerateCommand(o))
	root.AddCommand(newTasksCommand(o))
	root.AddCommand(newTokenCommand())
	return root
}

// Execute loads .env when present and runs the command tree.
func Execute(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return NewRootCommand().ExecuteContext(ctx)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

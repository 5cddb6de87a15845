package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/spf13/cobra"

	"github.com/yungbote/studydesk-backend/internal/documents"
	"github.com/yungbote/studydesk-backend/internal/generation"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type gatewayConfig struct {
	APIKey      string        `env:"AI_GATEWAY_API_KEY"`
	URL         string        `env:"AI_GATEWAY_URL"`
	Model       string        `env:"AI_MODEL"`
	MaxRetries  int           `env:"AI_GATEWAY_MAX_RETRIES" envDefault:"2"`
	Timeout     time.Duration `env:"GENERATION_TIMEOUT" envDefault:"90s"`
	PromptsFile string        `env:"PROMPTS_FILE"`
}

func newGatewayCaller(cfg gatewayConfig) (generation.ToolCaller, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set AI_GATEWAY_API_KEY", apperr.ErrMissingCredential)
	}
	return gateway.New(gateway.Options{
		URL:        cfg.URL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger.Nop(),
	})
}

func newGenerateCommand(o *options) *cobra.Command {
	var (
		kind        string
		asJSON      bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "generate [files...]",
		Short: "Generate flashcards or a quiz from local notes files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := generation.ParseType(kind)
			if err != nil {
				return err
			}
			var cfg gatewayConfig
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("parse env config: %w", err)
			}
			caller, err := o.newCaller(cfg)
			if err != nil {
				return err
			}
			prompts := generation.DefaultPrompts()
			if cfg.PromptsFile != "" {
				if prompts, err = generation.LoadPrompts(cfg.PromptsFile); err != nil {
					return err
				}
			}

			files := make([]documents.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, documents.File{Name: filepath.Base(path), Data: data})
			}
			extracted, err := documents.ExtractAll(cmd.Context(), files, concurrency)
			if err != nil {
				return err
			}
			docs := make([]generation.SourceDocument, 0, len(extracted))
			for _, ex := range extracted {
				docs = append(docs, generation.SourceDocument{Name: ex.Name, Text: ex.Text})
			}

			sp := newWaitSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Generating %s from %s...", typ, generation.SourceLabel(docs)))
			sp.Start()
			gen := generation.NewGenerator(caller, prompts, cfg.Timeout, logger.Nop())
			res, err := gen.Generate(cmd.Context(), generation.Request{Content: generation.AssembleSource(docs), Type: typ})
			sp.Stop()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			for _, issue := range res.Issues {
				red.Fprintf(cmd.ErrOrStderr(), "  ✗ %s\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", string(generation.TypeFlashcards), "flashcards or quiz")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "files extracted in parallel")
	return cmd
}

func printResult(w io.Writer, res *generation.Result) {
	switch {
	case res.Flashcards != nil:
		for i, fc := range res.Flashcards.Flashcards {
			cyan.Fprintf(w, "%d. %s\n", i+1, fc.Question)
			fmt.Fprintf(w, "   %s\n", fc.Answer)
			if fc.Subject != "" {
				dim.Fprintf(w, "   [%s]\n", fc.Subject)
			}
		}
	case res.Quiz != nil:
		cyan.Fprintln(w, res.Quiz.Title)
		for i, q := range res.Quiz.Questions {
			fmt.Fprintf(w, "\n%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				mark := " "
				if opt == q.CorrectAnswer {
					mark = "*"
				}
				fmt.Fprintf(w, "  %s %c) %s\n", mark, 'a'+j, opt)
			}
			if q.Explanation != "" {
				dim.Fprintf(w, "   %s\n", q.Explanation)
			}
		}
	}
}

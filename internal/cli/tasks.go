package cli

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/services"
)

func newTasksCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and manage study tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTasks(cmd, o)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show pending and completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTasks(cmd, o)
		},
	}

	var icon string
	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Task *study.Task `json:"task"`
			}
			body := map[string]string{"title": strings.Join(args, " "), "icon": icon}
			if err := newAPIClient(o).do(cmd.Context(), http.MethodPost, "/api/tasks", body, &out); err != nil {
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "  ✓ added %q\n", out.Task.Title)
			return nil
		},
	}
	add.Flags().StringVar(&icon, "icon", study.TaskIconCustom, "flashcards, quiz, revise, study or custom")

	done := &cobra.Command{
		Use:   "done [number|id]",
		Short: "Toggle a task; numbers refer to the pending list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPIClient(o)
			id := args[0]
			if n, err := strconv.Atoi(id); err == nil {
				var board services.TaskBoard
				if err := api.do(cmd.Context(), http.MethodGet, "/api/tasks", nil, &board); err != nil {
					return err
				}
				if n < 1 || n > len(board.Pending) {
					return fmt.Errorf("no pending task #%d", n)
				}
				id = board.Pending[n-1].ID.String()
			}
			var out struct {
				Task *study.Task `json:"task"`
			}
			if err := api.do(cmd.Context(), http.MethodPost, "/api/tasks/"+id+"/toggle", nil, &out); err != nil {
				return err
			}
			state := "reopened"
			if out.Task.Completed {
				state = "completed"
			}
			green.Fprintf(cmd.OutOrStdout(), "  ✓ %s %q\n", state, out.Task.Title)
			return nil
		},
	}

	cmd.AddCommand(list, add, done)
	return cmd
}

func listTasks(cmd *cobra.Command, o *options) error {
	var board services.TaskBoard
	if err := newAPIClient(o).do(cmd.Context(), http.MethodGet, "/api/tasks", nil, &board); err != nil {
		return err
	}
	printBoard(cmd.OutOrStdout(), &board)
	return nil
}

func printBoard(w io.Writer, board *services.TaskBoard) {
	cyan.Fprintf(w, "Pending (%d)\n", len(board.Pending))
	for i, t := range board.Pending {
		fmt.Fprintf(w, "  %d. %s", i+1, t.Title)
		dim.Fprintf(w, "  [%s]\n", t.Icon)
	}
	if len(board.Completed) == 0 {
		return
	}
	cyan.Fprintf(w, "Completed (%d)\n", len(board.Completed))
	for _, t := range board.Completed {
		dim.Fprintf(w, "  ✓ %s\n", t.Title)
	}
}

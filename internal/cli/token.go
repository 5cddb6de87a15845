package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/services"
)

func newTokenCommand() *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development token with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			ownerID := uuid.New()
			if owner != "" {
				parsed, err := uuid.Parse(owner)
				if err != nil {
					return fmt.Errorf("invalid --owner: %w", err)
				}
				ownerID = parsed
			}
			tok, err := services.NewAuthService(logger.Nop(), secret).IssueToken(ownerID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			dim.Fprintf(cmd.ErrOrStderr(), "owner %s, expires in %s\n", ownerID, ttl)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

package cli

import (
	"fmt"
	"time"

	"notes-quiz-service/internal/config"
	"notes-quiz-service/internal/domain"
	transport "notes-quiz-service/internal/transport/http"

	"github.com/spf13/cobra"
)

// NewTokenCmd signs a development identity token with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		id  domain.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an identity token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret not configured")
			}
			if id.Email == "" {
				return fmt.Errorf("--email is required")
			}
			token, err := transport.SignIdentity(cfg.Auth.JWTSecret, cfg.Auth.Issuer, id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&id.GivenName, "given-name", "", "given_name claim")
	cmd.Flags().StringVar(&id.Name, "name", "", "name claim")
	cmd.Flags().StringVar(&id.Picture, "picture", "", "picture claim")
	cmd.Flags().BoolVar(&id.EmailVerified, "verified", true, "email_verified claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

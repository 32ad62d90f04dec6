package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/web/auth"
)

// NewTokenCommand creates the token command
func NewTokenCommand(opts *globalOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the query API",
		Long: `Issue a bearer token for the query API.

Tokens are signed with server.auth_secret (METAMODEL_SERVER_AUTH_SECRET)
and expire after server.token_ttl unless --ttl overrides it. A ttl of 0
issues a token that never expires.`,
		Example: `  # Token for a CI job
  METAMODEL_SERVER_AUTH_SECRET=... metamodel token ci

  # Short lived token
  metamodel token dashboard --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Server.AuthSecret == "" {
				return errors.New("server.auth_secret is not set")
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.Server.TokenTTL
			}
			if ttl < 0 {
				return fmt.Errorf("--ttl must not be negative, got: %s", ttl)
			}

			tokens, err := auth.NewTokenService(cfg.Server.AuthSecret, ttl)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: server.token_ttl)")

	return cmd
}

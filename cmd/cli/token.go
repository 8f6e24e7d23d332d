package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quka-ai/daybook/app/core"
	"github.com/quka-ai/daybook/pkg/security"
	"github.com/quka-ai/daybook/pkg/types"
)

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "manage access tokens",
	}
	cmd.AddCommand(newIssueTokenCommand())
	return cmd
}

func newIssueTokenCommand() *cobra.Command {
	var (
		configPath string
		keyPath    string
		userID     string
		email      string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "sign an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			cfg := core.MustLoadBaseConfig(configPath)
			if keyPath == "" {
				keyPath = cfg.Security.JWTPrivateKey
			}
			if keyPath == "" {
				return fmt.Errorf("no private key given, use --key or security.jwt_private_key")
			}
			if ttl <= 0 {
				ttl = cfg.Security.TokenTTLDuration()
			}

			signBytes, err := os.ReadFile(keyPath)
			if err != nil {
				return err
			}

			token, err := security.GenerateJWT(security.NewTokenClaims(types.DEFAULT_APPID, userID, email, time.Now().Add(ttl).Unix()), signBytes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "init by given config")
	cmd.Flags().StringVar(&keyPath, "key", "", "RSA private key in PEM format")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime")
	return cmd
}

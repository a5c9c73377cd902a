package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teastall/teastall/config"
	"github.com/teastall/teastall/pkg/auth"
)

var (
	tokenUserFlag  string
	tokenEmailFlag string
	tokenRoleFlag  string
	tokenTTLFlag   time.Duration
)

// teastall token:issue: sign a bearer token for local testing.
var tokenIssueCmd = &cobra.Command{
	Use:   "token:issue",
	Short: "Sign a bearer token with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if tokenUserFlag == "" {
			return fmt.Errorf("token:issue: --user is required")
		}
		if tokenRoleFlag != auth.RoleUser && tokenRoleFlag != auth.RoleAdmin {
			return fmt.Errorf("token:issue: --role must be %q or %q", auth.RoleUser, auth.RoleAdmin)
		}
		token, err := auth.GenerateToken(tokenUserFlag, tokenEmailFlag, tokenRoleFlag, tokenTTLFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenUserFlag, "user", "", "user id (token subject)")
	tokenIssueCmd.Flags().StringVar(&tokenEmailFlag, "email", "", "email claim")
	tokenIssueCmd.Flags().StringVar(&tokenRoleFlag, "role", auth.RoleUser, "role claim: user or admin")
	tokenIssueCmd.Flags().DurationVar(&tokenTTLFlag, "ttl", 24*time.Hour, "token lifetime")
}

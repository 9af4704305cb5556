package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	pkgauth "github.com/matiasleandrokruk/ragline/pkg/auth"
)

func (c *cli) newTokenCmd() *cobra.Command {
	var (
		subject string
		scope   string
		expiry  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the /rag/* routes",
		Long:  `Signs a token with RAG_JWT_SECRET. The server only checks tokens when that secret is set.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Auth.JWTSecret == "" {
				return errors.New("RAG_JWT_SECRET is not set")
			}
			signer, err := pkgauth.NewSigner(c.cfg.Auth.JWTSecret, expiry)
			if err != nil {
				return err
			}
			token, err := signer.Sign(subject, scope)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ragline-cli", "token subject")
	cmd.Flags().StringVar(&scope, "scope", "", "optional scope claim")
	cmd.Flags().DurationVar(&expiry, "expiry", pkgauth.DefaultExpiry, "token lifetime")
	return cmd
}

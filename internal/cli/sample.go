package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siteshift/siteshift/internal/auth"
	"github.com/siteshift/siteshift/internal/config"
	"github.com/siteshift/siteshift/internal/document"
)

func newSampleCmd() *cobra.Command {
	var out, id string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the sample building document",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := document.NewSampleDocument(id)
			if err := writeDocument(out, snap); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("sample written", "path", out, "document", snap.ID, "entities", len(snap.Entities))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "sample.json", "output file (.json or .msgpack)")
	cmd.Flags().StringVar(&id, "id", "", "document ID (generated when empty)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := auth.NewService(cfg.JWTSecret).IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	cmd.MarkFlagRequired("subject")
	return cmd
}

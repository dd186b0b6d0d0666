package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/job"
)

func newInspectCmd() *cobra.Command {
	var doc string
	var categories []string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report the visible orientation of point entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readDocument(doc)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			eng := engine.NewEngine()
			if err := eng.Load(snap); err != nil {
				return err
			}
			reports, err := eng.Inspect(document.Filter{Categories: categories})
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("inspected", "entities", len(reports))
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().StringVar(&doc, "doc", "", "document file (required)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "only these categories")
	cmd.MarkFlagRequired("doc")
	return cmd
}

func newDiagnoseCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Show what a job's transform does to its probe point",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := job.Load(path)
			if err != nil {
				return err
			}
			t, err := j.Transform()
			if err != nil {
				return err
			}
			probe, err := j.ProbePoint()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t.Diagnose(probe))
		},
	}
	cmd.Flags().StringVar(&path, "job", "", "job file (required)")
	cmd.MarkFlagRequired("job")
	return cmd
}

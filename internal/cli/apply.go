package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/job"
)

type applyOpts struct {
	doc     string
	job     string
	out     string
	epsilon float64
}

func newApplyCmd() *cobra.Command {
	var opts applyOpts

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a transform job to a document file",
		Long: `Apply reads a document (.json or .msgpack) and a job (.yaml, .toml or .json),
runs the job as one transaction and prints the result. With --out the
transformed document is written back; nothing is written on rollback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.doc, "doc", "", "document file (required)")
	cmd.Flags().StringVar(&opts.job, "job", "", "job file (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the transformed document here")
	cmd.Flags().Float64Var(&opts.epsilon, "epsilon", 0, "coincidence tolerance (default 1e-6)")
	cmd.MarkFlagRequired("doc")
	cmd.MarkFlagRequired("job")
	return cmd
}

func runApply(cmd *cobra.Command, opts applyOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	snap, err := readDocument(opts.doc)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	j, err := job.Load(opts.job)
	if err != nil {
		return fmt.Errorf("read job: %w", err)
	}
	req, err := j.Request()
	if err != nil {
		return err
	}
	logger.Debug("job loaded", "name", j.Name, "degrees", j.Rotation.Degrees, "translation", j.Translation)

	engOpts := []engine.Option{engine.WithLogger(slogFor(logger))}
	if opts.epsilon > 0 {
		engOpts = append(engOpts, engine.WithEpsilon(opts.epsilon))
	}
	eng := engine.NewEngine(engOpts...)
	if err := eng.Load(snap); err != nil {
		return err
	}

	res, err := eng.Apply(ctx, req)
	if res != nil {
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("transform rolled back: %w", err)
	}
	prog.done(fmt.Sprintf("Transformed %d entities", res.Total()))

	if opts.out == "" {
		return nil
	}
	out, err := eng.Snapshot()
	if err != nil {
		return err
	}
	if err := writeDocument(opts.out, out); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	logger.Info("document written", "path", opts.out, "version", out.Version)
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/store"
)

var version = "dev"

// NewRootCommand builds the command tree. Logs go to stderr.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "siteshift",
		Short:        "Move whole CAD document selections with one rigid transform",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, newLogger(cmd.ErrOrStderr(), level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newApplyCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newDiagnoseCmd())
	root.AddCommand(newSampleCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// readDocument loads a snapshot file; the codec follows the extension.
func readDocument(path string) (*document.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return store.Decode(data, store.CodecOf(path))
}

func writeDocument(path string, snap *document.Snapshot) error {
	data, err := store.Encode(snap, store.CodecOf(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

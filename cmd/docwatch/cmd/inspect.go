package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/output"
)

func newInspectCmd(g *globalOptions) *cobra.Command {
	var (
		format  string
		content bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a file is stored in the index",
		Example: `  docwatch inspect ~/notes/todo.txt
  docwatch inspect report.txt --content
  docwatch inspect report.txt --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return dwerrors.New(dwerrors.ErrCodeInvalidInput, "unknown output format "+format, nil).
					WithSuggestion("use text or json")
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return dwerrors.InvalidPathError(args[0], err.Error())
			}

			idx, err := openIndex(g.cfg)
			if err != nil {
				return whileWatching(err)
			}
			defer idx.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			doc, err := idx.store.File(ctx, path)
			if err != nil {
				return err
			}
			if doc == nil {
				return dwerrors.InvalidPathError(path, "not in the index").
					WithSuggestion("check that its directory is registered with --list")
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if !content {
					doc.Content = ""
				}
				return enc.Encode(doc)
			}

			out := output.New(cmd.OutOrStdout())
			out.Line(out.Bold(doc.Path))
			out.Line(fmt.Sprintf("  language: %s (%s)", doc.Language, doc.Bucket))
			out.Line(fmt.Sprintf("  content:  %d bytes", len(doc.Content)))
			if content {
				out.Newline()
				out.Line(doc.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&content, "content", false, "Include the stored text")

	return cmd
}

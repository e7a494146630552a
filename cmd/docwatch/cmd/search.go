package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/output"
	"github.com/Aman-CERP/docwatch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode     string
	language string
	limit    int
	details  bool
	format   string // "text", "json"
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed files",
		Long: `Search the contents of indexed files.

Modes:
  term    any of the words, matched after language-specific stemming
  phrase  the words in order
  fuzzy   words within two edits of the query words`,
		Example: `  docwatch search invoice
  docwatch search "quarterly report" --mode phrase --details
  docwatch search recieve --mode fuzzy --lang en --limit 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(search.ModeTerm), "Match mode: term, phrase, fuzzy")
	cmd.Flags().StringVarP(&opts.language, "lang", "l", "", "Only files detected as this language (ISO 639-1)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultLimit, "Maximum number of results, 0 for all")
	cmd.Flags().BoolVarP(&opts.details, "details", "d", false, "Show highlighted matching fragments")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, query string, opts searchOptions) error {
	mode, err := search.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	if opts.format != "text" && opts.format != "json" {
		return dwerrors.New(dwerrors.ErrCodeInvalidInput, "unknown output format "+opts.format, nil).
			WithSuggestion("use text or json")
	}
	limit := opts.limit
	if limit == 0 {
		limit = -1
	}

	idx, err := openIndex(g.cfg)
	if err != nil {
		return whileWatching(err)
	}
	defer idx.Close()

	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Debug("search_started",
		slog.String("query", query),
		slog.String("mode", string(mode)),
		slog.Int("limit", limit))

	res, err := search.New(idx.store.Bleve()).Search(ctx, query, search.Options{
		Mode:      mode,
		Language:  opts.language,
		Limit:     limit,
		Highlight: opts.details,
		Color:     out.Color() && opts.format == "text",
	})
	if err != nil {
		return err
	}

	slog.Debug("search_completed", slog.Uint64("total", res.Total), slog.Int("returned", len(res.Hits)))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	search.Print(out, res, opts.details)
	return nil
}

// whileWatching points a locked-index failure at the running watcher. The
// watcher keeps the index store open for writing, and the store refuses a
// second reader while it does.
func whileWatching(err error) error {
	var de *dwerrors.DocwatchError
	if errors.As(err, &de) && de.Code == dwerrors.ErrCodeIndexLocked {
		de.WithSuggestion("a running `docwatch` watch holds the index; stop it (Ctrl-C) to query, " +
			"then run --reindex before watching again if files changed in between")
	}
	return err
}

// Package admin implements the one-shot index commands: add, remove,
// purge, clear, reindex and list. Each returns an Outcome for the user; expected
// no-ops such as adding a registered root are outcomes, not errors.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aman-CERP/docwatch/internal/output"
	"github.com/Aman-CERP/docwatch/internal/registry"
	"github.com/Aman-CERP/docwatch/internal/store"
)

// Status classifies an Outcome.
type Status int

const (
	// Done means the command changed the index.
	Done Status = iota
	// Noop means there was nothing to do.
	Noop
)

// Outcome is the user-facing result of a command.
type Outcome struct {
	Status  Status
	Message string
	// Roots is set by List.
	Roots []string
}

// Print writes the outcome to w.
func (o Outcome) Print(w *output.Writer) {
	for _, r := range o.Roots {
		w.Line(r)
	}
	if o.Message == "" {
		return
	}
	if o.Status == Noop {
		w.Warning(o.Message)
		return
	}
	w.Success(o.Message)
}

// Commands runs admin commands against a registry.
type Commands struct {
	reg *registry.Registry
	out *output.Writer
}

// New creates Commands. out receives progress indicators only.
func New(reg *registry.Registry, out *output.Writer) *Commands {
	return &Commands{reg: reg, out: out}
}

// Add registers path and indexes it.
func (c *Commands) Add(ctx context.Context, path string) (Outcome, error) {
	root, err := registry.Normalize(path)
	if err != nil {
		return Outcome{}, err
	}

	progress := c.out.Progress(-1, "Indexing "+root)
	var res store.TreeResult
	c.reg.OnRootIndexed = func(_ string, r store.TreeResult) {
		res = r
		progress.Step("")
	}
	defer func() { c.reg.OnRootIndexed = nil }()

	err = c.reg.AddRoot(ctx, root)
	progress.Done()
	if errors.Is(err, registry.ErrAlreadyRegistered) {
		return Outcome{Status: Noop, Message: fmt.Sprintf("%s is already indexed", root)}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	msg := fmt.Sprintf("Added %s (%s indexed", root, plural(res.Indexed, "file"))
	if res.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", res.Skipped)
	}
	return Outcome{Status: Done, Message: msg + ")"}, nil
}

// Remove unregisters path and deletes its documents.
func (c *Commands) Remove(ctx context.Context, path string) (Outcome, error) {
	root, err := registry.Normalize(path)
	if err != nil {
		return Outcome{}, err
	}

	err = c.reg.RemoveRoot(ctx, root)
	if errors.Is(err, registry.ErrNotRegistered) {
		return Outcome{Status: Noop, Message: fmt.Sprintf("%s is not indexed", root)}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: Done, Message: "Removed " + root}, nil
}

// Purge deletes every document and every root.
func (c *Commands) Purge(ctx context.Context) (Outcome, error) {
	if err := c.reg.PurgeAll(ctx); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: Done, Message: "Index purged"}, nil
}

// Clear deletes every file document and keeps the registered roots.
func (c *Commands) Clear(ctx context.Context) (Outcome, error) {
	removed, err := c.reg.ClearFiles(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if removed == 0 {
		return Outcome{Status: Noop, Message: "No documents to clear."}, nil
	}
	return Outcome{Status: Done, Message: fmt.Sprintf("Cleared %s, directories stay registered", plural(removed, "document"))}, nil
}

// Reindex rebuilds the index from the registered roots.
func (c *Commands) Reindex(ctx context.Context) (Outcome, error) {
	roots, err := c.reg.ListRoots(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(roots) == 0 {
		return Outcome{Status: Noop, Message: "No directories to reindex."}, nil
	}

	progress := c.out.Progress(len(roots), "Reindexing")
	c.reg.OnRootIndexed = func(root string, _ store.TreeResult) { progress.Step(root) }
	defer func() { c.reg.OnRootIndexed = nil }()

	rebuilt, err := c.reg.ReindexAll(ctx)
	progress.Done()
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: Done, Message: fmt.Sprintf("Reindexed %s", plural(len(rebuilt), "directory"))}, nil
}

// List returns the registered roots.
func (c *Commands) List(ctx context.Context) (Outcome, error) {
	roots, err := c.reg.ListRoots(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(roots) == 0 {
		return Outcome{Status: Noop, Message: "No indexed directories."}, nil
	}
	return Outcome{Status: Done, Roots: roots}, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if noun == "directory" {
		return fmt.Sprintf("%d directories", n)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docwatch/internal/admin"
	"github.com/Aman-CERP/docwatch/internal/output"
	"github.com/Aman-CERP/docwatch/internal/registry"
)

// adminFlags are the mutually exclusive one-shot operations of the root command.
type adminFlags struct {
	add     string
	rm      string
	reindex bool
	purge   bool
	clear   bool
	list    bool
}

func (f adminFlags) any() bool {
	return f.add != "" || f.rm != "" || f.reindex || f.purge || f.clear || f.list
}

func runAdmin(cmd *cobra.Command, g *globalOptions, f adminFlags) error {
	idx, err := openIndex(g.cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	out := output.New(cmd.OutOrStdout())
	cmds := admin.New(registry.New(idx.store), out)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var outcome admin.Outcome
	switch {
	case f.add != "":
		outcome, err = cmds.Add(ctx, f.add)
	case f.rm != "":
		outcome, err = cmds.Remove(ctx, f.rm)
	case f.reindex:
		outcome, err = cmds.Reindex(ctx)
	case f.purge:
		outcome, err = cmds.Purge(ctx)
	case f.clear:
		outcome, err = cmds.Clear(ctx)
	default:
		outcome, err = cmds.List(ctx)
	}
	if err != nil {
		return err
	}

	outcome.Print(out)
	return nil
}

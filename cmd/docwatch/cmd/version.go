package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docwatch/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON, short bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case short:
				_, err := fmt.Fprintln(out, version.Version)
				return err
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(version.Get())
			default:
				_, err := fmt.Fprintln(out, version.Get())
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	cmd.MarkFlagsMutuallyExclusive("json", "short")

	return cmd
}

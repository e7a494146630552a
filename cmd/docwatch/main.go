// Package main provides the entry point for the docwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/docwatch/cmd/docwatch/cmd"
	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, dwerrors.FormatForCLI(err))
		os.Exit(1)
	}
}

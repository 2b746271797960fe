// Package main provides the entry point for the nxindex CLI.
package main

import (
	"os"

	"github.com/nxindex/core/cmd/nxindex/cmd"
	nxerrors "github.com/nxindex/core/internal/errors"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the resulting error, if any,
// onto spec.md §6's exit codes: 0 success, 1 usage, 2 I/O failure, 3
// corrupt index.
func run() int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	switch nxerrors.GetCategory(err) {
	case nxerrors.CategoryValidation, nxerrors.CategoryConfig:
		return 1
	case nxerrors.CategoryIO:
		if nxerrors.GetCode(err) == nxerrors.ErrCodeCorruptIndex {
			return 3
		}
		return 2
	case nxerrors.CategoryNetwork, nxerrors.CategoryInternal:
		return 2
	default:
		return 1
	}
}

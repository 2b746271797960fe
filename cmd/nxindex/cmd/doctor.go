package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	nxerrors "github.com/nxindex/core/internal/errors"
	"github.com/nxindex/core/internal/packer"
)

// checkStatus mirrors the pass/warn/fail vocabulary the teacher's
// diagnostics used, kept small since this reimplementation has far fewer
// checks to run.
type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
)

type checkResult struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message"`
}

func newDoctorCmd() *cobra.Command {
	var (
		indexDir string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose an index directory",
		Long: `Run diagnostics against the index at --index:

  - the directory opens without a descriptor mismatch or corruption error
  - the directory is writable
  - the on-disk descriptor's repository id matches what --index implies

Descriptor/corruption failures are reported as fatal; permission issues
as warnings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if indexDir == "" {
				return nxerrors.New(nxerrors.ErrCodeInvalidPath, "--index is required", nil)
			}
			return runDoctor(cmd, indexDir, jsonOut)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index", "", "Path to the index directory to diagnose")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, indexDir string, jsonOut bool) error {
	var results []checkResult

	results = append(results, checkWritable(indexDir))

	reg, _, err := openRegistry(indexDir, "", false, packer.Options{})
	if err != nil {
		if nxerrors.GetCode(err) == nxerrors.ErrCodeUnsupportedExistingIndex {
			results = append(results, checkResult{
				Name: "descriptor", Status: statusFail,
				Message: "descriptor missing or mismatched; rerun the failing command with --reclaim to adopt it",
			})
		} else if nxerrors.GetCode(err) == nxerrors.ErrCodeCorruptIndex {
			results = append(results, checkResult{Name: "corruption", Status: statusFail, Message: err.Error()})
		} else {
			results = append(results, checkResult{Name: "open", Status: statusFail, Message: err.Error()})
		}
	} else {
		results = append(results, checkResult{Name: "descriptor", Status: statusPass, Message: "descriptor valid"})
		results = append(results, checkResult{Name: "corruption", Status: statusPass, Message: "index opened cleanly"})
		_ = reg.CloseAll()
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	failed := false
	for _, r := range results {
		symbol := "✓"
		switch r.Status {
		case statusWarn:
			symbol = "!"
		case statusFail:
			symbol = "✗"
			failed = true
		}
		fmt.Fprintf(out, "%s %-12s %s\n", symbol, r.Name, r.Message)
	}
	if failed {
		return nxerrors.New(nxerrors.ErrCodeCorruptIndex, "doctor found a fatal issue", nil)
	}
	return nil
}

func checkWritable(dir string) checkResult {
	probe := filepath.Join(dir, ".nxindex-doctor-probe")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return checkResult{Name: "writable", Status: statusWarn, Message: err.Error()}
	}
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return checkResult{Name: "writable", Status: statusWarn, Message: err.Error()}
	}
	_ = os.Remove(probe)
	return checkResult{Name: "writable", Status: statusPass, Message: dir + " is writable"}
}

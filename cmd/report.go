package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// reportFile is the on-disk form of a run report. Error codes are lifted out
// of the step errors, which do not serialize themselves.
type reportFile struct {
	schemas.RunReport
	Success   bool              `json:"success"`
	ErrorCode schemas.ErrorCode `json:"error_code,omitempty"`
	Version   string            `json:"version"`
}

func writeReportFile(report schemas.RunReport, path string) error {
	data, err := json.MarshalIndent(reportFile{
		RunReport: report,
		Success:   report.Success(),
		ErrorCode: schemas.CodeOf(report.Final.Err),
		Version:   Version,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report to JSON: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// printSummary writes one line per executed step.
func printSummary(out io.Writer, report schemas.RunReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run %s (%s)\n", report.RunID, report.Email)
	fmt.Fprintln(w, "STEP\tRESULT\tATTEMPTS\tDURATION")
	for _, s := range report.Steps {
		result := "ok"
		if !s.Success {
			result = "FAILED"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Step, result, s.Attempts, s.Duration.Round(time.Millisecond))
	}
	w.Flush()

	if report.Success() {
		fmt.Fprintln(out, "Registration completed.")
		return
	}
	fmt.Fprintf(out, "Registration failed at %s: %s\n", report.Final.Step, report.Final.Message)
}

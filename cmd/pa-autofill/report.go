package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 40)
)

func confidenceBar(conf float64) string {
	n := int(conf * 10)
	n = max(0, min(10, n))
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}

func printResult(w io.Writer, r entity.ProcessingResult) {
	fmt.Fprintf(w, "\n%s\nPatient Folder: %s\n%s\n", heavyRule, r.PatientFolder, heavyRule)

	if !r.Success {
		fmt.Fprintln(w, "Status: FAILED")
		fmt.Fprintf(w, "Error: %s\n", r.ErrorMessage)
		fmt.Fprintf(w, "%s\n\n", heavyRule)
		return
	}

	fmt.Fprintln(w, "Status: SUCCESS")
	fmt.Fprintf(w, "Processing Time: %.2fs\n", r.ProcessingTime.Seconds())
	fmt.Fprintf(w, "Output: %s\n", r.OutputPath)
	if r.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", r.ReportPath)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}

	if len(r.FilledFields) > 0 {
		fmt.Fprintf(w, "\nFILLED FIELDS (%d):\n%s\n", len(r.FilledFields), lightRule)
		for _, f := range r.FilledFields {
			fmt.Fprintf(w, "  • %s: %s\n", f.Name, f.ValueOr(""))
			fmt.Fprintf(w, "    Confidence: [%s] %s\n", confidenceBar(f.Confidence), entity.FormatPercent(f.Confidence))
		}
	}
	if len(r.UncertainFields) > 0 {
		fmt.Fprintf(w, "\nUNCERTAIN FIELDS (%d):\n%s\n", len(r.UncertainFields), lightRule)
		for _, f := range r.UncertainFields {
			fmt.Fprintf(w, "  • %s: %s (confidence: %s)\n", f.Name, f.ValueOr(""), entity.FormatPercent(f.Confidence))
		}
	}
	if len(r.UnfilledFields) > 0 {
		fmt.Fprintf(w, "\nFIELDS NOT FOUND (%d):\n%s\n", len(r.UnfilledFields), lightRule)
		for _, f := range r.UnfilledFields {
			fmt.Fprintf(w, "  • %s\n", f.Name)
		}
	}

	fmt.Fprintf(w, "\nCOMPLETION: %.1f%% (%d/%d fields)\n", r.CompletionRate()*100, len(r.FilledFields), r.TotalFields())
	fmt.Fprintf(w, "%s\n\n", heavyRule)
}

func printBatch(w io.Writer, b entity.BatchProcessingResult) {
	s := b.Summary()
	fmt.Fprintf(w, "\n%s\nBATCH PROCESSING SUMMARY\n%s\n", heavyRule, heavyRule)
	fmt.Fprintf(w, "Total Processed: %d\n", s.TotalProcessed)
	fmt.Fprintf(w, "Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Total Time: %.2fs\n", s.TotalTime)
	fmt.Fprintf(w, "%s\n\n", heavyRule)
}

func printFolders(w io.Writer, folders []entity.FolderInfo) {
	mark := func(b bool) string {
		if b {
			return "✓"
		}
		return "✗"
	}
	fmt.Fprintf(w, "\nAvailable Patient Folders:\n%s\n", lightRule)
	ready := 0
	for _, f := range folders {
		status := "Missing files"
		if f.Ready {
			status = "Ready"
			ready++
		}
		fmt.Fprintf(w, "  %s: %s\n", f.Name, status)
		fmt.Fprintf(w, "    PA Form: %s  |  Referral Package: %s\n", mark(f.HasPAForm), mark(f.HasReferralPackage))
	}
	fmt.Fprintf(w, "%s\nTotal: %d folders (%d ready)\n\n", lightRule, len(folders), ready)
}

package constants

import (
	"fmt"
	"strings"
)

// PAFormPatterns are tried in order when locating the PA form inside a patient folder.
var PAFormPatterns = []string{"PA.pdf", "pa.pdf", "PA*.pdf", "pa*.pdf"}

// ReferralPatterns are tried in order when locating the referral package.
var ReferralPatterns = []string{"referral_package.pdf", "Referral_Package.pdf", "referral*.pdf"}

// BatchSummaryFile is written to the output root after a batch run.
const BatchSummaryFile = "batch_summary.xlsx"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FilledFormName is the output file name of the filled PA form for a folder.
func FilledFormName(folder string) string {
	return fmt.Sprintf("filled_PA_%s.pdf", folder)
}

// ReportName is the output file name of the extraction report for a folder.
func ReportName(folder string) string {
	return fmt.Sprintf("extraction_report_%s.pdf", folder)
}

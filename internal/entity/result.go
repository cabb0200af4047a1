package entity

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/pa-autofill/constants"
)

// ProcessingResult is the outcome of one patient folder.
type ProcessingResult struct {
	RunID               string        `json:"run_id"`
	PatientFolder       string        `json:"patient_folder"`
	PAFormPath          string        `json:"pa_form_path"`
	ReferralPackagePath string        `json:"referral_package_path"`
	OutputPath          string        `json:"output_path,omitempty"`
	ReportPath          string        `json:"report_path,omitempty"`
	FilledFields        []FormField   `json:"filled_fields"`
	UncertainFields     []FormField   `json:"uncertain_fields"`
	UnfilledFields      []FormField   `json:"unfilled_fields"`
	ProcessingTime      time.Duration `json:"processing_time"`
	Timestamp           time.Time     `json:"timestamp"`
	Success             bool          `json:"success"`
	ErrorMessage        string        `json:"error_message,omitempty"`
	Warnings            []string      `json:"warnings,omitempty"`
}

// Categorize sorts fields into the filled/uncertain/unfilled lists.
func (r *ProcessingResult) Categorize(fields []FormField) {
	for _, f := range fields {
		switch f.Status {
		case constants.FieldFilled:
			r.FilledFields = append(r.FilledFields, f)
		case constants.FieldUncertain:
			r.UncertainFields = append(r.UncertainFields, f)
		default:
			r.UnfilledFields = append(r.UnfilledFields, f)
		}
	}
}

// TotalFields counts fields across the three lists.
func (r ProcessingResult) TotalFields() int {
	return len(r.FilledFields) + len(r.UncertainFields) + len(r.UnfilledFields)
}

// CompletionRate is the share of filled fields, 0 when there are none.
func (r ProcessingResult) CompletionRate() float64 {
	total := r.TotalFields()
	if total == 0 {
		return 0
	}
	return float64(len(r.FilledFields)) / float64(total)
}

// UnfilledFieldNames lists the names of fields that could not be filled.
func (r ProcessingResult) UnfilledFieldNames() []string {
	names := make([]string, 0, len(r.UnfilledFields))
	for _, f := range r.UnfilledFields {
		names = append(names, f.Name)
	}
	return names
}

// ResultSummary is the flat view of a ProcessingResult used by the CLI and API.
type ResultSummary struct {
	PatientFolder  string   `json:"patient_folder"`
	Success        bool     `json:"success"`
	TotalFields    int      `json:"total_fields"`
	FilledCount    int      `json:"filled_count"`
	UnfilledCount  int      `json:"unfilled_count"`
	UncertainCount int      `json:"uncertain_count"`
	CompletionRate float64  `json:"completion_rate"`
	ProcessingTime float64  `json:"processing_time"`
	OutputPath     *string  `json:"output_path"`
	ErrorMessage   *string  `json:"error_message"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (r ProcessingResult) Summary() ResultSummary {
	s := ResultSummary{
		PatientFolder:  r.PatientFolder,
		Success:        r.Success,
		TotalFields:    r.TotalFields(),
		FilledCount:    len(r.FilledFields),
		UnfilledCount:  len(r.UnfilledFields),
		UncertainCount: len(r.UncertainFields),
		CompletionRate: r.CompletionRate(),
		ProcessingTime: r.ProcessingTime.Seconds(),
		Warnings:       r.Warnings,
	}
	if r.OutputPath != "" {
		p := r.OutputPath
		s.OutputPath = &p
	}
	if r.ErrorMessage != "" {
		m := r.ErrorMessage
		s.ErrorMessage = &m
	}
	return s
}

// BatchProcessingResult aggregates folder results in completion order.
type BatchProcessingResult struct {
	Results   []ProcessingResult `json:"results"`
	TotalTime time.Duration      `json:"total_time"`
	Timestamp time.Time          `json:"timestamp"`
}

// Successful counts successful folders.
func (b BatchProcessingResult) Successful() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// AnyFailed reports whether at least one folder failed.
func (b BatchProcessingResult) AnyFailed() bool {
	return b.Successful() != len(b.Results)
}

type BatchSummary struct {
	TotalProcessed    int             `json:"total_processed"`
	Successful        int             `json:"successful"`
	Failed            int             `json:"failed"`
	TotalTime         float64         `json:"total_time"`
	IndividualResults []ResultSummary `json:"individual_results"`
}

func (b BatchProcessingResult) Summary() BatchSummary {
	ok := b.Successful()
	out := BatchSummary{
		TotalProcessed:    len(b.Results),
		Successful:        ok,
		Failed:            len(b.Results) - ok,
		TotalTime:         b.TotalTime.Seconds(),
		IndividualResults: make([]ResultSummary, 0, len(b.Results)),
	}
	for _, r := range b.Results {
		out.IndividualResults = append(out.IndividualResults, r.Summary())
	}
	return out
}

// FolderInfo describes a patient folder and whether it has both input documents.
type FolderInfo struct {
	Name               string `json:"name"`
	Path               string `json:"path"`
	HasPAForm          bool   `json:"has_pa_form"`
	HasReferralPackage bool   `json:"has_referral_package"`
	Ready              bool   `json:"ready"`
}

// FormatPercent renders 0.954 as "95%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

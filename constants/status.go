package constants

// FieldStatus is the outcome of extracting a single template field.
type FieldStatus string

// Stable values (these exact strings are returned by the API and stored in run history).
const (
	FieldFilled    FieldStatus = "filled"    // value found with confidence >= FilledConfidence
	FieldUncertain FieldStatus = "uncertain" // value found, low confidence
	FieldNotFound  FieldStatus = "not_found" // no value
	FieldSkipped   FieldStatus = "skipped"   // not attempted
)

// FilledConfidence is the minimum confidence for a value to count as filled.
const FilledConfidence = 0.7

// DefaultConfidence is assumed when the model omits a confidence.
const DefaultConfidence = 0.5

// NotFoundSentinel is the literal the model is told to use for absent values.
const NotFoundSentinel = "NOT_FOUND"

// Stage names a step of the per-folder pipeline.
type Stage string

const (
	StageLocateInputs  Stage = "locate_inputs"
	StageExtractText   Stage = "extract_text"
	StageIndexChunks   Stage = "index_chunks"
	StageExtractFields Stage = "extract_fields"
	StageCategorize    Stage = "categorize"
	StageFillForm      Stage = "fill_form"
	StageDone          Stage = "done"
	StageFailed        Stage = "failed"
)

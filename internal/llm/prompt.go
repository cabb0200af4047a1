package llm

import (
	"strings"
)

const (
	TextSystemPrompt   = "You are a medical document extraction assistant. Extract information accurately and return valid JSON."
	VisionSystemPrompt = "You are a medical document extraction assistant with vision capabilities. Extract information accurately from documents and return valid JSON."

	// DefaultImageContext stands in for document text when only page images are sent.
	DefaultImageContext = "Extract information from the following document images."
)

// BuildExtractionPrompt lays out the document, the requested fields and the
// expected JSON reply.
func BuildExtractionPrompt(context string, fields []string, descriptions map[string]string) string {
	var b strings.Builder
	b.WriteString("You are an expert medical document analyst. Your task is to extract specific information from a medical referral package document.\n\n")

	b.WriteString("DOCUMENT CONTENT:\n")
	b.WriteString(context)
	b.WriteString("\n\n")

	b.WriteString("FIELDS TO EXTRACT:\n")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(f)
		if d := descriptions[f]; d != "" {
			b.WriteString(": ")
			b.WriteString(d)
		}
	}
	b.WriteString("\n\n")

	b.WriteString(`INSTRUCTIONS:
1. Carefully analyze the document content
2. Extract values for each field listed above
3. If a field's value is not found in the document, mark it as "NOT_FOUND"
4. If you're uncertain about a value, mark confidence as low
5. Be precise - only extract information that is explicitly stated

RESPONSE FORMAT:
Return a JSON object with the following structure:
{
    "extracted_fields": [
        {
            "name": "field_name",
            "value": "extracted value or NOT_FOUND",
            "confidence": 0.0 to 1.0,
            "source_text": "the exact text this was extracted from (if applicable)"
        }
    ]
}

Return ONLY the JSON object, no additional text.`)
	return b.String()
}

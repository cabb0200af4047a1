package fill

import (
	"fmt"
	"strings"
)

// Alias maps a keyword found in a form field label to a template field.
type Alias struct {
	Keyword string
	Field   string
}

// DefaultAliases are the label keywords recognised out of the box.
var DefaultAliases = []Alias{
	{"name", "patient_name"},
	{"dob", "patient_dob"},
	{"date_of_birth", "patient_dob"},
	{"member", "member_id"},
	{"provider", "provider_name"},
	{"npi", "provider_npi"},
	{"diagnosis", "diagnosis"},
	{"icd", "icd_10_codes"},
}

// ParseAliases reads extra aliases written as "keyword=field" pairs separated
// by commas, e.g. "insured=member_id, rx=medication_name". Blank input yields nil.
func ParseAliases(s string) ([]Alias, error) {
	var out []Alias
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kw, field, ok := strings.Cut(pair, "=")
		kw = NormalizeLabel(strings.TrimSpace(kw))
		field = strings.ToLower(strings.TrimSpace(field))
		if !ok || kw == "" || field == "" {
			return nil, fmt.Errorf("invalid alias %q, want keyword=field", pair)
		}
		out = append(out, Alias{Keyword: kw, Field: field})
	}
	return out, nil
}

// NormalizeLabel lowercases a label and turns spaces and hyphens into underscores.
func NormalizeLabel(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// MatchField picks the first known field, in order, whose name contains or is
// contained in the normalized candidate, or that an alias keyword in the
// candidate points at. An empty candidate never matches.
func MatchField(candidate string, known []string, aliases []Alias) (string, bool) {
	c := NormalizeLabel(strings.TrimSpace(candidate))
	if c == "" {
		return "", false
	}
	for _, field := range known {
		f := strings.ToLower(field)
		if f == "" {
			continue
		}
		if strings.Contains(c, f) || strings.Contains(f, c) {
			return field, true
		}
		for _, a := range aliases {
			if strings.Contains(c, a.Keyword) && a.Field == f {
				return field, true
			}
		}
	}
	return "", false
}

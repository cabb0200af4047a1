package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SanitizeExtraction coerces common near-misses in a model reply so it can pass
// the schema: numeric or boolean values become strings, string confidences are
// parsed, out-of-range confidences are clamped and items without a usable name
// are dropped. It returns the cleaned document and a list of what it touched.
func SanitizeExtraction(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	items, ok := m["extracted_fields"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("sanitize: extracted_fields is not an array")
	}

	var changed []string
	kept := make([]any, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			changed = append(changed, fmt.Sprintf("item[%d]:dropped", i))
			continue
		}
		name, ok := obj["name"].(string)
		if !ok || strings.TrimSpace(name) == "" {
			changed = append(changed, fmt.Sprintf("item[%d]:dropped", i))
			continue
		}

		for _, key := range []string{"value", "source_text"} {
			switch v := obj[key].(type) {
			case float64:
				obj[key] = strconv.FormatFloat(v, 'f', -1, 64)
				changed = append(changed, name+"."+key)
			case bool:
				obj[key] = strconv.FormatBool(v)
				changed = append(changed, name+"."+key)
			case []any, map[string]any:
				b, _ := json.Marshal(v)
				obj[key] = string(b)
				changed = append(changed, name+"."+key)
			}
		}

		switch c := obj["confidence"].(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(c), "%"), 64)
			if err != nil {
				delete(obj, "confidence")
			} else {
				if strings.HasSuffix(strings.TrimSpace(c), "%") {
					f /= 100
				}
				obj["confidence"] = clamp01(f)
			}
			changed = append(changed, name+".confidence")
		case float64:
			if c < 0 || c > 1 {
				obj["confidence"] = clamp01(c)
				changed = append(changed, name+".confidence")
			}
		case nil:
			if _, present := obj["confidence"]; present {
				delete(obj, "confidence")
				changed = append(changed, name+".confidence")
			}
		default:
			delete(obj, "confidence")
			changed = append(changed, name+".confidence")
		}
		kept = append(kept, obj)
	}
	m["extracted_fields"] = kept

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

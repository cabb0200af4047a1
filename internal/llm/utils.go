package llm

import "strings"

// StripCodeFence removes a leading Markdown code fence, and a "json" language
// tag after it, from a model reply.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// PNGDataURL wraps base64 PNG data in a data: URL.
func PNGDataURL(b64 string) string {
	return "data:image/png;base64," + b64
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

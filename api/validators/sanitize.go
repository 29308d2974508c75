package validators

import "strings"

// SanitizeString trims surrounding whitespace and truncates to maxLen bytes.
// maxLen <= 0 means no length cap.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

package whatsapp

import (
	"fmt"
	"net/url"
	"strings"
)

const deepLinkBase = "https://wa.me/"

// DeepLink builds a wa.me link that opens a chat with the given number and a
// pre-filled message. The number is normalized to digits only (E.164 without
// the plus sign, per the wa.me format).
func DeepLink(number, message string) (string, error) {
	digits := normalizeNumber(number)
	if digits == "" {
		return "", fmt.Errorf("whatsapp number is required")
	}

	link := deepLinkBase + digits
	if strings.TrimSpace(message) != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link, nil
}

func normalizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

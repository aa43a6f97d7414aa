package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

// MaxTextLength bounds free-text fields stored with ledger and audit rows.
const MaxTextLength = 1000

// SanitizeString trims whitespace, drops null bytes and bounds the length
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if len(input) > MaxTextLength {
		input = input[:MaxTextLength]
		// Do not leave half a rune at the cut
		for !utf8.ValidString(input) {
			input = input[:len(input)-1]
		}
	}

	return input
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeText prepares caller-supplied text (descriptions, reasons, payout
// details) for persistence.
func SanitizeText(input string) string {
	return SanitizeString(SanitizeHTML(input))
}

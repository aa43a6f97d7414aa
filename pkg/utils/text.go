package utils

import "strings"

// NormalizeKey lowercases a category-like value and folds spaces and dashes
// into underscores ("Self Gift-Attempt" -> "self_gift_attempt").
func NormalizeKey(input string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(input)))
}

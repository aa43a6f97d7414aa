package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewReference returns a prefixed, globally unique reference such as
// "co_3f9d2c0a6b1e4d0c9a7b5e2f1c8d4a6b".
func NewReference(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

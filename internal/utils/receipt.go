package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewReceiptNo returns a short uppercase payment receipt reference
// derived from a fresh UUID.
func NewReceiptNo() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RCP-" + strings.ToUpper(hex[:12])
}

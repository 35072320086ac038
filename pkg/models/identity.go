package models

import "strings"

// NormalizeEmail canonicalizes an email used as a verification and
// progress-lookup key: trimmed and lower-cased, exact match only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

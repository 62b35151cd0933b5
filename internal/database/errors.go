package database

import "strings"

// IsUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. The driver exposes no typed error for this, so services use
// it to map duplicates onto conflict errors.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

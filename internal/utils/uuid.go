package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as a UUID. Handlers check route
// params with this before querying, treating garbage ids the same as
// ids that exist for nobody: a plain not-found, never a driver error.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)

	return err == nil
}

// internal/util/ids.go
// Generator ID untuk request dan batch upload

package util

import (
	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// NewBatchID is time-ordered (UUIDv7) so batches sort by upload time.
func NewBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

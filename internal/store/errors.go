package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound reports that a referenced template/printer/job id does not
// exist. Callers surface it as a 404; it is never retried automatically.
var ErrNotFound = errors.New("record not found")

// translate maps gorm's sentinel onto the domain error so callers never
// depend on the persistence library directly.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

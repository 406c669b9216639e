// package models defines the persisted records of the ezpbars client
package models

import (
	"time"
)

// Model is a record with identity, timestamps, and validation.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error // Validate reports missing or out-of-range fields before a write
}

// Repository stores one kind of [Model].
//
// Get and List never return soft-deleted records. Implementations wrap shared.ErrNotFound for missing IDs.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error) // supported criteria keys are implementation specific
}

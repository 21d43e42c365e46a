package repository

import "github.com/google/uuid"

// newBindingID generates the opaque primary key for a new binding row.
func newBindingID() string {
	return uuid.NewString()
}

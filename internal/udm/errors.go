package udm

import "fmt"

// MissingFieldError reports a vendor record that arrived without a field the
// mapper cannot derive the UDM row without. Mappers fail fast with this
// instead of emitting rows with empty natural keys.
type MissingFieldError struct {
	Resource Resource
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: source record is missing required field %q", e.Resource, e.Field)
}

// NewMissingFieldError builds a MissingFieldError for the given resource.
func NewMissingFieldError(resource Resource, field string) *MissingFieldError {
	return &MissingFieldError{Resource: resource, Field: field}
}

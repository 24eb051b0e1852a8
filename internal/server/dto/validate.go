// Defines the validation interface for requests.

// Package dto holds the request and response types of the HTTP API.
package dto

import apierrors "github.com/maruel/mdcms/internal/errors"

// Validatable is implemented by request types that can validate their fields.
// The Wrap functions use it as a type constraint so every request type
// provides validation.
type Validatable interface {
	Validate() error
}

// MissingField returns the error for an absent required field.
func MissingField(field string) error {
	return apierrors.MissingField(field)
}

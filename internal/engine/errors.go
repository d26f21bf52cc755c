package engine

import (
	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

var (
	ErrFormNotFound  = errors.New("form not found")
	ErrTokenRequired = errors.New("a validated e-mail is required to fill this form")
	ErrPluginOff     = errors.New("plugin is not enabled on this form")
)

// ValidationError lists the fields of a submission that were refused.
type ValidationError struct {
	Fields form.FieldErrors
}

func (e *ValidationError) Error() string { return e.Fields.Error() }

package condition

import "github.com/cockroachdb/errors"

var (
	ErrMalformedRule        = errors.New("malformed rule")
	ErrUnknownOperator      = errors.New("unknown operator")
	ErrUnknownField         = errors.New("rule references an unknown field")
	ErrOperatorNotSupported = errors.New("operator not supported for field type")
	ErrCoercion             = errors.New("cannot coerce operand")
	ErrMissingValue         = errors.New("no submitted value")
)

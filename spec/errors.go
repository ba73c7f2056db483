package spec

import (
	"errors"
	"fmt"
)

// Definition errors. These are reported once, when a specification is
// constructed, never while a request is being built.
var (
	ErrInvalidName        = errors.New("invalid specification name")
	ErrInvalidMethod      = errors.New("invalid http method")
	ErrInvalidTemplate    = errors.New("invalid path template")
	ErrConflictingRoles   = errors.New("field declares more than one role")
	ErrDuplicateField     = errors.New("duplicate field")
	ErrUnboundPlaceholder = errors.New("path placeholder has no path field")
	ErrUnusedPathField    = errors.New("path field not referenced by template")
	ErrInvalidField       = errors.New("invalid field definition")
)

// DefinitionError ties a definition failure to the specification and,
// when relevant, the field that caused it.
type DefinitionError struct {
	Spec  string
	Field string
	Err   error
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("spec %s: %v", e.Spec, e.Err)
	}

	return fmt.Sprintf("spec %s: field %s: %v", e.Spec, e.Field, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

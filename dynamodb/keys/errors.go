package keys

import (
	"errors"
	"fmt"
)

var (
	ErrAttributeMissing      = errors.New("attribute missing")
	ErrValueOverflow         = errors.New("value overflows padding")
	ErrDelimiterCollision    = errors.New("value contains key delimiter")
	ErrInvalidAttributeValue = errors.New("invalid attribute value")
	ErrUnknownAttribute      = errors.New("unknown attribute")
	ErrSortsBelowDelimiter   = errors.New("sort key value contains bytes below the key delimiter")
)

// AttributeError reports a failure to render one attribute into a key.
type AttributeError struct {
	Attribute string
	Value     any
	Detail    string
	Err       error
}

func (e *AttributeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("attribute %q: %v", e.Attribute, e.Err)
	}
	return fmt.Sprintf("attribute %q: %v: %s", e.Attribute, e.Err, e.Detail)
}

func (e *AttributeError) Unwrap() error { return e.Err }

func attrErr(name string, v any, err error, detail string) error {
	return &AttributeError{Attribute: name, Value: v, Detail: detail, Err: err}
}

// MissingError lists every template attribute absent from the supplied values.
type MissingError struct {
	Attributes []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%v: %q", ErrAttributeMissing, e.Attributes)
}

func (e *MissingError) Unwrap() error { return ErrAttributeMissing }

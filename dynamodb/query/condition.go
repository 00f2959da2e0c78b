// Package query compiles attribute values and a sort key operator into the
// physical partition key and sort key condition of a single store request.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acksell/colldb/dynamodb/keys"
)

var (
	ErrIncompletePartitionKey           = errors.New("incomplete partition key")
	ErrInvalidRange                     = errors.New("invalid range")
	ErrUnsupportedOperationForIndexKind = errors.New("operation not supported for index kind")
	ErrInvalidCondition                 = errors.New("invalid sort key condition")
)

// Operator is a sort key operator expressed over attribute values.
type Operator string

const (
	OpNone       Operator = ""
	OpBeginsWith Operator = "begins_with"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpBetween    Operator = "between"
)

// IsRange reports whether o orders items by their sort key.
func (o Operator) IsRange() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

func (o Operator) bounds() int {
	switch o {
	case OpNone:
		return 0
	case OpBetween:
		return 2
	}
	return 1
}

// ParseOperator maps an operator name to an Operator. The empty string and
// "none" both map to OpNone.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpNone, OpBeginsWith, OpGt, OpGte, OpLt, OpLte, OpBetween:
		return op, nil
	case "none":
		return OpNone, nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, s)
}

// Condition is a sort key operator with its bound values. Bounds are merged
// over the values supplied to the query, so they only need the attributes
// that differ.
type Condition struct {
	Op     Operator
	Bounds []keys.Values
}

func (c Condition) validate() error {
	if _, err := ParseOperator(string(c.Op)); err != nil {
		return err
	}
	if want := c.Op.bounds(); len(c.Bounds) != want {
		return fmt.Errorf("%w: %s takes %d bound(s), got %d", ErrInvalidCondition, c.Op.name(), want, len(c.Bounds))
	}
	return nil
}

func (o Operator) name() string {
	if o == OpNone {
		return "none"
	}
	return string(o)
}

// SortOp is a physical comparison on the sort key string.
type SortOp string

const (
	SortEqual      SortOp = "="
	SortBeginsWith SortOp = "begins_with"
	SortGt         SortOp = ">"
	SortGte        SortOp = ">="
	SortLt         SortOp = "<"
	SortLte        SortOp = "<="
	SortBetween    SortOp = "between"
)

// SortKeyCondition is the physical sort key predicate sent to a store.
// Upper is only set for SortBetween.
type SortKeyCondition struct {
	Op    SortOp
	Value string
	Upper string
}

// Match reports whether the sort key sk satisfies the condition.
func (c SortKeyCondition) Match(sk string) bool {
	switch c.Op {
	case SortEqual:
		return sk == c.Value
	case SortBeginsWith:
		return strings.HasPrefix(sk, c.Value)
	case SortGt:
		return sk > c.Value
	case SortGte:
		return sk >= c.Value
	case SortLt:
		return sk < c.Value
	case SortLte:
		return sk <= c.Value
	case SortBetween:
		return sk >= c.Value && sk <= c.Upper
	}
	return false
}

func (c SortKeyCondition) String() string {
	if c.Op == SortBetween {
		return fmt.Sprintf("between %q and %q", c.Value, c.Upper)
	}
	return fmt.Sprintf("%s %q", c.Op, c.Value)
}

package ddbsdk

import (
	"fmt"

	expression2 "github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/acksell/colldb/dynamodb/query"
)

// SortKeyStrategy defines how to filter on the sort key in a range query.
type SortKeyStrategy func(skName string) expression2.KeyConditionBuilder

// Equals returns items where the sort key equals the provided value.
func Equals(v string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyEqual(expression2.Key(skName), expression2.Value(v))
	}
}

// BeginsWith returns items where the sort key starts with the provided prefix.
func BeginsWith(prefix string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyBeginsWith(expression2.Key(skName), prefix)
	}
}

// Between returns items where the sort key is between start and end (inclusive).
func Between(start, end string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyBetween(
			expression2.Key(skName),
			expression2.Value(start),
			expression2.Value(end),
		)
	}
}

// GreaterThan returns items where the sort key is greater than the provided value.
func GreaterThan(v string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyGreaterThan(expression2.Key(skName), expression2.Value(v))
	}
}

// GreaterThanOrEqual returns items where the sort key is greater than or equal to the provided value.
func GreaterThanOrEqual(v string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyGreaterThanEqual(expression2.Key(skName), expression2.Value(v))
	}
}

// LessThan returns items where the sort key is less than the provided value.
func LessThan(v string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyLessThan(expression2.Key(skName), expression2.Value(v))
	}
}

// LessThanOrEqual returns items where the sort key is less than or equal to the provided value.
func LessThanOrEqual(v string) SortKeyStrategy {
	return func(skName string) expression2.KeyConditionBuilder {
		return expression2.KeyLessThanEqual(expression2.Key(skName), expression2.Value(v))
	}
}

// strategyFor translates a planned sort key condition.
func strategyFor(cond *query.SortKeyCondition) (SortKeyStrategy, error) {
	switch cond.Op {
	case query.SortEqual:
		return Equals(cond.Value), nil
	case query.SortBeginsWith:
		return BeginsWith(cond.Value), nil
	case query.SortGt:
		return GreaterThan(cond.Value), nil
	case query.SortGte:
		return GreaterThanOrEqual(cond.Value), nil
	case query.SortLt:
		return LessThan(cond.Value), nil
	case query.SortLte:
		return LessThanOrEqual(cond.Value), nil
	case query.SortBetween:
		return Between(cond.Value, cond.Upper), nil
	}
	return nil, fmt.Errorf("unsupported sort key operator %q", cond.Op)
}

func ptr[T any](v T) *T {
	return &v
}

// Package models defines the core domain models for the accreditation
// workflow engine.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ConditionType discriminates the two condition variants.
type ConditionType string

const (
	ConditionTypeSimple   ConditionType = "simple"
	ConditionTypeCompound ConditionType = "compound"
)

// Operator is a comparison operator usable in a simple condition.
// For compound conditions the operator is one of the logical operators.
type Operator string

const (
	OperatorEq         Operator = "eq"
	OperatorNeq        Operator = "neq"
	OperatorContains   Operator = "contains"
	OperatorStartsWith Operator = "startsWith"
	OperatorGt         Operator = "gt"
	OperatorGte        Operator = "gte"
	OperatorLt         Operator = "lt"
	OperatorLte        Operator = "lte"
	OperatorIn         Operator = "in"
	OperatorNotIn      Operator = "notIn"
	OperatorIsNull     Operator = "isNull"
	OperatorIsNotNull  Operator = "isNotNull"

	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// Condition is a tagged union: a simple field comparison or a logical
// combination of sub-conditions. A nil *Condition matches unconditionally.
type Condition struct {
	Type       ConditionType `json:"type"`
	Field      string        `json:"field,omitempty"`
	Operator   Operator      `json:"operator,omitempty"`
	Value      any           `json:"value,omitempty"`
	Conditions []*Condition  `json:"conditions,omitempty"`
}

type conditionAlias Condition

// UnmarshalJSON rejects unknown discriminators and operators at the decode
// boundary so Evaluate never sees a malformed condition.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var alias conditionAlias

	err := json.Unmarshal(data, &alias)
	if err != nil {
		return err
	}

	*c = Condition(alias)

	return c.Validate()
}

// Validate checks the condition tree structurally.
func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}

	switch c.Type {
	case ConditionTypeSimple:
		if c.Field == "" {
			return fmt.Errorf("simple condition requires a field")
		}

		if !isComparisonOperator(c.Operator) {
			return fmt.Errorf("unknown comparison operator %q", c.Operator)
		}
	case ConditionTypeCompound:
		if c.Operator != OperatorAnd && c.Operator != OperatorOr {
			return fmt.Errorf("compound condition operator must be and/or, got %q", c.Operator)
		}

		for _, sub := range c.Conditions {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}

	return nil
}

func isComparisonOperator(op Operator) bool {
	switch op {
	case OperatorEq, OperatorNeq, OperatorContains, OperatorStartsWith,
		OperatorGt, OperatorGte, OperatorLt, OperatorLte,
		OperatorIn, OperatorNotIn, OperatorIsNull, OperatorIsNotNull:
		return true
	default:
		return false
	}
}

// Evaluate resolves the condition against a flattened participant data
// record. A nil condition is vacuously true. Missing fields behave as null.
func (c *Condition) Evaluate(data map[string]any) bool {
	if c == nil {
		return true
	}

	switch c.Type {
	case ConditionTypeCompound:
		return c.evaluateCompound(data)
	case ConditionTypeSimple:
		return c.evaluateSimple(data)
	default:
		return false
	}
}

func (c *Condition) evaluateCompound(data map[string]any) bool {
	if c.Operator == OperatorAnd {
		for _, sub := range c.Conditions {
			if !sub.Evaluate(data) {
				return false
			}
		}

		return true
	}

	for _, sub := range c.Conditions {
		if sub.Evaluate(data) {
			return true
		}
	}

	return false
}

func (c *Condition) evaluateSimple(data map[string]any) bool {
	fieldValue := data[c.Field]

	switch c.Operator {
	case OperatorIsNull:
		return fieldValue == nil
	case OperatorIsNotNull:
		return fieldValue != nil
	case OperatorEq:
		return looseEqual(fieldValue, c.Value)
	case OperatorNeq:
		return !looseEqual(fieldValue, c.Value)
	case OperatorContains:
		if fieldValue == nil {
			return false
		}

		return strings.Contains(coerceString(fieldValue), coerceString(c.Value))
	case OperatorStartsWith:
		if fieldValue == nil {
			return false
		}

		return strings.HasPrefix(coerceString(fieldValue), coerceString(c.Value))
	case OperatorGt:
		return compareNumeric(fieldValue, c.Value, func(a, b float64) bool { return a > b })
	case OperatorGte:
		return compareNumeric(fieldValue, c.Value, func(a, b float64) bool { return a >= b })
	case OperatorLt:
		return compareNumeric(fieldValue, c.Value, func(a, b float64) bool { return a < b })
	case OperatorLte:
		return compareNumeric(fieldValue, c.Value, func(a, b float64) bool { return a <= b })
	case OperatorIn:
		return listContains(c.Value, fieldValue)
	case OperatorNotIn:
		return !listContains(c.Value, fieldValue)
	default:
		return false
	}
}

// looseEqual compares numerically when both operands coerce to numbers,
// otherwise by string representation. Null only equals null.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	numA, okA := coerceNumber(a)
	numB, okB := coerceNumber(b)

	if okA && okB {
		return numA == numB
	}

	return coerceString(a) == coerceString(b)
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) bool {
	numA, okA := coerceNumber(a)
	numB, okB := coerceNumber(b)

	if !okA || !okB {
		return false
	}

	return cmp(numA, numB)
}

func listContains(list, value any) bool {
	items, ok := list.([]any)
	if !ok {
		switch typed := list.(type) {
		case []string:
			for _, item := range typed {
				if looseEqual(item, value) {
					return true
				}
			}
		case []float64:
			for _, item := range typed {
				if looseEqual(item, value) {
					return true
				}
			}
		}

		return false
	}

	for _, item := range items {
		if looseEqual(item, value) {
			return true
		}
	}

	return false
}

func coerceNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	if value == nil {
		return ""
	}

	if str, ok := value.(string); ok {
		return str
	}

	return fmt.Sprintf("%v", value)
}

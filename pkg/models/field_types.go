package models

// FieldType is the declared data type of a participant data field.
type FieldType string

const (
	FieldTypeText        FieldType = "TEXT"
	FieldTypeNumber      FieldType = "NUMBER"
	FieldTypeDate        FieldType = "DATE"
	FieldTypeBoolean     FieldType = "BOOLEAN"
	FieldTypeEnum        FieldType = "ENUM"
	FieldTypeMultiSelect FieldType = "MULTISELECT"
)

// OperatorInfo describes an operator for UI affordances.
type OperatorInfo struct {
	Operator Operator `json:"operator"`
	Label    string   `json:"label"`
}

var nullabilityOperators = []OperatorInfo{
	{Operator: OperatorIsNull, Label: "is empty"},
	{Operator: OperatorIsNotNull, Label: "is not empty"},
}

var operatorsByFieldType = map[FieldType][]OperatorInfo{
	FieldTypeText: {
		{Operator: OperatorEq, Label: "equals"},
		{Operator: OperatorNeq, Label: "does not equal"},
		{Operator: OperatorContains, Label: "contains"},
		{Operator: OperatorStartsWith, Label: "starts with"},
	},
	FieldTypeNumber: {
		{Operator: OperatorEq, Label: "equals"},
		{Operator: OperatorNeq, Label: "does not equal"},
		{Operator: OperatorGt, Label: "greater than"},
		{Operator: OperatorGte, Label: "greater than or equal"},
		{Operator: OperatorLt, Label: "less than"},
		{Operator: OperatorLte, Label: "less than or equal"},
	},
	FieldTypeDate: {
		{Operator: OperatorEq, Label: "on"},
		{Operator: OperatorNeq, Label: "not on"},
		{Operator: OperatorGt, Label: "after"},
		{Operator: OperatorGte, Label: "on or after"},
		{Operator: OperatorLt, Label: "before"},
		{Operator: OperatorLte, Label: "on or before"},
	},
	FieldTypeBoolean: {
		{Operator: OperatorEq, Label: "is"},
		{Operator: OperatorNeq, Label: "is not"},
	},
	FieldTypeEnum: {
		{Operator: OperatorEq, Label: "is"},
		{Operator: OperatorNeq, Label: "is not"},
		{Operator: OperatorIn, Label: "is any of"},
		{Operator: OperatorNotIn, Label: "is none of"},
	},
	FieldTypeMultiSelect: {
		{Operator: OperatorContains, Label: "includes"},
		{Operator: OperatorIn, Label: "is any of"},
		{Operator: OperatorNotIn, Label: "is none of"},
	},
}

// OperatorsForType returns the operators that are semantically valid for a
// field type. This only drives configuration UIs; Evaluate does not enforce
// it. Unknown types get the nullability operators only.
func OperatorsForType(fieldType FieldType) []OperatorInfo {
	operators, ok := operatorsByFieldType[fieldType]
	if !ok {
		return nullabilityOperators
	}

	result := make([]OperatorInfo, 0, len(operators)+len(nullabilityOperators))
	result = append(result, operators...)
	result = append(result, nullabilityOperators...)

	return result
}

package enums

import "fmt"

// ConditionState is the physical condition recorded for an inventory asset.
type ConditionState string

const (
	ConditionStateNovo     ConditionState = "Novo"
	ConditionStateBom      ConditionState = "Bom"
	ConditionStateRegular  ConditionState = "Regular"
	ConditionStateAvariado ConditionState = "Avariado"
)

// DefaultConditionState is assumed when a note carries no recognizable state.
const DefaultConditionState = ConditionStateRegular

// ConditionStates lists the vocabulary in the order free text is tested against it.
var ConditionStates = []ConditionState{
	ConditionStateNovo,
	ConditionStateBom,
	ConditionStateRegular,
	ConditionStateAvariado,
}

// String implements fmt.Stringer.
func (c ConditionState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConditionState.
func (c ConditionState) IsValid() bool {
	for _, candidate := range ConditionStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConditionState converts raw input into a ConditionState.
func ParseConditionState(value string) (ConditionState, error) {
	for _, candidate := range ConditionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid condition state %q", value)
}

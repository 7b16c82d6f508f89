package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownStepOp    = errors.New("rules: unknown step type")
	ErrInvalidStepValue = errors.New("rules: step value is not numeric")
	ErrMalformedSteps   = errors.New("rules: steps payload is not a list")
)

type StepOp string

const (
	StepMultiplier     StepOp = "multiplier"
	StepAddOffset      StepOp = "add_offset"
	StepSubtractOffset StepOp = "subtract_offset"
)

func ParseStepOp(raw string) (StepOp, error) {
	switch op := StepOp(strings.TrimSpace(raw)); op {
	case StepMultiplier, StepAddOffset, StepSubtractOffset:
		return op, nil
	default:
		return "", ErrUnknownStepOp
	}
}

// Step is one arithmetic operation of a plan pipeline.
type Step struct {
	Op    StepOp
	Value decimal.Decimal
}

func Multiplier(v decimal.Decimal) Step     { return Step{Op: StepMultiplier, Value: v} }
func AddOffset(v decimal.Decimal) Step      { return Step{Op: StepAddOffset, Value: v} }
func SubtractOffset(v decimal.Decimal) Step { return Step{Op: StepSubtractOffset, Value: v} }

func (s Step) Apply(rate decimal.Decimal) decimal.Decimal {
	switch s.Op {
	case StepMultiplier:
		return rate.Mul(s.Value)
	case StepAddOffset:
		return rate.Add(s.Value)
	case StepSubtractOffset:
		return rate.Sub(s.Value)
	default:
		return rate
	}
}

// StepIssue describes a stored step that was dropped while parsing.
type StepIssue struct {
	Index int
	Type  string
	Value string
	Err   error
}

func (i StepIssue) Error() string {
	return fmt.Sprintf("step %d (%s=%q): %v", i.Index, i.Type, i.Value, i.Err)
}

type rawStep struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ParseSteps decodes a stored steps payload. It accepts a JSON array, a JSON string holding
// an array, or an object with a "steps" array; null or empty input yields no steps.
// Steps with an unknown type or a non-numeric value are dropped and reported as issues.
func ParseSteps(payload []byte) ([]Step, []StepIssue, error) {
	list, err := stepList(payload)
	if err != nil {
		return nil, nil, err
	}
	steps := make([]Step, 0, len(list))
	var issues []StepIssue
	for i, raw := range list {
		value := stepValue(raw.Value)
		op, err := ParseStepOp(raw.Type)
		if err != nil {
			issues = append(issues, StepIssue{Index: i, Type: raw.Type, Value: value, Err: err})
			continue
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			issues = append(issues, StepIssue{Index: i, Type: raw.Type, Value: value, Err: ErrInvalidStepValue})
			continue
		}
		steps = append(steps, Step{Op: op, Value: v})
	}
	return steps, issues, nil
}

func stepList(payload []byte) ([]rawStep, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var list []rawStep
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSteps, err)
		}
		return list, nil
	case '{':
		var wrapper struct {
			Steps json.RawMessage `json:"steps"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSteps, err)
		}
		inner := bytes.TrimSpace(wrapper.Steps)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return nil, nil
		}
		if inner[0] != '[' {
			return nil, ErrMalformedSteps
		}
		return stepList(inner)
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSteps, err)
		}
		inner := bytes.TrimSpace([]byte(encoded))
		if len(inner) > 0 && inner[0] == '"' {
			return nil, ErrMalformedSteps
		}
		return stepList(inner)
	default:
		return nil, ErrMalformedSteps
	}
}

// stepValue accepts both "1.1" and 1.1 as stored values.
func stepValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(trimmed)
}

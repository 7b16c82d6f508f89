package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseStepsShapes(t *testing.T) {
	want := []Step{Multiplier(dec("1.1")), AddOffset(dec("5"))}
	tests := []struct {
		name    string
		payload string
	}{
		{name: "array", payload: `[{"type":"multiplier","value":"1.1"},{"type":"add_offset","value":5}]`},
		{name: "encoded string", payload: `"[{\"type\":\"multiplier\",\"value\":\"1.1\"},{\"type\":\"add_offset\",\"value\":5}]"`},
		{name: "wrapped object", payload: `{"steps":[{"type":"multiplier","value":1.1},{"type":"add_offset","value":"5"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, issues, err := ParseSteps([]byte(tt.payload))
			require.NoError(t, err)
			assert.Empty(t, issues)
			require.Len(t, steps, len(want))
			for i := range want {
				assert.Equal(t, want[i].Op, steps[i].Op)
				assert.True(t, want[i].Value.Equal(steps[i].Value), "step %d value %s", i, steps[i].Value)
			}
		})
	}
}

func TestParseStepsEmpty(t *testing.T) {
	for _, payload := range []string{"", "null", "[]", `{"steps":null}`, `"[]"`} {
		steps, issues, err := ParseSteps([]byte(payload))
		require.NoError(t, err, payload)
		assert.Empty(t, steps, payload)
		assert.Empty(t, issues, payload)
	}
}

func TestParseStepsDropsInvalidSteps(t *testing.T) {
	payload := `[{"type":"multiplier","value":"abc"},{"type":"divide","value":"2"},{"type":"subtract_offset","value":"3"}]`
	steps, issues, err := ParseSteps([]byte(payload))
	require.NoError(t, err)

	require.Len(t, steps, 1)
	assert.Equal(t, StepSubtractOffset, steps[0].Op)
	require.Len(t, issues, 2)
	assert.ErrorIs(t, issues[0].Err, ErrInvalidStepValue)
	assert.Equal(t, 0, issues[0].Index)
	assert.ErrorIs(t, issues[1].Err, ErrUnknownStepOp)
	assert.Equal(t, 1, issues[1].Index)
}

func TestParseStepsMalformed(t *testing.T) {
	for _, payload := range []string{`42`, `{"steps":"x"}`, `[1,2`, `"\"nested\""`} {
		_, _, err := ParseSteps([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedSteps, payload)
	}
}

func TestPlanRuleAppliesStepsInOrder(t *testing.T) {
	rule := PlanRule{Steps: []Step{AddOffset(dec("10")), Multiplier(dec("2")), SubtractOffset(dec("1"))}}
	assert.True(t, rule.Apply(dec("100")).Equal(dec("219")))

	reversed := PlanRule{Steps: []Step{SubtractOffset(dec("1")), Multiplier(dec("2")), AddOffset(dec("10"))}}
	assert.True(t, reversed.Apply(dec("100")).Equal(dec("208")))
}

func TestCategoryRuleApply(t *testing.T) {
	mult := CategoryRule{Formula: ParseFormulaKind("multiplier"), Multiplier: dec("1.2"), Offset: dec("10")}
	assert.True(t, mult.Apply(dec("100")).Equal(dec("130")))

	other := CategoryRule{Formula: ParseFormulaKind("fixed"), Multiplier: dec("1.2"), Offset: dec("10")}
	assert.Equal(t, FormulaPassthrough, other.Formula)
	assert.True(t, other.Apply(dec("100")).Equal(dec("110")))
}

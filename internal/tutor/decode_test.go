package tutor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
		{"fence only", "```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestDecodeEvaluation(t *testing.T) {
	ev, err := DecodeEvaluation("```json\n{\"correctness\":\"partial\",\"feedback\":\"Nearly.\",\"assessment\":\"Right method, arithmetic slip.\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, &Evaluation{Correctness: Partial, Feedback: "Nearly.", Assessment: "Right method, arithmetic slip."}, ev)
}

func TestDecodeEvaluationMalformed(t *testing.T) {
	inputs := []string{
		"The answer is correct!",
		`{"correct": true, "feedback": "ok"}`,
		`{"correctness":"maybe","feedback":"x","assessment":"y"}`,
		`{"correctness":"correct","feedback":"x"}`,
	}
	for _, in := range inputs {
		_, err := DecodeEvaluation(in)
		require.Error(t, err, in)

		var mo *MalformedOutputError
		require.True(t, errors.As(err, &mo), in)
		assert.Equal(t, "evaluation", mo.Kind)
		assert.Equal(t, in, mo.Raw)
	}
}

func TestDecodeDiagnosis(t *testing.T) {
	d, err := DecodeDiagnosis(`{"misconception":"Order of Operations","question":" What do you work out first? "}`)
	require.NoError(t, err)
	assert.Equal(t, "order-of-operations", d.Misconception)
	assert.Equal(t, "What do you work out first?", d.Question)

	d, err = DecodeDiagnosis(`{"misconception":"place value slip","question":"Which column is the 3 in?"}`)
	require.NoError(t, err)
	assert.Equal(t, "place value slip", d.Misconception)

	for _, in := range []string{
		`{"misconception":"sign-error","question":"   "}`,
		`{"misconception":" ","question":"Which column is the 3 in?"}`,
		`{"misconception":"sign-error","question":"Why?","confidence":0.9}`,
	} {
		_, err = DecodeDiagnosis(in)
		var mo *MalformedOutputError
		require.True(t, errors.As(err, &mo), in)
		assert.Equal(t, "diagnosis", mo.Kind)
	}
}

func TestTaxonomy(t *testing.T) {
	ids := []string{}
	for _, m := range AllMisconceptions() {
		ids = append(ids, m.ID)
		assert.NotEmpty(t, m.Label)
		assert.NotEmpty(t, m.Description)
	}
	assert.Equal(t, []string{
		"cancellation", "common-denominator", "linearity", "operation-confusion",
		"order-of-operations", "sign-error", "unit-confusion",
	}, ids)
	assert.Nil(t, GetMisconception("nonexistent"))
	assert.Equal(t, "sign-error", NormalizeMisconception(" sign_error "))
}

func TestClassifyCalculator(t *testing.T) {
	assert.True(t, ClassifyCalculator("NUMERICAL"))
	assert.True(t, ClassifyCalculator("numerical."))
	assert.False(t, ClassifyCalculator("NON_NUMERICAL"))
	assert.False(t, ClassifyCalculator("Non-numerical"))
	assert.False(t, ClassifyCalculator("unsure"))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, "subtle", tierFor(1).Name)
	assert.Equal(t, "directed", tierFor(2).Name)
	assert.Equal(t, "explicit", tierFor(3).Name)
	assert.Equal(t, "walkthrough", tierFor(4).Name)
	assert.Equal(t, "walkthrough", tierFor(9).Name)
}

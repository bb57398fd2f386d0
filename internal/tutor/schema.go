package tutor

import "github.com/abhisek/bloom/internal/llm"

// EvaluationSchema is the JSON schema for answer grading output.
var EvaluationSchema = &llm.Schema{
	Name:        "answer-evaluation",
	Description: "Three-way grade of a student's answer with feedback and an assessment of their method",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correctness": map[string]any{
				"type":        "string",
				"enum":        []any{"correct", "partial", "incorrect"},
				"description": "Whether the answer is fully correct, partially correct or incorrect",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two encouraging sentences addressed to the student",
			},
			"assessment": map[string]any{
				"type":        "string",
				"description": "What method the student actually used and where it went wrong",
			},
		},
		"required":             []any{"correctness", "feedback", "assessment"},
		"additionalProperties": false,
	},
}

// DiagnosisSchema is the JSON schema for misconception diagnosis output.
var DiagnosisSchema = &llm.Schema{
	Name:        "misconception-diagnosis",
	Description: "Misconception behind a wrong answer and one diagnostic follow-up question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"misconception": map[string]any{
				"type":        "string",
				"description": "A taxonomy ID such as sign-error, or a short label when none fits",
			},
			"question": map[string]any{
				"type":        "string",
				"description": "Exactly one question that probes the misconception",
			},
		},
		"required":             []any{"misconception", "question"},
		"additionalProperties": false,
	},
}

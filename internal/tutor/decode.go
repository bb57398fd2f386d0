package tutor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/bloom/internal/llm"
)

// MalformedOutputError reports model output that could not be decoded
// into the structure a node asked for.
type MalformedOutputError struct {
	Kind string // "evaluation" or "diagnosis"
	Raw  string
	Err  error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed %s output: %v", e.Kind, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// StripCodeFence removes a markdown code fence around text. When the
// trimmed text starts with "```" the first and last lines are dropped.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}

// DiagnosisResult is the decoded output of the diagnosis call.
type DiagnosisResult struct {
	Misconception string `json:"misconception"`
	Question      string `json:"question"`
}

// DecodeEvaluation decodes a grading response.
func DecodeEvaluation(text string) (*Evaluation, error) {
	var ev Evaluation
	if err := decodeInto("evaluation", EvaluationSchema, text, &ev); err != nil {
		return nil, err
	}
	ev.Misconception = ""
	return &ev, nil
}

// DecodeDiagnosis decodes a diagnosis response. The misconception is
// normalized against the taxonomy when it names a known entry.
func DecodeDiagnosis(text string) (*DiagnosisResult, error) {
	var d DiagnosisResult
	if err := decodeInto("diagnosis", DiagnosisSchema, text, &d); err != nil {
		return nil, err
	}
	d.Misconception = NormalizeMisconception(d.Misconception)
	d.Question = strings.TrimSpace(d.Question)
	switch {
	case d.Misconception == "":
		return nil, &MalformedOutputError{Kind: "diagnosis", Raw: text, Err: fmt.Errorf("empty misconception")}
	case d.Question == "":
		return nil, &MalformedOutputError{Kind: "diagnosis", Raw: text, Err: fmt.Errorf("empty question")}
	}
	return &d, nil
}

func decodeInto(kind string, schema *llm.Schema, text string, v any) error {
	body := StripCodeFence(text)
	if err := llm.ValidateJSON(schema, []byte(body)); err != nil {
		return &MalformedOutputError{Kind: kind, Raw: text, Err: err}
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &MalformedOutputError{Kind: kind, Raw: text, Err: err}
	}
	return nil
}

package tutor

import (
	"context"
	"log/slog"
)

// diagnosis names the misconception behind a wrong answer and asks one
// diagnostic question about it.
func (e *Engine) diagnosis(ctx context.Context, s *State) Outcome {
	data := promptData{
		SubtopicName:   s.SubtopicName,
		Question:       s.LastQuestion,
		Answer:         s.LastStudentAnswer,
		Misconceptions: AllMisconceptions(),
	}
	if s.LastEvaluation != nil {
		data.Assessment = s.LastEvaluation.Assessment
	}
	prompt, err := render(diagnosisTemplate, data)
	if err != nil {
		return contain(err, apologyConnection)
	}
	raw, err := e.generateJSON(ctx, prompt, DiagnosisSchema)
	if err != nil {
		return contain(err, apologyConnection)
	}
	d, err := DecodeDiagnosis(raw)
	if err != nil {
		return contain(err, apologyConnection)
	}

	msg := d.Question
	if s.LastEvaluation != nil {
		if s.LastEvaluation.Correctness == Incorrect {
			msg = "Not quite. " + msg
		}
		s.LastEvaluation.Misconception = d.Misconception
	}
	e.logger.Info("misconception diagnosed",
		slog.Int64("subtopic_id", s.SubtopicID),
		slog.String("misconception", d.Misconception),
		slog.Bool("known", GetMisconception(d.Misconception) != nil))

	s.CurrentState = NodeSocratic
	return say(msg)
}

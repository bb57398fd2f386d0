package tutor

import (
	"context"
	"strings"
)

// answerRequestHintThreshold is how many hints a student must have had
// before an explicit answer request skips diagnosis.
const answerRequestHintThreshold = 3

// evaluation grades the pending answer and decides between a new
// question and remediation.
func (e *Engine) evaluation(ctx context.Context, s *State) Outcome {
	answer := strings.TrimSpace(s.LastStudentAnswer)
	if answer == "" {
		return Outcome{Halt: true}
	}
	wantsAnswer := RequestsAnswer(answer)

	prompt, err := render(evaluationTemplate, promptData{
		SubtopicName: s.SubtopicName,
		Question:     s.LastQuestion,
		Answer:       answer,
	})
	if err != nil {
		return contain(err, apologyEvaluation)
	}
	raw, err := e.generateJSON(ctx, prompt, EvaluationSchema)
	if err != nil {
		return contain(err, apologyEvaluation)
	}
	ev, err := DecodeEvaluation(raw)
	if err != nil {
		return contain(err, apologyEvaluation)
	}

	s.LastEvaluation = ev
	switch ev.Correctness {
	case Correct:
		if s.QuestionsCorrect < s.QuestionsAttempted {
			s.QuestionsCorrect++
		}
		s.HintsGiven = 0
		s.CurrentState = NodeQuestioning
		return say("✓ " + feedbackOr(ev.Feedback, "That's right!"))

	case Partial:
		s.CurrentState = NodeDiagnosis
		return say(feedbackOr(ev.Feedback, "You're on the right track."))

	default:
		if wantsAnswer && s.HintsGiven >= answerRequestHintThreshold {
			s.CurrentState = NodeSocratic
			out := say("Not quite.")
			out.Chain = NodeSocratic
			return out
		}
		// The diagnosis message opens with "Not quite." so the turn
		// carries exactly one acknowledgement.
		s.CurrentState = NodeDiagnosis
		return Outcome{}
	}
}

func feedbackOr(feedback, fallback string) string {
	if f := strings.TrimSpace(feedback); f != "" {
		return f
	}
	return fallback
}

package tutor

import (
	"context"
	"strings"
)

// solutionPreamble acknowledges the struggle before a worked solution.
const solutionPreamble = "You've worked really hard on this one, so let's go through it together step by step."

// socratic issues the next hint for the current question, or a full
// worked solution once the student has had more than three hints and
// asks for the answer.
func (e *Engine) socratic(ctx context.Context, s *State) Outcome {
	hints := s.HintsGiven + 1
	last, _ := s.lastStudentMessage()

	data := promptData{
		SubtopicName: s.SubtopicName,
		Question:     s.LastQuestion,
		Answer:       s.LastStudentAnswer,
	}
	if s.LastEvaluation != nil {
		data.Misconception = s.LastEvaluation.Misconception
	}

	if hints > answerRequestHintThreshold && RequestsAnswer(last) {
		data.Transcript = s.recentTranscript(contextWindow)
		prompt, err := render(solutionTemplate, data)
		if err != nil {
			return contain(err, apologyConnection)
		}
		solution, err := e.generate(ctx, "worked-solution", prompt)
		if err == nil && strings.TrimSpace(solution) == "" {
			err = errEmptyOutput
		}
		if err != nil {
			return contain(err, apologyConnection)
		}
		s.HintsGiven = 0
		s.CurrentState = NodeQuestioning
		out := say(solutionPreamble + "\n\n" + strings.TrimSpace(solution))
		out.Chain = NodeQuestioning
		return out
	}

	data.Transcript = s.recentTranscript(socraticWindow)
	data.Tier = tierFor(hints)
	prompt, err := render(socraticTemplate, data)
	if err != nil {
		return contain(err, apologyConnection)
	}
	hint, err := e.generate(ctx, "socratic-hint", prompt)
	if err == nil && strings.TrimSpace(hint) == "" {
		err = errEmptyOutput
	}
	if err != nil {
		return contain(err, apologyConnection)
	}
	s.HintsGiven = hints
	s.CurrentState = NodeSocratic
	return say(strings.TrimSpace(hint))
}

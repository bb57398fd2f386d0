package tutor

import (
	"context"
	"strings"
)

// questioning poses one new practice question and waits for the answer.
func (e *Engine) questioning(ctx context.Context, s *State) Outcome {
	prompt, err := render(questionTemplate, promptData{
		SubtopicName: s.SubtopicName,
		Transcript:   s.recentTranscript(contextWindow),
	})
	if err != nil {
		return contain(err, apologyQuestion)
	}
	question, err := e.generate(ctx, "question-generation", prompt)
	if err == nil && strings.TrimSpace(question) == "" {
		err = errEmptyOutput
	}
	if err != nil {
		return contain(err, apologyQuestion)
	}
	question = strings.TrimSpace(question)

	s.HintsGiven = 0
	s.LastQuestion = question
	s.QuestionsAttempted++
	s.CalculatorVisible = e.needsCalculator(ctx, question)
	s.CurrentState = NodeQuestioning
	return say(question)
}

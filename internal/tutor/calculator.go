package tutor

import (
	"context"
	"log/slog"
	"strings"
)

// needsCalculator asks the model whether question involves numerical
// computation. Any failure hides the calculator.
func (e *Engine) needsCalculator(ctx context.Context, question string) bool {
	prompt, err := render(calculatorTemplate, promptData{Question: question})
	if err != nil {
		return false
	}
	answer, err := e.generate(ctx, "calculator-classification", prompt)
	if err != nil {
		e.logger.Warn("calculator classification failed, hiding calculator", slog.String("error", err.Error()))
		return false
	}
	visible := ClassifyCalculator(answer)
	e.logger.Debug("calculator visibility assessed",
		slog.String("response", answer),
		slog.Bool("visible", visible))
	return visible
}

// ClassifyCalculator interprets a NUMERICAL / NON_NUMERICAL reply. The
// negative label is checked first because it contains the positive one.
func ClassifyCalculator(reply string) bool {
	r := strings.ToUpper(reply)
	if strings.Contains(r, "NON_NUMERICAL") || strings.Contains(r, "NON-NUMERICAL") || strings.Contains(r, "NON NUMERICAL") {
		return false
	}
	return strings.Contains(r, "NUMERICAL")
}

package tutor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// exposition explains the subtopic. The first explanation of a session
// comes from the cache when possible; later student messages get a
// direct answer built from recent context.
func (e *Engine) exposition(ctx context.Context, s *State) Outcome {
	if s.hasStudentMessage() {
		return e.expositionFollowUp(ctx, s)
	}

	text, err := e.initialExposition(ctx, s)
	if err != nil {
		return contain(err, apologyConnection)
	}
	s.CurrentState = NodeExposition
	return say(text)
}

func (e *Engine) initialExposition(ctx context.Context, s *State) (string, error) {
	id := s.SubtopicID
	logger := e.logger.With(slog.Int64("subtopic_id", id))

	cached, err := e.cache.Get(ctx, id)
	if err != nil {
		logger.Warn("exposition cache lookup failed, treating as miss", slog.String("error", err.Error()))
		cached = nil
	}
	if cached != nil {
		e.recorder.RecordCacheLookup(ctx, id, true)
		logger.Info("exposition cache hit", slog.String("model", cached.ModelIdentifier))
		return cached.Content, nil
	}

	e.recorder.RecordCacheLookup(ctx, id, false)
	logger.Info("exposition cache miss, generating")

	v, err, shared := e.expositions.Do(strconv.FormatInt(id, 10), func() (any, error) {
		prompt, err := render(expositionTemplate, promptData{SubtopicName: s.SubtopicName})
		if err != nil {
			return "", err
		}
		text, err := e.generate(ctx, "exposition", prompt)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text == "" {
			return "", errEmptyOutput
		}
		if err := e.cache.Put(ctx, id, text, e.gen.ModelID()); err != nil {
			logger.Warn("failed to cache exposition", slog.String("error", err.Error()))
		} else {
			logger.Info("cached new exposition", slog.String("model", e.gen.ModelID()))
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		logger.Debug("exposition generation shared with a concurrent session")
	}
	return v.(string), nil
}

func (e *Engine) expositionFollowUp(ctx context.Context, s *State) Outcome {
	prompt, err := render(followUpTemplate, promptData{
		SubtopicName: s.SubtopicName,
		Transcript:   s.recentTranscript(contextWindow),
	})
	if err != nil {
		return contain(err, apologyConnection)
	}
	text, err := e.generate(ctx, "exposition-follow-up", prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyOutput
	}
	if err != nil {
		return contain(err, apologyConnection)
	}
	s.CurrentState = NodeExposition
	return say(strings.TrimSpace(text))
}

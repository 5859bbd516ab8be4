package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/llm"
)

// TextGenerator produces the raw lesson text.
type TextGenerator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// MaxGenerationAttempts bounds the model calls made for one lesson.
const MaxGenerationAttempts = 3

// GenerationResult is the accepted model output and how it was reached.
type GenerationResult struct {
	Content   string
	Attempts  int
	WordCount int
	// MetFloor is false when attempts ran out and the last, short output
	// was accepted anyway.
	MetFloor bool
}

// GenerationError is a generator failure on a given attempt.
type GenerationError struct {
	Attempt int
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("attempt %d: %v", e.Attempt, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// GenerateWithFloor calls gen until the output reaches the word floor for
// the lesson's duration or MaxGenerationAttempts is used up. The last
// non-empty output is accepted regardless of length. An empty completion counts as a
// zero-word attempt; any other generator error stops the loop.
func GenerateWithFloor(ctx context.Context, gen TextGenerator, req domain.LessonRequest) (*GenerationResult, error) {
	minWords := domain.MinWordCount(req.LessonDuration)
	res := &GenerationResult{}

	for attempt := 1; attempt <= MaxGenerationAttempts; attempt++ {
		content, err := gen.Complete(ctx, lessonSystemPrompt, buildLessonPrompt(req, attempt > 1))
		if err != nil && !errors.Is(err, llm.ErrEmptyCompletion) {
			return nil, &GenerationError{Attempt: attempt, Err: err}
		}
		res.Attempts = attempt
		if err != nil {
			continue
		}

		res.Content = content
		res.WordCount = domain.CountWords(content)
		if res.WordCount >= minWords {
			res.MetFloor = true
			break
		}
	}

	if res.Content == "" {
		return nil, &GenerationError{Attempt: res.Attempts, Err: llm.ErrEmptyCompletion}
	}
	return res, nil
}

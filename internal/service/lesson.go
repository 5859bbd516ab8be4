package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/lessonfmt"
	"github.com/lessonlift/backend/internal/metrics"
)

// LessonStore persists lessons. Every method is scoped to one user.
type LessonStore interface {
	Create(ctx context.Context, l *domain.Lesson) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.LessonSummary, error)
	FindByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Lesson, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error)
}

// Gate is the entitlement check used before generation and export.
type Gate interface {
	Check(ctx context.Context, userID string) (*domain.Decision, error)
	Status(ctx context.Context, userID string) (domain.UsageStatus, error)
}

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// LessonService orchestrates lesson generation and the lesson library.
type LessonService struct {
	store     LessonStore
	gate      Gate
	generator TextGenerator
	validate  *validator.Validate
	log       zerolog.Logger
}

func NewLessonService(store LessonStore, gate Gate, generator TextGenerator, log zerolog.Logger) *LessonService {
	return &LessonService{
		store:     store,
		gate:      gate,
		generator: generator,
		validate:  newValidator(),
		log:       log,
	}
}

// GenerateResult is the outcome of a generation request. When the gate
// refuses, Decision.Allowed is false and Lesson is nil.
type GenerateResult struct {
	Decision *domain.Decision
	Lesson   *domain.Lesson
	Attempts int
	MetFloor bool
}

// Generate validates the request, consumes one generation from the user's
// allowance, produces the lesson and stores it.
//
// Work continues if the caller's context is cancelled: once the allowance
// is consumed the lesson is still generated and saved.
func (s *LessonService) Generate(ctx context.Context, userID string, req domain.LessonRequest) (*GenerateResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrBadRequest(formatValidationErrors(err))
	}

	ctx = context.WithoutCancel(ctx)
	log := s.log.With().Str("user_id", userID).Logger()

	decision, err := s.gate.Check(ctx, userID)
	if err != nil {
		return nil, domain.ErrFailed("Failed to check lesson limits", err)
	}
	if !decision.Allowed {
		metrics.LessonsGeneratedTotal.WithLabelValues("denied").Inc()
		return &GenerateResult{Decision: decision}, nil
	}

	start := time.Now()
	gen, err := GenerateWithFloor(ctx, s.generator, req)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LessonsGeneratedTotal.WithLabelValues("generation_failed").Inc()
		log.Error().Err(err).Msg("lesson generation failed")
		return nil, domain.ErrFailed(generationMessage(err), fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err))
	}
	metrics.GenerationAttempts.Observe(float64(gen.Attempts))
	if !gen.MetFloor {
		log.Warn().
			Int("attempts", gen.Attempts).
			Int("words", gen.WordCount).
			Int("min_words", domain.MinWordCount(req.LessonDuration)).
			Msg("accepting lesson below word floor")
	}

	lesson := &domain.Lesson{
		UserID:                  userID,
		YearGroup:               req.YearGroup,
		AbilityLevel:            req.AbilityLevel,
		LessonDuration:          req.LessonDuration,
		Subject:                 req.Subject,
		Topic:                   req.Topic,
		LearningObjective:       req.LearningObjective,
		SENEALNotes:             req.SENEALNotes,
		RegenerationInstruction: req.RegenerationInstruction,
		Content:                 lessonfmt.HTML(gen.Content, req),
		Text:                    lessonfmt.Text(gen.Content, req),
	}

	if err := s.store.Create(ctx, lesson); err != nil {
		metrics.LessonsGeneratedTotal.WithLabelValues("persist_failed").Inc()
		log.Error().Err(err).Msg("failed to save lesson")
		return nil, domain.ErrFailed("Failed to save lesson", fmt.Errorf("%w: %v", domain.ErrPersistFailed, err))
	}

	metrics.LessonsGeneratedTotal.WithLabelValues("ok").Inc()
	log.Info().
		Str("lesson_id", lesson.ID.String()).
		Int("attempts", gen.Attempts).
		Int("words", gen.WordCount).
		Msg("lesson generated")

	return &GenerateResult{
		Decision: decision,
		Lesson:   lesson,
		Attempts: gen.Attempts,
		MetFloor: gen.MetFloor,
	}, nil
}

// History returns the user's most recent lessons, newest first.
func (s *LessonService) History(ctx context.Context, userID string, limit int) ([]domain.LessonSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	lessons, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, domain.ErrInternal("failed to list lessons", err)
	}
	return lessons, nil
}

// Get returns one of the user's lessons.
func (s *LessonService) Get(ctx context.Context, userID string, id uuid.UUID) (*domain.Lesson, error) {
	lesson, err := s.store.FindByID(ctx, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to get lesson", err)
	}
	if lesson == nil {
		return nil, domain.ErrNotFound("lesson not found")
	}
	return lesson, nil
}

// Delete permanently removes one of the user's lessons.
func (s *LessonService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, userID, id)
	if err != nil {
		return domain.ErrInternal("failed to delete lesson", err)
	}
	if !deleted {
		return domain.ErrNotFound("lesson not found")
	}
	s.log.Info().Str("user_id", userID).Str("lesson_id", id.String()).Msg("lesson deleted")
	return nil
}

// Export renders one of the user's lessons in a format their plan includes.
func (s *LessonService) Export(ctx context.Context, userID string, id uuid.UUID, format string) (*lessonfmt.Document, error) {
	f, ok := domain.ParseExportFormat(format)
	if !ok {
		return nil, domain.ErrBadRequest("format must be one of pdf, docx, txt")
	}

	lesson, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	status, err := s.gate.Status(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to check export permissions", err)
	}
	if !domain.AllowsFormat(status, f) {
		return nil, domain.ErrForbidden(fmt.Sprintf("Your plan does not include %s export", f), domain.ErrExportNotAllowed)
	}

	doc, err := lessonfmt.Export(lesson, f)
	if err != nil {
		return nil, domain.ErrInternal("failed to export lesson", err)
	}
	return doc, nil
}

// maxUpstreamMessage caps the provider error text returned to the client.
const maxUpstreamMessage = 500

// generationMessage returns the provider's error text as the client message.
func generationMessage(err error) string {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		err = genErr.Err
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Failed to generate lesson. Please try again."
	}
	if r := []rune(msg); len(r) > maxUpstreamMessage {
		msg = string(r[:maxUpstreamMessage]) + "..."
	}
	return msg
}

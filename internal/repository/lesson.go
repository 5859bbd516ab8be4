package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lessonlift/backend/internal/domain"
)

// FieldSealer protects a text column at rest.
type FieldSealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// LessonRepository stores generated lessons. Every query is scoped by user_id.
type LessonRepository struct {
	db     DBTX
	sealer FieldSealer
}

// NewLessonRepository creates a LessonRepository. sealer may be nil, in
// which case SEN/EAL notes are stored as given.
func NewLessonRepository(db DBTX, sealer FieldSealer) *LessonRepository {
	return &LessonRepository{db: db, sealer: sealer}
}

const lessonColumns = `id, user_id, year_group, ability_level, lesson_duration, subject, topic,
	learning_objective, sen_eal_notes, regeneration_instruction, lesson_content, lesson_text, created_at`

// Create inserts the lesson and fills in its ID and CreatedAt.
func (r *LessonRepository) Create(ctx context.Context, l *domain.Lesson) error {
	notes, err := r.seal(l.SENEALNotes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lessons (user_id, year_group, ability_level, lesson_duration, subject, topic,
			learning_objective, sen_eal_notes, regeneration_instruction, lesson_content, lesson_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err = r.db.QueryRow(ctx, query,
		l.UserID, l.YearGroup, l.AbilityLevel, l.LessonDuration, l.Subject, l.Topic,
		nullIfEmpty(l.LearningObjective), nullIfEmpty(notes), nullIfEmpty(l.RegenerationInstruction),
		l.Content, l.Text,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	return nil
}

// ListByUser returns the user's lessons, most recent first.
func (r *LessonRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.LessonSummary, error) {
	query := `
		SELECT id, year_group, ability_level, lesson_duration, subject, topic, created_at
		FROM lessons WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]domain.LessonSummary, 0)
	for rows.Next() {
		var s domain.LessonSummary
		if err := rows.Scan(&s.ID, &s.YearGroup, &s.AbilityLevel, &s.LessonDuration, &s.Subject, &s.Topic, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lessons: %w", err)
	}
	return lessons, nil
}

// FindByID returns the user's lesson, or nil when it does not exist or
// belongs to someone else.
func (r *LessonRepository) FindByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 AND user_id = $2`

	var (
		l                          domain.Lesson
		objective, notes, regenRaw *string
	)
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&l.ID, &l.UserID, &l.YearGroup, &l.AbilityLevel, &l.LessonDuration, &l.Subject, &l.Topic,
		&objective, &notes, &regenRaw, &l.Content, &l.Text, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}

	l.LearningObjective = deref(objective)
	l.RegenerationInstruction = deref(regenRaw)
	if l.SENEALNotes, err = r.open(deref(notes)); err != nil {
		return nil, err
	}
	return &l, nil
}

// Delete removes the user's lesson. It reports false when no row matched.
func (r *LessonRepository) Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM lessons WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete lesson: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats returns lesson activity counts across all users.
func (r *LessonRepository) Stats(ctx context.Context) (*domain.AdminStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours'),
			COUNT(DISTINCT user_id)
		FROM lessons
	`
	var s domain.AdminStats
	if err := r.db.QueryRow(ctx, query).Scan(&s.TotalLessons, &s.LessonsLast24h, &s.DistinctUsers); err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	return &s, nil
}

func (r *LessonRepository) seal(s string) (string, error) {
	if r.sealer == nil || s == "" {
		return s, nil
	}
	sealed, err := r.sealer.Seal(s)
	if err != nil {
		return "", fmt.Errorf("failed to seal notes: %w", err)
	}
	return sealed, nil
}

func (r *LessonRepository) open(s string) (string, error) {
	if r.sealer == nil || s == "" {
		return s, nil
	}
	plain, err := r.sealer.Open(s)
	if err != nil {
		return "", fmt.Errorf("failed to open notes: %w", err)
	}
	return plain, nil
}

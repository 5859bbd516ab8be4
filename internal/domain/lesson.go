package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LessonRequest is the payload for generating a lesson plan.
type LessonRequest struct {
	YearGroup               string `json:"yearGroup" validate:"required,max=50"`
	AbilityLevel            string `json:"abilityLevel" validate:"required,max=50"`
	LessonDuration          int    `json:"lessonDuration" validate:"required,oneof=30 45 60"`
	Subject                 string `json:"subject" validate:"required,max=100"`
	Topic                   string `json:"topic" validate:"required,max=200"`
	LearningObjective       string `json:"learningObjective,omitempty" validate:"max=1000"`
	SENEALNotes             string `json:"senEalNotes,omitempty" validate:"max=2000"`
	RegenerationInstruction string `json:"regenerationInstruction,omitempty" validate:"max=1000"`
}

// Lesson is a generated lesson plan owned by a single user.
type Lesson struct {
	ID                      uuid.UUID `json:"id"`
	UserID                  string    `json:"userId"`
	YearGroup               string    `json:"yearGroup"`
	AbilityLevel            string    `json:"abilityLevel"`
	LessonDuration          int       `json:"lessonDuration"`
	Subject                 string    `json:"subject"`
	Topic                   string    `json:"topic"`
	LearningObjective       string    `json:"learningObjective,omitempty"`
	SENEALNotes             string    `json:"senEalNotes,omitempty"`
	RegenerationInstruction string    `json:"regenerationInstruction,omitempty"`
	Content                 string    `json:"html"`
	Text                    string    `json:"text"`
	CreatedAt               time.Time `json:"createdAt"`
}

// Request returns the generation parameters the lesson was built from.
func (l *Lesson) Request() LessonRequest {
	return LessonRequest{
		YearGroup:               l.YearGroup,
		AbilityLevel:            l.AbilityLevel,
		LessonDuration:          l.LessonDuration,
		Subject:                 l.Subject,
		Topic:                   l.Topic,
		LearningObjective:       l.LearningObjective,
		SENEALNotes:             l.SENEALNotes,
		RegenerationInstruction: l.RegenerationInstruction,
	}
}

// LessonSummary is a lesson history entry without the rendered bodies.
type LessonSummary struct {
	ID             uuid.UUID `json:"id"`
	YearGroup      string    `json:"yearGroup"`
	AbilityLevel   string    `json:"abilityLevel"`
	LessonDuration int       `json:"lessonDuration"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MinWordCount returns the word floor for a lesson of the given length in minutes.
func MinWordCount(duration int) int {
	switch duration {
	case 30:
		return 750
	case 45:
		return 850
	case 60:
		return 1000
	}
	return 750
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// AdminStats is the lesson activity overview for administrators.
type AdminStats struct {
	TotalLessons   int `json:"totalLessons"`
	LessonsLast24h int `json:"lessonsLast24h"`
	DistinctUsers  int `json:"distinctUsers"`
}

package lessonfmt

import (
	"fmt"
	"strings"

	"github.com/lessonlift/backend/internal/domain"
)

const rule = "========================================\n"

// Text renders the plain-text version of a lesson plan.
func Text(content string, req domain.LessonRequest) string {
	var b strings.Builder

	b.WriteString(rule)
	b.WriteString("LESSON PLAN\n")
	b.WriteString(rule)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Year Group: %s\n", req.YearGroup)
	fmt.Fprintf(&b, "Ability Level: %s\n", req.AbilityLevel)
	fmt.Fprintf(&b, "Duration: %d minutes\n\n", req.LessonDuration)

	if req.LearningObjective != "" {
		fmt.Fprintf(&b, "Learning Objective: %s\n\n", req.LearningObjective)
	}
	if req.SENEALNotes != "" {
		fmt.Fprintf(&b, "SEN/EAL Notes: %s\n\n", req.SENEALNotes)
	}

	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString(rule)
	b.WriteString("Generated by LessonLift\n")
	b.WriteString(rule)

	return b.String()
}

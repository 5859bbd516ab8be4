package service

import (
	"fmt"
	"strings"

	"github.com/lessonlift/backend/internal/domain"
)

const lessonSystemPrompt = "You are an expert UK classroom teacher and lesson designer. " +
	"Generate classroom-ready lesson plans that score 8/10+ in professional reviews. " +
	"Prioritise clarity, realistic pacing, and practical teachability. Use British English. " +
	"Follow the exact structure provided: Lesson Overview, Key Vocabulary (table format with Tier 2 and Tier 3), " +
	"Learning Objective & Success Criteria, Retrieval Starter, Main Teaching (with I Do modelling), " +
	"Guided Practice (We Do), Independent Practice (You Do), Justification Plenary (reasoning questions, not summaries), " +
	"Differentiation (specific scaffolds and extensions), Assessment & Evidence, Resources, and Safety notes. " +
	"Bold vocabulary words when defined. Include model answers for all questions. " +
	"Avoid cognitive overload: teach 1 concept thoroughly rather than rushing multiple topics. " +
	"All activities must be subject-specific and directly relevant."

const lessonStructure = `MANDATORY STRUCTURE:

**1. Lesson Overview**
Subject, topic, year group, ability, duration

**2. Key Vocabulary**
Present as a table with two columns:
| Tier 2 (Academic) | Tier 3 (Technical) |
| [word] | [word] |
| [word] | [word] |
| [word] | [word] |

- Tier 2: Cross-curricular academic vocabulary (e.g., analyse, demonstrate, compare)
- Tier 3: Subject-specific technical terms (e.g., photosynthesis, multiplication, adjective)
- Include exactly 3 words in each column
- Make vocabulary age-appropriate for the year group

**3. Learning Objective & Success Criteria**
- Clear, measurable objective aligned to the ability level
- 3-4 specific success criteria that can be observed

**4. Retrieval Starter** (5 minutes)
- 2-3 questions that activate prior knowledge needed for today's learning
- Include model answers immediately after the questions

**5. Main Teaching** (appropriate timing)
- Step-by-step explanation with explicit modelling
- Use "I Do" approach: show exactly what to do
- Reference specific examples and teacher dialogue where helpful
- Use visuals, manipulatives, or diagrams where appropriate
- Bold vocabulary words when first introduced and defined

**6. Guided Practice** (appropriate timing)
- "We Do" together activities
- Teacher-led examples with student participation
- Check for understanding throughout

**7. Independent / Supported Practice** (appropriate timing)
- "You Do" activities closely aligned to success criteria
- Scaffolded appropriately for the stated ability level
- Specific task instructions

**8. Justification Plenary** (5 minutes)
- 2-3 "How do you know?" or "Why?" questions (NOT simple summaries)
- Include model answers showing expected reasoning
- Examples: "Why does X belong in this category?", "How do you know this is correct?"

**9. Differentiation**
- **Scaffold:** Specific sentence starters, worked examples, or visual aids
- **Extension:** Deeper "Why?" or "What if?" questions (not just harder language)
- Must be content-specific to this lesson

**10. Assessment & Evidence**
- How learning will be checked during the lesson
- What observable evidence shows success criteria are met

**11. Resources**
- Complete, realistic list of materials needed

**12. Safety & Risk Assessment**
- If equipment/materials are used: List 3 specific safety points (hazard + control measure)
- If paper-based only: State "No specific safety concerns. Standard classroom expectations apply."`

// buildLessonPrompt returns the user message for one generation attempt.
func buildLessonPrompt(req domain.LessonRequest, retry bool) string {
	minWords := domain.MinWordCount(req.LessonDuration)
	maxWords := minWords + 300

	var b strings.Builder
	b.WriteString("You are an expert UK classroom teacher and lesson designer.\n")
	b.WriteString("Generate a classroom-ready UK lesson plan that would confidently score at least 8/10 in a professional review.\n\n")

	b.WriteString("LESSON DETAILS:\n")
	fmt.Fprintf(&b, "Year Group: %s\n", req.YearGroup)
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Ability Level: %s\n", req.AbilityLevel)
	fmt.Fprintf(&b, "Lesson Duration: %d minutes\n", req.LessonDuration)
	fmt.Fprintf(&b, "Learning Objective: %s\n", orText(req.LearningObjective, "Not specified"))
	fmt.Fprintf(&b, "SEN/EAL Notes: %s\n\n", orText(req.SENEALNotes, "None"))

	b.WriteString("STRICT RULES:\n")
	b.WriteString("• Match the Year Group and Ability precisely\n")
	b.WriteString("• Teach 1 core concept for lower ability, up to 2 linked concepts for mixed/higher\n")
	b.WriteString("• Avoid cognitive overload and unnecessary theory\n")
	b.WriteString("• Prioritise clarity, modelling, and scaffolding\n")
	b.WriteString("• Use British English only (analyse, organise, colour, etc.)\n")
	fmt.Fprintf(&b, "• Minimum %d words, maximum %d words\n", minWords, maxWords)
	b.WriteString("• Bold all section headings with **heading** format\n")
	fmt.Fprintf(&b, "• Include timing estimates that are realistic (must total %d mins)\n\n", req.LessonDuration)

	b.WriteString(lessonStructure)
	b.WriteString("\n\nQUALITY CHECKS:\n")
	fmt.Fprintf(&b, "• Is this lesson realistic and teachable within %d minutes?\n", req.LessonDuration)
	b.WriteString("• Does it avoid cognitive overload for the stated ability?\n")
	b.WriteString("• Are instructions clear enough for immediate classroom use?\n")
	b.WriteString("• Is there a logical flow from retrieval → teaching → practice → assessment?")

	if req.RegenerationInstruction != "" {
		fmt.Fprintf(&b, "\n\nSPECIAL INSTRUCTION: %s", req.RegenerationInstruction)
	}

	if retry {
		b.WriteString("\n\nCRITICAL: The previous response was too short. You MUST:\n")
		b.WriteString("- Include ALL mandatory sections in order\n")
		fmt.Fprintf(&b, "- Reach the %d word minimum (maximum %d)\n", minWords, maxWords)
		b.WriteString("- Provide detailed, step-by-step content in each section\n")
		b.WriteString("- Include complete model answers for retrieval and plenary questions\n")
		b.WriteString("- Ensure vocabulary table is properly formatted\n")
		b.WriteString("- Add specific scaffolds and extensions")
	}

	return b.String()
}

func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

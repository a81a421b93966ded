package generator

import (
	"fmt"
	"strings"

	"github.com/Ronakdeora/smart-course/internal/course"
)

// outlinePrompt asks for a structured outline and pins down the exact JSON
// shape the backend must return.
func outlinePrompt(topic, gradeLevel string, lessonCount int, sourceFilter, contextText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %d-lesson course outline on '%s' for %s.\n\n", lessonCount, topic, gradeLevel)
	b.WriteString("REQUIREMENTS:\n")
	b.WriteString("- Each lesson must include: title, description, key_concepts (list), learning_objectives (list)\n")
	fmt.Fprintf(&b, "- Content should be age-appropriate for %s\n", gradeLevel)
	b.WriteString("- Return ONLY valid JSON with this exact structure:\n")
	b.WriteString(`{
  "course_title": "Course title here",
  "lessons": [
    {
      "lesson_number": 1,
      "title": "Lesson title",
      "description": "Brief description",
      "key_concepts": ["concept1", "concept2"],
      "learning_objectives": ["objective1", "objective2"]
    }
  ]
}
`)
	if sourceFilter != "" {
		fmt.Fprintf(&b, "\nUse ONLY content from '%s' sources.\n", sourceFilter)
	}
	fmt.Fprintf(&b, "\nRelevant context:\n%s\n", contextText)
	return b.String()
}

// lessonPrompt asks for long-form content constrained to the fixed six-part
// lesson structure.
func lessonPrompt(spec course.LessonSpec, gradeLevel, sourceFilter, contextText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a comprehensive lesson for %s on '%s'.\n\n", gradeLevel, spec.Title)
	b.WriteString("Lesson Details:\n")
	fmt.Fprintf(&b, "- Description: %s\n", spec.Description)
	fmt.Fprintf(&b, "- Key Concepts: %s\n", strings.Join(spec.KeyConcepts, ", "))
	fmt.Fprintf(&b, "- Learning Objectives: %s\n\n", strings.Join(spec.LearningObjectives, ", "))
	b.WriteString("STRUCTURE:\n")
	b.WriteString("1. Introduction - Engaging hook and overview\n")
	b.WriteString("2. Main Content - Detailed explanation with subsections\n")
	b.WriteString("3. Key Terms - Vocabulary with definitions\n")
	b.WriteString("4. Real-World Applications - Practical examples\n")
	b.WriteString("5. Summary - Recap of main points\n")
	b.WriteString("6. Check Your Understanding - 3-4 assessment questions\n\n")
	b.WriteString("GUIDELINES:\n")
	fmt.Fprintf(&b, "- Write at %s reading level\n", gradeLevel)
	b.WriteString("- Use clear, engaging language\n")
	b.WriteString("- Include specific examples and analogies\n")
	b.WriteString("- Make content interactive and relatable\n")
	if sourceFilter != "" {
		fmt.Fprintf(&b, "- Use ONLY content from '%s' sources\n", sourceFilter)
	}
	fmt.Fprintf(&b, "\nRelevant context:\n%s\n", contextText)
	return b.String()
}

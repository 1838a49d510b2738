// Package survey holds the survey-design domain: parsed questions, response
// scales, rubric shapes and the validation rules the generation pipeline and
// the metric engine depend on.
package survey

import (
	"regexp"
	"strings"
)

// Question is one tagged survey question. Attribute is the free-text quality
// attribute label the model chose; it is intentionally not checked against the
// ISO/IEC 25010 catalogue.
type Question struct {
	Ordinal   int
	Attribute string
	Text      string
}

// Display renders the question back into its canonical tagged line form.
func (q Question) Display() string {
	return "[" + q.Attribute + "] " + q.Text
}

var questionLinePattern = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+)$`)

// ParseQuestions extracts tagged questions from pipeline output, one per line
// of the form "[attribute] text". Non-matching lines (headers, blanks,
// numbering noise) are dropped, not fatal. Ordinals follow source line order
// starting at 1. Pure: identical input always yields identical output.
func ParseQuestions(text string) []Question {
	var questions []Question
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		// Generated lists sometimes number lines ("1. [속성] ...").
		line = stripLeadingNumber(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		m := questionLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		attribute := strings.TrimSpace(m[1])
		questionText := strings.TrimSpace(m[2])
		if attribute == "" || questionText == "" {
			continue
		}
		questions = append(questions, Question{
			Ordinal:   len(questions) + 1,
			Attribute: attribute,
			Text:      questionText,
		})
	}
	return questions
}

var leadingNumberPattern = regexp.MustCompile(`^\d+[.)]\s*`)

func stripLeadingNumber(line string) string {
	return leadingNumberPattern.ReplaceAllString(line, "")
}

// The refinement stage answers with one of these fixed sentences when no
// question needed correction.
var noDefectMarkers = []string{
	"수정 사항이 없습니다",
	"모든 질문이 적절합니다",
}

// NeedsConsolidation reports whether the stage-4 audit flagged at least one
// defect, which gates the conditional stage-5 consolidation call.
func NeedsConsolidation(refinementResult string) bool {
	for _, marker := range noDefectMarkers {
		if strings.Contains(refinementResult, marker) {
			return false
		}
	}
	return true
}

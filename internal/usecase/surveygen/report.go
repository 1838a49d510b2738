package surveygen

import (
	"fmt"
	"strings"

	"qsurvey/internal/ports"
)

// Report renders a survey as the plain-text export: per-stage transcripts in
// order followed by the curated question list.
func Report(detail SurveyDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "프로젝트명: %s\n\n", detail.Project.ProjectName)
	for _, step := range detail.Steps {
		fmt.Fprintf(&b, "=== %d단계: %s ===\n%s\n\n", step.StepNumber, step.StepName, step.StepResult)
	}
	b.WriteString("=== 선택된 최종 설문조사 질문 ===\n")
	for _, q := range detail.Questions {
		fmt.Fprintf(&b, "%d. [%s] %s\n", q.QuestionOrder, q.QualityAttribute, q.QuestionText)
	}
	return b.String()
}

// MetricSection renders the rubric appendix attached to a report when the
// survey has generated metrics. Empty input renders nothing.
func MetricSection(metrics []ports.Metric) string {
	if len(metrics) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n=== 평가 척도 ===\n")
	for _, m := range metrics {
		fmt.Fprintf(&b, "%d. [%s] %s (%s)\n",
			m.Rubric.QuestionOrder, m.Rubric.QualityAttribute, m.Rubric.QuestionText, m.ScaleType)
		for _, entry := range m.Rubric.Entries {
			fmt.Fprintf(&b, "  %s: %s\n", entry.Scale, entry.Description)
		}
	}
	return b.String()
}

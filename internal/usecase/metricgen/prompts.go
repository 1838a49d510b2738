package metricgen

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"qsurvey/internal/domain/survey"
	"qsurvey/internal/ports"
)

const likertScaleDescription = `리커트 척도 (5단계):
매우 그렇다
그렇다
보통이다
그렇지 않다
매우 그렇지 않다`

const numericScaleDescription = `숫자 평정 척도 (1~100점):
100~81점: 매우 긍정적
80~61점 : 긍정적
60~41점 : 중립
40~21점 : 부정적
20~1점  : 매우 부정적`

func scaleDescription(scaleType survey.ScaleType) string {
	if scaleType == survey.ScaleNumeric100 {
		return numericScaleDescription
	}
	return likertScaleDescription
}

const likertExampleJSON = `{
  "question_order": 1,
  "quality_attribute": "기능 적합성",
  "question_text": "시스템은 요구된 기능을 정확하게 수행하는가?",
  "scale_interpretations": [
    { "scale_order": 5, "scale": "매우 그렇다", "description": "모든 기능이 완벽하게 수행된다." },
    { "scale_order": 4, "scale": "그렇다", "description": "대부분의 기능이 정확하게 수행된다." },
    { "scale_order": 3, "scale": "보통이다", "description": "대부분 수행되지만 일부 오류가 있다." },
    { "scale_order": 2, "scale": "그렇지 않다", "description": "일부 기능이 작동하지 않는다." },
    { "scale_order": 1, "scale": "매우 그렇지 않다", "description": "요구된 기능을 거의 수행하지 못한다." }
  ]
}`

const numericExampleJSON = `{
  "question_order": 1,
  "quality_attribute": "기능 적합성",
  "question_text": "시스템은 요구된 기능을 정확하게 수행하는가?",
  "scale_interpretations": [
    { "scale_order": 5, "scale": "100~81점", "description": "모든 기능이 완벽하게 수행된다." },
    { "scale_order": 4, "scale": "80~61점", "description": "대부분의 기능이 정확하게 수행된다." },
    { "scale_order": 3, "scale": "60~41점", "description": "일부 오류가 있으나 대부분 수행된다." },
    { "scale_order": 2, "scale": "40~21점", "description": "주요 기능 중 일부가 작동하지 않는다." },
    { "scale_order": 1, "scale": "20~1점", "description": "요구된 기능을 거의 수행하지 못한다." }
  ]
}`

func exampleJSON(scaleType survey.ScaleType) string {
	if scaleType == survey.ScaleNumeric100 {
		return numericExampleJSON
	}
	return likertExampleJSON
}

var rubricSchemaOnce = sync.OnceValue(func() string {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&survey.Rubric{})
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return ""
	}
	return string(raw)
})

const rubricSystemPrompt = "당신은 소프트웨어 품질 평가 전문가입니다. JSON만 반환하세요."

// rubricUserPrompt builds the self-contained prompt for one question: scale
// description, the question itself, format rules, the response JSON schema and
// a worked example.
func rubricUserPrompt(q ports.SurveyQuestion, scaleType survey.ScaleType) string {
	return fmt.Sprintf(`당신은 ISO/IEC 25010 기반의 소프트웨어 품질 평가 전문가입니다.
다음 질문에 대해, 평가척도별로 평가자가 참고할 수 있는 '구간별 설명'을 생성하세요.

**평가 척도**
%s

**질문**
Q%d. [%s] %s

생성 규칙:
- 항상 높은 점수(긍정적 평가)에서 낮은 점수(부정적 평가) 순으로 생성하세요.
- 각 scale_interpretations 항목은 반드시 아래 3개의 키를 모두 포함해야 합니다.
  1. "scale_order" (정수)
  2. "scale" (척도명)
  3. "description" (문장형 설명)
- 어떤 경우에도 "description"은 생략하지 마세요.
- JSON 객체 1개만 생성하세요 (배열 아님).

응답 JSON 스키마:
%s

출력 형식(JSON 객체 1개):
%s`,
		scaleDescription(scaleType), q.QuestionOrder, q.QualityAttribute, q.QuestionText,
		rubricSchemaOnce(), exampleJSON(scaleType))
}

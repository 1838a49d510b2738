package surveygen

import (
	"fmt"
	"strings"
)

// GenerateInput carries the project intake form. ProjectName and
// SoftwareDescription are mandatory; the rest sharpen the prompts when given.
type GenerateInput struct {
	ProjectName          string
	SoftwareDescription  string
	EvaluationPurpose    string
	RespondentInfo       string
	ExpectedRespondents  string
	DevelopmentScale     string
	UserScale            string
	OperatingEnvironment string
	IndustryField        string
	SurveyItemCount      int
}

// inputText renders the intake form as the bullet list every stage prompt
// receives. Empty optional fields read 미입력 so the model does not invent
// values for them.
func (in GenerateInput) inputText() string {
	orNone := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "미입력"
		}
		return s
	}
	itemCount := "자동 설정"
	if in.SurveyItemCount > 0 {
		itemCount = fmt.Sprintf("%d개", in.SurveyItemCount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- 평가할 소프트웨어: %s\n", in.SoftwareDescription)
	fmt.Fprintf(&b, "- 평가 목적: %s\n", orNone(in.EvaluationPurpose))
	fmt.Fprintf(&b, "- 응답자 정보: %s\n", orNone(in.RespondentInfo))
	fmt.Fprintf(&b, "- 예상 응답자 수: %s\n", orNone(in.ExpectedRespondents))
	fmt.Fprintf(&b, "- 개발 규모: %s\n", orNone(in.DevelopmentScale))
	fmt.Fprintf(&b, "- 사용자 규모: %s\n", orNone(in.UserScale))
	fmt.Fprintf(&b, "- 운영 환경: %s\n", orNone(in.OperatingEnvironment))
	fmt.Fprintf(&b, "- 산업 분야: %s\n", orNone(in.IndustryField))
	fmt.Fprintf(&b, "- 설문 문항 수: %s", itemCount)
	return b.String()
}

const analysisSystemPrompt = `당신은 소프트웨어 품질 평가 전문가입니다.
제공된 소프트웨어 정보를 종합적으로 분석하여 다음 항목들을 도출하세요:

**분석 항목:**
1. 소프트웨어 도메인 및 특성 분석 (2-3문장)
   - 산업 분야, 주요 기능, 비즈니스 특성
   - 평가 목적과 응답자 특성 고려

2. 품질 평가 시 고려사항 (3-4개 항목)
   - 개발/사용자 규모에 따른 고려사항
   - 운영 환경에 따른 고려사항
   - 산업 분야별 규제/요구사항

3. 설문 설계 방향 (2-3문장)
   - 응답자 특성에 맞는 질문 수준
   - 적정 문항 수 제안
   - 중점적으로 평가할 영역

**출력 형식:**
도메인 분석:
[분석 내용]

품질 평가 고려사항:
- [고려사항 1]
- [고려사항 2]
- [고려사항 3]

설문 설계 방향:
[설계 방향]`

func analysisUserPrompt(in GenerateInput) string {
	return "다음 소프트웨어 정보를 종합적으로 분석해주세요:\n\n" + in.inputText()
}

func selectionSystemPrompt(attributeList string) string {
	return `당신은 소프트웨어 품질 평가 전문가입니다.
1단계 분야 분석 결과를 바탕으로 ISO/IEC 25010의 9가지 품질 속성 중에서 주요 품질 속성을 선정하세요.

ISO/IEC 25010의 9가지 품질 속성:
` + attributeList + `

**출력 형식:**
주요 품질 속성 :
1. [속성명] - [선정 이유 1문장]
2. [속성명] - [선정 이유 1문장]
3. [속성명] - [선정 이유 1문장]

부차 품질 속성 :
- [속성명들 나열]`
}

func selectionUserPrompt(in GenerateInput, domainAnalysis string) string {
	return fmt.Sprintf(`1단계 분야 분석 결과:
%s

소프트웨어 정보:
%s

위 정보를 바탕으로 주요 품질 속성을 선정해주세요.`, domainAnalysis, in.inputText())
}

func generationSystemPrompt(attributeList string) string {
	return `당신은 소프트웨어 품질 평가 전문가입니다.
ISO/IEC 25010 국제 표준에 따라 소프트웨어 품질 평가를 위한 설문조사 질문을 생성해야 합니다.

ISO/IEC 25010의 9가지 품질 속성:
` + attributeList + `

**질문 생성 지침:**
1. 1단계 분야 분석과 2단계 품질 속성 선정 결과를 반영하세요.
2. 주요 품질 속성에는 각 2-3개의 질문을 생성하세요.
3. 부차 품질 속성에는 각 1-2개의 질문을 생성하세요.
4. 응답자 특성(기술 수준, 역할)을 고려하여 적절한 용어와 표현을 사용하세요.
5. 해당 분야/산업에 특화된 맥락을 반영하세요.
6. 설문 문항 수가 지정된 경우 해당 개수에 맞춰 조정하세요.
7. 질문만 작성하고, 척도나 답변 옵션은 포함하지 마세요.
8. 각 질문 앞에 [품질 속성명] 형태로 명시하세요.
9. 그렇다~그렇지 않다 형태로 답변 가능한 질문으로 작성하세요.

예시 형식:
[기능 적합성] 시스템이 필요한 기능을 모두 제공합니까?
[성능 효율성] 시스템의 응답 속도가 만족스럽습니까?`
}

func generationUserPrompt(in GenerateInput, domainAnalysis, selection string) string {
	return fmt.Sprintf(`1단계 분야 분석 결과:
%s

2단계 품질 속성 선정 결과:
%s

소프트웨어 정보:
%s

위 분석 결과를 바탕으로 ISO/IEC 25010 기반 설문조사 질문을 생성해주세요.`,
		domainAnalysis, selection, in.inputText())
}

const refinementSystemPrompt = `당신은 설문조사 설계 전문가입니다.
생성된 설문조사 질문들을 검토하고 다음 문제들을 찾아 수정하세요:

**검토 항목:**
1. **이중부정**: "~하지 않지 않습니까?" 같은 이중 부정 표현
   - 문제: 응답자 혼란 유발
   - 해결: 긍정문으로 변경

2. **모호한 척도**: "자주", "가끔", "빠른" 같은 주관적 표현
   - 문제: 응답자마다 다른 해석
   - 해결: 명확한 표현으로 변경 (구체적 기준을 제시하지는 말것)

3. **중복질문(유사질문)**: 여러 문항이 유사한 의미를 가지는 경우
   - 문제: 중복 응답 유도 및 설문 피로도 증가
   - 해결: 의미가 유사한 질문들은 **적절히 하나의 질문으로 통합**

4. **유도질문**: 특정 답변을 유도하는 표현
   - 문제: 편향된 응답 유도
   - 해결: 중립적 표현으로 변경

**출력 형식:**
수정이 필요한 질문이 있는 경우:
문제 발견 및 수정 내역:
1. [문제 유형]: [원본 질문]
   → 문제점: [설명]
   → 수정: [수정된 질문]

수정이 필요없는 경우:
검토 완료: 모든 질문이 적절합니다. 수정 사항이 없습니다.`

func refinementUserPrompt(initialQuestions string) string {
	return "다음 설문조사 질문들을 검토하고 필요시 수정해주세요:\n\n" + initialQuestions
}

const consolidationSystemPrompt = `당신은 설문조사 설계 전문가입니다.
3단계에서 생성된 초기 질문과 4단계의 수정 내역을 바탕으로 최종 설문조사 질문을 생성하세요.

**생성 규칙:**
1. 4단계에서 수정이 필요하다고 지적된 질문은 수정된 버전을 사용하세요.
2. 수정이 필요없었던 질문은 원본 그대로 사용하세요.
3. 모든 질문을 [품질 속성명] 질문 형식으로 출력하세요.
4. 질문만 나열하고 추가 설명은 붙이지 마세요.`

func consolidationUserPrompt(initialQuestions, refinementResult string) string {
	return fmt.Sprintf(`3단계 초기 질문:
%s

4단계 수정 내역:
%s

위 내용을 바탕으로 최종 설문조사 질문을 생성해주세요.`, initialQuestions, refinementResult)
}

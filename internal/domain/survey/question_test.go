package survey

import (
	"reflect"
	"testing"
)

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Question
	}{
		{
			name: "mixed lines keep only tagged questions in order",
			text: "설문조사 질문 목록:\n\n[보안성] 암호화가 되어 있습니까?\n\nnotes: n/a\n[기능 적합성] 필요한 기능을 모두 제공합니까?\n끝",
			want: []Question{
				{Ordinal: 1, Attribute: "보안성", Text: "암호화가 되어 있습니까?"},
				{Ordinal: 2, Attribute: "기능 적합성", Text: "필요한 기능을 모두 제공합니까?"},
			},
		},
		{
			name: "numbered lines are accepted",
			text: "1. [성능 효율성] 응답 속도가 만족스럽습니까?\n2) [신뢰성] 오류 없이 동작합니까?",
			want: []Question{
				{Ordinal: 1, Attribute: "성능 효율성", Text: "응답 속도가 만족스럽습니까?"},
				{Ordinal: 2, Attribute: "신뢰성", Text: "오류 없이 동작합니까?"},
			},
		},
		{
			name: "surrounding whitespace is trimmed",
			text: "  [ 상호작용능력 ]   사용법을 쉽게 익힐 수 있습니까?  ",
			want: []Question{
				{Ordinal: 1, Attribute: "상호작용능력", Text: "사용법을 쉽게 익힐 수 있습니까?"},
			},
		},
		{
			name: "unclosed bracket and empty body are dropped",
			text: "[보안성 암호화가 되어 있습니까?\n[]\n[신뢰성]   ",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuestions(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQuestions() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseQuestionsIsPure(t *testing.T) {
	text := "[보안성] 암호화가 되어 있습니까?\nnoise\n[신뢰성] 장애 후 복구가 됩니까?"

	first := ParseQuestions(text)
	second := ParseQuestions(text)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated parse differs: %#v vs %#v", first, second)
	}
	for i, q := range first {
		if q.Ordinal != i+1 {
			t.Errorf("ordinal[%d] = %d, want %d", i, q.Ordinal, i+1)
		}
	}
}

func TestQuestionDisplay(t *testing.T) {
	q := Question{Ordinal: 1, Attribute: "보안성", Text: "암호화가 되어 있습니까?"}
	if got := q.Display(); got != "[보안성] 암호화가 되어 있습니까?" {
		t.Errorf("Display() = %q", got)
	}
}

func TestNeedsConsolidation(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   bool
	}{
		{"fixed no-change sentence", "검토 완료: 모든 질문이 적절합니다. 수정 사항이 없습니다.", false},
		{"partial marker", "모든 질문이 적절합니다.", false},
		{"defects listed", "문제 발견 및 수정 내역:\n1. [이중부정]: ...", true},
		{"empty audit", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsConsolidation(tt.result); got != tt.want {
				t.Errorf("NeedsConsolidation(%q) = %v, want %v", tt.result, got, tt.want)
			}
		})
	}
}

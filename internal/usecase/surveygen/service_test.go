package surveygen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"qsurvey/internal/domain/survey"
	"qsurvey/internal/ports"
)

type scriptedChat struct {
	replies []string
	calls   int
	failAt  int
	prompts []ports.ChatRequest
}

func (c *scriptedChat) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	c.calls++
	c.prompts = append(c.prompts, req)
	if c.failAt > 0 && c.calls == c.failAt {
		return "", errors.New("completion failed")
	}
	if c.calls > len(c.replies) {
		return "", errors.New("no scripted reply left")
	}
	return c.replies[c.calls-1], nil
}

type fakeRepo struct {
	ports.SurveyRepository
	existing map[string]bool
	created  []ports.SurveyCreate
	nextID   uint64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{existing: map[string]bool{}, nextID: 1}
}

func (r *fakeRepo) ProjectNameExists(_ context.Context, name string) (bool, error) {
	return r.existing[name], nil
}

func (r *fakeRepo) CreateSurvey(_ context.Context, input ports.SurveyCreate) (ports.SurveyProject, error) {
	if r.existing[input.Project.ProjectName] {
		return ports.SurveyProject{}, ports.ErrProjectNameExists
	}
	r.existing[input.Project.ProjectName] = true
	r.created = append(r.created, input)
	project := input.Project
	project.SurveyID = r.nextID
	r.nextID++
	return project, nil
}

type passthroughUow struct{}

func (passthroughUow) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func defaultTemps() StageTemperatures {
	return StageTemperatures{Analysis: 0.5, Selection: 0.5, Generation: 0.7, Refinement: 0.3, Consolidate: 0.3}
}

func validInput() GenerateInput {
	return GenerateInput{
		ProjectName:         "2026_쇼핑몰 품질 평가",
		SoftwareDescription: "온라인 쇼핑몰 웹 애플리케이션",
	}
}

const cleanRefinement = "검토 완료: 모든 질문이 적절합니다. 수정 사항이 없습니다."

func TestGenerateSkipsConsolidationWhenClean(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		"도메인 분석 결과",
		"주요 품질 속성 : 보안성",
		"[보안성] 데이터가 암호화됩니까?\n[신뢰성] 오류 없이 동작합니까?",
		cleanRefinement,
	}}
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(chat, defaultTemps()))

	result, err := svc.Generate(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if chat.calls != 4 {
		t.Errorf("chat calls = %d, want 4", chat.calls)
	}
	if result.ConsolidationRan {
		t.Error("consolidation ran on a clean refinement result")
	}
	if result.FinalQuestions != result.InitialQuestions {
		t.Error("final questions must equal initial questions when nothing changed")
	}
	if len(result.Questions) != 2 || result.Questions[0].Attribute != "보안성" {
		t.Errorf("parsed questions = %#v", result.Questions)
	}
}

func TestGenerateRunsConsolidationOnDefects(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		"도메인 분석 결과",
		"주요 품질 속성 : 보안성",
		"[보안성] 데이터가 자주 암호화됩니까?",
		"문제 발견 및 수정 내역:\n1. 모호한 척도: 데이터가 자주 암호화됩니까?",
		"[보안성] 데이터가 암호화됩니까?",
	}}
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(chat, defaultTemps()))

	result, err := svc.Generate(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if chat.calls != 5 {
		t.Errorf("chat calls = %d, want 5", chat.calls)
	}
	if !result.ConsolidationRan {
		t.Error("consolidation did not run after defects were flagged")
	}
	if len(result.Questions) != 1 || result.Questions[0].Text != "데이터가 암호화됩니까?" {
		t.Errorf("parsed questions = %#v", result.Questions)
	}
}

func TestGenerateStageTemperatures(t *testing.T) {
	chat := &scriptedChat{replies: []string{"a", "b", "[보안성] q", cleanRefinement}}
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(chat, defaultTemps()))

	if _, err := svc.Generate(context.Background(), validInput(), nil); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []float64{0.5, 0.5, 0.7, 0.3}
	for i, req := range chat.prompts {
		if req.Temperature != want[i] {
			t.Errorf("stage %d temperature = %v, want %v", i+1, req.Temperature, want[i])
		}
	}
}

func TestGenerateAbortsOnStageError(t *testing.T) {
	chat := &scriptedChat{replies: []string{"a", "b"}, failAt: 2}
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(chat, defaultTemps()))

	_, err := svc.Generate(context.Background(), validInput(), nil)
	if err == nil {
		t.Fatal("Generate() succeeded after a stage failure")
	}
	if chat.calls != 2 {
		t.Errorf("chat calls = %d, want 2 (no stages after the failure)", chat.calls)
	}
	if !strings.Contains(err.Error(), StageNames[StageSelection]) {
		t.Errorf("error %q does not name the failed stage", err)
	}
}

func TestGenerateRejectsDuplicateNameBeforeAnyCall(t *testing.T) {
	repo := newFakeRepo()
	repo.existing["dup"] = true
	chat := &scriptedChat{}
	svc := NewService(repo, passthroughUow{}, NewPipeline(chat, defaultTemps()))

	in := validInput()
	in.ProjectName = "dup"
	_, err := svc.Generate(context.Background(), in, nil)
	if !errors.Is(err, ErrProjectNameExists) {
		t.Fatalf("Generate() error = %v, want ErrProjectNameExists", err)
	}
	if chat.calls != 0 {
		t.Errorf("chat calls = %d, want 0 for a rejected name", chat.calls)
	}
}

func TestGenerateValidatesRequiredFields(t *testing.T) {
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(&scriptedChat{}, defaultTemps()))

	in := validInput()
	in.ProjectName = " "
	if _, err := svc.Generate(context.Background(), in, nil); !errors.Is(err, ErrProjectNameRequired) {
		t.Errorf("empty project name error = %v", err)
	}

	in = validInput()
	in.SoftwareDescription = ""
	if _, err := svc.Generate(context.Background(), in, nil); !errors.Is(err, ErrDescriptionRequired) {
		t.Errorf("empty description error = %v", err)
	}
}

func TestGenerateReportsProgress(t *testing.T) {
	chat := &scriptedChat{replies: []string{"a", "b", "[보안성] q", cleanRefinement}}
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(chat, defaultTemps()))

	var stages []int
	var finished bool
	_, err := svc.Generate(context.Background(), validInput(), func(stage int, _ string, done bool) {
		if done {
			finished = true
			return
		}
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(stages) != 4 || stages[0] != StageAnalysis || stages[3] != StageRefinement {
		t.Errorf("progress stages = %v", stages)
	}
	if !finished {
		t.Error("done callback never fired")
	}
}

func TestSaveCurationPersistsStepsAndOrdinals(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughUow{}, NewPipeline(&scriptedChat{}, defaultTemps()))

	result := PipelineResult{
		DomainAnalysis:   "분석",
		Selection:        "선정",
		InitialQuestions: "[보안성] q1\n[신뢰성] q2",
		RefinementResult: cleanRefinement,
	}
	selected := []survey.Question{
		{Attribute: "신뢰성", Text: "오류 없이 동작합니까?"},
		{Attribute: "보안성", Text: "암호화됩니까?"},
	}

	saved, err := svc.SaveCuration(context.Background(), validInput(), result, selected)
	if err != nil {
		t.Fatalf("SaveCuration() error = %v", err)
	}
	if saved.SurveyID == 0 {
		t.Error("saved survey has no id")
	}
	if len(repo.created) != 1 {
		t.Fatalf("created surveys = %d", len(repo.created))
	}
	create := repo.created[0]
	if len(create.Steps) != 4 || create.Steps[0].StepName != "도메인 분석" || create.Steps[3].StepNumber != 4 {
		t.Errorf("steps = %#v", create.Steps)
	}
	if len(create.Questions) != 2 ||
		create.Questions[0].QuestionOrder != 1 || create.Questions[0].QualityAttribute != "신뢰성" ||
		create.Questions[1].QuestionOrder != 2 {
		t.Errorf("questions = %#v", create.Questions)
	}
	if create.Project.CreatedAt == "" || create.Project.CreatedAt != create.Project.UpdatedAt {
		t.Errorf("timestamps = %q / %q", create.Project.CreatedAt, create.Project.UpdatedAt)
	}
}

func TestSaveCurationRejectsEmptySelection(t *testing.T) {
	svc := NewService(newFakeRepo(), passthroughUow{}, NewPipeline(&scriptedChat{}, defaultTemps()))

	_, err := svc.SaveCuration(context.Background(), validInput(), PipelineResult{}, nil)
	if !errors.Is(err, ErrNoQuestionsSelected) {
		t.Fatalf("SaveCuration() error = %v, want ErrNoQuestionsSelected", err)
	}
}

func TestReportFormat(t *testing.T) {
	detail := SurveyDetail{
		Project: ports.SurveyProject{ProjectName: "p1"},
		Steps: []ports.GenerationStep{
			{StepNumber: 1, StepName: "도메인 분석", StepResult: "분석"},
			{StepNumber: 2, StepName: "품질 속성 선정", StepResult: "선정"},
		},
		Questions: []ports.SurveyQuestion{
			{QuestionOrder: 1, QualityAttribute: "보안성", QuestionText: "암호화됩니까?"},
		},
	}
	report := Report(detail)
	for _, want := range []string{
		"프로젝트명: p1",
		"=== 1단계: 도메인 분석 ===",
		"=== 2단계: 품질 속성 선정 ===",
		"=== 선택된 최종 설문조사 질문 ===",
		"1. [보안성] 암호화됩니까?",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

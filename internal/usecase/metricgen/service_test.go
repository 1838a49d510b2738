package metricgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"qsurvey/internal/domain/survey"
	"qsurvey/internal/ports"
)

// concurrentChat tracks the high-water mark of in-flight calls and answers
// with a valid rubric keyed to the question ordinal in the prompt.
type concurrentChat struct {
	mu        sync.Mutex
	inFlight  int
	highWater int
	calls     int
	failFor   map[int]string
	delay     time.Duration
}

func (c *concurrentChat) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	c.mu.Lock()
	c.inFlight++
	c.calls++
	if c.inFlight > c.highWater {
		c.highWater = c.inFlight
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	ordinal := ordinalFromPrompt(req.Messages[1].Content)
	c.mu.Lock()
	reply, failed := c.failFor[ordinal]
	c.mu.Unlock()
	if failed {
		if reply == "" {
			return "", errors.New("completion failed")
		}
		return reply, nil
	}
	return validRubricJSON(ordinal), nil
}

func ordinalFromPrompt(prompt string) int {
	idx := strings.Index(prompt, "\nQ")
	if idx < 0 {
		return 0
	}
	var ordinal int
	fmt.Sscanf(prompt[idx+1:], "Q%d.", &ordinal)
	return ordinal
}

func validRubricJSON(ordinal int) string {
	rubric := survey.Rubric{
		QuestionOrder:    ordinal,
		QualityAttribute: "보안성",
		QuestionText:     fmt.Sprintf("질문 %d", ordinal),
		Entries: []survey.ScaleEntry{
			{ScaleOrder: 5, Scale: "매우 그렇다", Description: "항상 충족된다."},
			{ScaleOrder: 4, Scale: "그렇다", Description: "대부분 충족된다."},
			{ScaleOrder: 3, Scale: "보통이다", Description: "부분적으로 충족된다."},
			{ScaleOrder: 2, Scale: "그렇지 않다", Description: "거의 충족되지 않는다."},
			{ScaleOrder: 1, Scale: "매우 그렇지 않다", Description: "충족되지 않는다."},
		},
	}
	raw, _ := json.Marshal(rubric)
	return string(raw)
}

type fakeMetricRepo struct {
	ports.SurveyRepository
	questions     []ports.SurveyQuestion
	metricCount   int64
	replaced      [][]ports.MetricCreate
	completedFlag bool
}

func (r *fakeMetricRepo) GetProject(_ context.Context, surveyID uint64) (ports.SurveyProject, error) {
	if surveyID == 0 {
		return ports.SurveyProject{}, ports.ErrSurveyNotFound
	}
	return ports.SurveyProject{SurveyID: surveyID, ProjectName: "p"}, nil
}

func (r *fakeMetricRepo) ListQuestions(_ context.Context, _ uint64) ([]ports.SurveyQuestion, error) {
	return r.questions, nil
}

func (r *fakeMetricRepo) CountMetrics(_ context.Context, _ uint64) (int64, error) {
	return r.metricCount, nil
}

func (r *fakeMetricRepo) ReplaceMetrics(_ context.Context, _ uint64, metrics []ports.MetricCreate) error {
	r.replaced = append(r.replaced, metrics)
	return nil
}

func (r *fakeMetricRepo) SetMetricCompleted(_ context.Context, _ uint64, completed bool, _ string) error {
	r.completedFlag = completed
	return nil
}

type passthroughUow struct{}

func (passthroughUow) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func makeQuestions(n int) []ports.SurveyQuestion {
	questions := make([]ports.SurveyQuestion, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, ports.SurveyQuestion{
			QuestionID:       uint64(100 + i),
			QuestionOrder:    i,
			QualityAttribute: "보안성",
			QuestionText:     fmt.Sprintf("질문 %d", i),
		})
	}
	return questions
}

func TestGenerateProducesOrderedRubrics(t *testing.T) {
	repo := &fakeMetricRepo{questions: makeQuestions(8)}
	chat := &concurrentChat{delay: 2 * time.Millisecond}
	svc := NewService(repo, passthroughUow{}, NewFanout(chat, 3, 0.3))

	result, err := svc.Generate(context.Background(), 1, survey.ScaleLikert5, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Successes) != 8 || len(result.Failures) != 0 {
		t.Fatalf("successes = %d, failures = %d", len(result.Successes), len(result.Failures))
	}
	for i, item := range result.Successes {
		if item.Ordinal != i+1 {
			t.Errorf("success[%d].Ordinal = %d, want %d", i, item.Ordinal, i+1)
		}
	}
	if result.Successes[0].QuestionID != 101 {
		t.Errorf("question id mapping broken: %#v", result.Successes[0])
	}
	if result.PartiallyComplete() {
		t.Error("fully successful batch reported as partial")
	}
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	repo := &fakeMetricRepo{questions: makeQuestions(12)}
	chat := &concurrentChat{delay: 5 * time.Millisecond}
	svc := NewService(repo, passthroughUow{}, NewFanout(chat, 5, 0.3))

	if _, err := svc.Generate(context.Background(), 1, survey.ScaleLikert5, nil); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if chat.highWater > 5 {
		t.Errorf("in-flight high-water mark = %d, want <= 5", chat.highWater)
	}
	if chat.calls != 12 {
		t.Errorf("chat calls = %d, want 12", chat.calls)
	}
}

func TestGenerateIsolatesItemFailures(t *testing.T) {
	repo := &fakeMetricRepo{questions: makeQuestions(5)}
	chat := &concurrentChat{failFor: map[int]string{3: ""}}
	svc := NewService(repo, passthroughUow{}, NewFanout(chat, 2, 0.3))

	result, err := svc.Generate(context.Background(), 1, survey.ScaleLikert5, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Successes) != 4 {
		t.Errorf("successes = %d, want 4", len(result.Successes))
	}
	if len(result.Failures) != 1 || result.Failures[0].Ordinal != 3 {
		t.Fatalf("failures = %#v", result.Failures)
	}
	if result.Failures[0].Reason == "" {
		t.Error("failure carries no reason")
	}
	if !result.PartiallyComplete() {
		t.Error("batch with a failure not reported as partial")
	}
}

func TestGenerateRejectsInvalidRubrics(t *testing.T) {
	missingDescription := `{
  "question_order": 2,
  "quality_attribute": "보안성",
  "question_text": "질문 2",
  "scale_interpretations": [
    { "scale_order": 5, "scale": "매우 그렇다", "description": "" }
  ]
}`
	repo := &fakeMetricRepo{questions: makeQuestions(3)}
	chat := &concurrentChat{failFor: map[int]string{
		1: "not json at all",
		2: missingDescription,
	}}
	svc := NewService(repo, passthroughUow{}, NewFanout(chat, 2, 0.3))

	result, err := svc.Generate(context.Background(), 1, survey.ScaleLikert5, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Successes) != 1 || result.Successes[0].Ordinal != 3 {
		t.Errorf("successes = %#v", result.Successes)
	}
	if len(result.Failures) != 2 {
		t.Fatalf("failures = %#v", result.Failures)
	}
}

func TestGenerateAcceptsFencedJSON(t *testing.T) {
	repo := &fakeMetricRepo{questions: makeQuestions(1)}
	chat := &concurrentChat{failFor: map[int]string{
		1: "```json\n" + validRubricJSON(1) + "\n```",
	}}
	svc := NewService(repo, passthroughUow{}, NewFanout(chat, 1, 0.3))

	result, err := svc.Generate(context.Background(), 1, survey.ScaleLikert5, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Successes) != 1 || len(result.Failures) != 0 {
		t.Fatalf("fenced json rejected: %#v", result.Failures)
	}
}

func TestGenerateRequiresQuestions(t *testing.T) {
	repo := &fakeMetricRepo{}
	svc := NewService(repo, passthroughUow{}, NewFanout(&concurrentChat{}, 2, 0.3))

	if _, err := svc.Generate(context.Background(), 1, survey.ScaleLikert5, nil); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("Generate() error = %v, want ErrNoQuestions", err)
	}
	if _, err := svc.Generate(context.Background(), 0, survey.ScaleLikert5, nil); !errors.Is(err, ports.ErrSurveyNotFound) {
		t.Errorf("Generate() error = %v, want ErrSurveyNotFound", err)
	}
}

func TestSaveRequiresReplaceConfirmation(t *testing.T) {
	repo := &fakeMetricRepo{metricCount: 3}
	svc := NewService(repo, passthroughUow{}, NewFanout(&concurrentChat{}, 2, 0.3))

	result := FanoutResult{
		ScaleType: survey.ScaleLikert5,
		Successes: []ItemResult{{QuestionID: 101, Ordinal: 1}},
	}
	err := svc.Save(context.Background(), 1, result, false)
	if !errors.Is(err, ErrMetricsExist) {
		t.Fatalf("Save() error = %v, want ErrMetricsExist", err)
	}
	if len(repo.replaced) != 0 {
		t.Error("declined replace still wrote metrics")
	}
	if repo.completedFlag {
		t.Error("declined replace still set metric_completed")
	}
}

func TestSaveReplacesAndMarksComplete(t *testing.T) {
	repo := &fakeMetricRepo{metricCount: 3}
	svc := NewService(repo, passthroughUow{}, NewFanout(&concurrentChat{}, 2, 0.3))

	result := FanoutResult{
		ScaleType: survey.ScaleNumeric100,
		Successes: []ItemResult{
			{QuestionID: 101, Ordinal: 1},
			{QuestionID: 102, Ordinal: 2},
		},
	}
	if err := svc.Save(context.Background(), 1, result, true); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(repo.replaced) != 1 || len(repo.replaced[0]) != 2 {
		t.Fatalf("replaced = %#v", repo.replaced)
	}
	if repo.replaced[0][0].ScaleType != survey.ScaleNumeric100 {
		t.Errorf("scale type = %q", repo.replaced[0][0].ScaleType)
	}
	if !repo.completedFlag {
		t.Error("metric_completed not set after save")
	}
}

func TestSaveRejectsEmptyResult(t *testing.T) {
	svc := NewService(&fakeMetricRepo{}, passthroughUow{}, NewFanout(&concurrentChat{}, 2, 0.3))

	if err := svc.Save(context.Background(), 1, FanoutResult{}, true); !errors.Is(err, ErrNoSuccesses) {
		t.Errorf("Save() error = %v, want ErrNoSuccesses", err)
	}
}

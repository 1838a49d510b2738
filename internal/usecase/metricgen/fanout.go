package metricgen

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
)

// ItemFailure records one question whose rubric generation failed. Failures
// never abort the batch; they ride along in the result.
type ItemFailure struct {
	Ordinal int    `json:"ordinal"`
	Reason  string `json:"reason"`
}

// ItemResult pairs a generated rubric with the question it belongs to.
type ItemResult struct {
	QuestionID uint64
	Ordinal    int
	Rubric     survey.Rubric
}

// FanoutResult collects per-question outcomes of one batch. Successes are
// ordered by question ordinal.
type FanoutResult struct {
	ScaleType survey.ScaleType
	Successes []ItemResult
	Failures  []ItemFailure
}

func (r FanoutResult) PartiallyComplete() bool {
	return len(r.Failures) > 0
}

// ProgressFunc is called once per finished item with running counts.
type ProgressFunc func(done, total int)

// Fanout generates one rubric per question with at most `workers` chat calls
// in flight. A failed item is recorded and the rest of the batch continues.
type Fanout struct {
	chat        ports.ChatClient
	workers     int
	temperature float64
}

func NewFanout(chat ports.ChatClient, workers int, temperature float64) *Fanout {
	if workers < 1 {
		workers = 1
	}
	return &Fanout{chat: chat, workers: workers, temperature: temperature}
}

type itemOutcome struct {
	result  ItemResult
	failure *ItemFailure
}

func (f *Fanout) Run(ctx context.Context, questions []ports.SurveyQuestion, scaleType survey.ScaleType, progress ProgressFunc) (FanoutResult, error) {
	if progress == nil {
		progress = func(int, int) {}
	}

	outcomes := make(chan itemOutcome, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, q := range questions {
		g.Go(func() error {
			outcomes <- f.generateOne(gctx, q, scaleType)
			return nil
		})
	}

	collected := make(chan FanoutResult, 1)
	go func() {
		result := FanoutResult{ScaleType: scaleType}
		done := 0
		for outcome := range outcomes {
			done++
			progress(done, len(questions))
			if outcome.failure != nil {
				result.Failures = append(result.Failures, *outcome.failure)
				continue
			}
			result.Successes = append(result.Successes, outcome.result)
		}
		collected <- result
	}()

	// Workers report failures through outcomes, never through the group.
	_ = g.Wait()
	close(outcomes)
	result := <-collected

	sort.Slice(result.Successes, func(i, j int) bool {
		return result.Successes[i].Ordinal < result.Successes[j].Ordinal
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Ordinal < result.Failures[j].Ordinal
	})

	if result.PartiallyComplete() {
		logging.Warn(ctx, "metric batch partially complete",
			slog.Int("succeeded", len(result.Successes)),
			slog.Int("failed", len(result.Failures)))
	}
	return result, nil
}

func (f *Fanout) generateOne(ctx context.Context, q ports.SurveyQuestion, scaleType survey.ScaleType) itemOutcome {
	fail := func(err error) itemOutcome {
		return itemOutcome{failure: &ItemFailure{Ordinal: q.QuestionOrder, Reason: err.Error()}}
	}

	raw, err := f.chat.Complete(ctx, ports.ChatRequest{
		Messages: []ports.ChatMessage{
			{Role: ports.RoleSystem, Content: rubricSystemPrompt},
			{Role: ports.RoleUser, Content: rubricUserPrompt(q, scaleType)},
		},
		Temperature: f.temperature,
	})
	if err != nil {
		return fail(errs.Wrap(err, "chat completion"))
	}

	var rubric survey.Rubric
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &rubric); err != nil {
		return fail(errs.Wrap(err, "parse rubric json"))
	}
	if err := survey.ValidateRubric(rubric); err != nil {
		return fail(err)
	}
	survey.SortEntriesPositiveFirst(rubric.Entries)

	return itemOutcome{result: ItemResult{
		QuestionID: q.QuestionID,
		Ordinal:    q.QuestionOrder,
		Rubric:     rubric,
	}}
}

// stripCodeFence unwraps ```json fenced replies; models add fences despite the
// JSON-only instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package surveygen

import (
	"context"
	"log/slog"

	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/quality"
	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
)

// Stage numbers as persisted and reported. Stage 5 runs only when the
// refinement audit reported defects.
const (
	StageAnalysis    = 1
	StageSelection   = 2
	StageGeneration  = 3
	StageRefinement  = 4
	StageConsolidate = 5
)

// StageNames maps stage numbers to their persisted step names.
var StageNames = map[int]string{
	StageAnalysis:    "도메인 분석",
	StageSelection:   "품질 속성 선정",
	StageGeneration:  "초기 질문 생성",
	StageRefinement:  "질문 재조정",
	StageConsolidate: "최종 질문 통합",
}

// StageTemperatures carries one sampling temperature per stage.
type StageTemperatures struct {
	Analysis    float64
	Selection   float64
	Generation  float64
	Refinement  float64
	Consolidate float64
}

// ProgressFunc is invoked before each stage starts and once after the whole
// run with stage 0 and done=true. Callbacks must not block for long; the
// pipeline calls them inline.
type ProgressFunc func(stage int, name string, done bool)

// PipelineResult holds the raw output of every executed stage plus the parsed
// final question list. ConsolidationRan reports whether stage 5 executed.
type PipelineResult struct {
	DomainAnalysis   string
	Selection        string
	InitialQuestions string
	RefinementResult string
	FinalQuestions   string
	ConsolidationRan bool
	Questions        []survey.Question
}

// Pipeline runs the staged question-generation conversation. Each stage feeds
// the next; a stage error aborts the run with no partial persistence.
type Pipeline struct {
	chat  ports.ChatClient
	temps StageTemperatures
}

func NewPipeline(chat ports.ChatClient, temps StageTemperatures) *Pipeline {
	return &Pipeline{chat: chat, temps: temps}
}

func (p *Pipeline) Run(ctx context.Context, in GenerateInput, progress ProgressFunc) (PipelineResult, error) {
	if progress == nil {
		progress = func(int, string, bool) {}
	}

	catalog, err := quality.Load()
	if err != nil {
		return PipelineResult{}, errs.Wrap(err, "load quality catalog")
	}
	attributeList := catalog.PromptList()

	var result PipelineResult

	progress(StageAnalysis, StageNames[StageAnalysis], false)
	result.DomainAnalysis, err = p.complete(ctx, StageAnalysis,
		analysisSystemPrompt, analysisUserPrompt(in), p.temps.Analysis)
	if err != nil {
		return PipelineResult{}, err
	}

	progress(StageSelection, StageNames[StageSelection], false)
	result.Selection, err = p.complete(ctx, StageSelection,
		selectionSystemPrompt(attributeList), selectionUserPrompt(in, result.DomainAnalysis), p.temps.Selection)
	if err != nil {
		return PipelineResult{}, err
	}

	progress(StageGeneration, StageNames[StageGeneration], false)
	result.InitialQuestions, err = p.complete(ctx, StageGeneration,
		generationSystemPrompt(attributeList),
		generationUserPrompt(in, result.DomainAnalysis, result.Selection), p.temps.Generation)
	if err != nil {
		return PipelineResult{}, err
	}

	progress(StageRefinement, StageNames[StageRefinement], false)
	result.RefinementResult, err = p.complete(ctx, StageRefinement,
		refinementSystemPrompt, refinementUserPrompt(result.InitialQuestions), p.temps.Refinement)
	if err != nil {
		return PipelineResult{}, err
	}

	if survey.NeedsConsolidation(result.RefinementResult) {
		progress(StageConsolidate, StageNames[StageConsolidate], false)
		result.FinalQuestions, err = p.complete(ctx, StageConsolidate,
			consolidationSystemPrompt,
			consolidationUserPrompt(result.InitialQuestions, result.RefinementResult), p.temps.Consolidate)
		if err != nil {
			return PipelineResult{}, err
		}
		result.ConsolidationRan = true
	} else {
		result.FinalQuestions = result.InitialQuestions
	}

	result.Questions = survey.ParseQuestions(result.FinalQuestions)
	logging.Info(ctx, "survey pipeline complete",
		slog.Int("questions", len(result.Questions)),
		slog.Bool("consolidation_ran", result.ConsolidationRan))

	progress(0, "", true)
	return result, nil
}

func (p *Pipeline) complete(ctx context.Context, stage int, system, user string, temperature float64) (string, error) {
	out, err := p.chat.Complete(ctx, ports.ChatRequest{
		Messages: []ports.ChatMessage{
			{Role: ports.RoleSystem, Content: system},
			{Role: ports.RoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", errs.Wrapf(err, "stage %d (%s)", stage, StageNames[stage])
	}
	return out, nil
}

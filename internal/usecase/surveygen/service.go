package surveygen

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
)

var (
	ErrProjectNameRequired = errors.New("project name is required")
	ErrDescriptionRequired = errors.New("software description is required")
	ErrNoQuestionsSelected = errors.New("at least one question must be selected")
	ErrProjectNameExists   = ports.ErrProjectNameExists
	ErrSurveyNotFound      = ports.ErrSurveyNotFound
)

// Service runs the generation pipeline and persists curated survey drafts.
type Service struct {
	repo     ports.SurveyRepository
	uow      ports.UnitOfWork
	pipeline *Pipeline
	now      func() time.Time
}

func NewService(repo ports.SurveyRepository, uow ports.UnitOfWork, pipeline *Pipeline) *Service {
	return &Service{
		repo:     repo,
		uow:      uow,
		pipeline: pipeline,
		now:      time.Now,
	}
}

// Generate validates the intake form and runs the staged pipeline. The
// duplicate-name check runs before the first completion call so a rejected
// name costs no model traffic. Nothing is persisted here; the caller curates
// the result and then calls SaveCuration.
func (s *Service) Generate(ctx context.Context, in GenerateInput, progress ProgressFunc) (PipelineResult, error) {
	if strings.TrimSpace(in.ProjectName) == "" {
		return PipelineResult{}, ErrProjectNameRequired
	}
	if strings.TrimSpace(in.SoftwareDescription) == "" {
		return PipelineResult{}, ErrDescriptionRequired
	}

	exists, err := s.repo.ProjectNameExists(ctx, in.ProjectName)
	if err != nil {
		return PipelineResult{}, errs.Wrap(err, "check project name")
	}
	if exists {
		return PipelineResult{}, ErrProjectNameExists
	}

	logging.Info(ctx, "starting survey generation", slog.String("project", in.ProjectName))
	return s.pipeline.Run(ctx, in, progress)
}

// SaveCuration persists the project, the per-stage transcripts and the curated
// question list in one transaction. Question ordinals follow the slice order.
func (s *Service) SaveCuration(ctx context.Context, in GenerateInput, result PipelineResult, selected []survey.Question) (ports.SurveyProject, error) {
	if len(selected) == 0 {
		return ports.SurveyProject{}, ErrNoQuestionsSelected
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	create := ports.SurveyCreate{
		Project: ports.SurveyProject{
			ProjectName:          in.ProjectName,
			SoftwareDescription:  in.SoftwareDescription,
			EvaluationPurpose:    in.EvaluationPurpose,
			RespondentInfo:       in.RespondentInfo,
			ExpectedRespondents:  in.ExpectedRespondents,
			DevelopmentScale:     in.DevelopmentScale,
			UserScale:            in.UserScale,
			OperatingEnvironment: in.OperatingEnvironment,
			IndustryField:        in.IndustryField,
			SurveyItemCount:      in.SurveyItemCount,
			CreatedAt:            now,
			UpdatedAt:            now,
		},
		Steps: []ports.GenerationStep{
			{StepNumber: StageAnalysis, StepName: StageNames[StageAnalysis], StepResult: result.DomainAnalysis},
			{StepNumber: StageSelection, StepName: StageNames[StageSelection], StepResult: result.Selection},
			{StepNumber: StageGeneration, StepName: StageNames[StageGeneration], StepResult: result.InitialQuestions},
			{StepNumber: StageRefinement, StepName: StageNames[StageRefinement], StepResult: result.RefinementResult},
		},
	}
	for i, q := range selected {
		create.Questions = append(create.Questions, ports.SurveyQuestion{
			QuestionOrder:    i + 1,
			QualityAttribute: q.Attribute,
			QuestionText:     q.Text,
		})
	}

	var saved ports.SurveyProject
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		saved, txErr = s.repo.CreateSurvey(txCtx, create)
		return txErr
	})
	if err != nil {
		return ports.SurveyProject{}, err
	}

	logging.Info(ctx, "survey saved",
		slog.Uint64("survey_id", saved.SurveyID),
		slog.Int("questions", len(create.Questions)))
	return saved, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]ports.SurveyProject, error) {
	return s.repo.ListProjects(ctx)
}

// SurveyDetail bundles a project with its transcripts and curated questions.
type SurveyDetail struct {
	Project   ports.SurveyProject
	Steps     []ports.GenerationStep
	Questions []ports.SurveyQuestion
}

func (s *Service) GetSurvey(ctx context.Context, surveyID uint64) (SurveyDetail, error) {
	project, err := s.repo.GetProject(ctx, surveyID)
	if err != nil {
		return SurveyDetail{}, err
	}
	steps, err := s.repo.ListSteps(ctx, surveyID)
	if err != nil {
		return SurveyDetail{}, err
	}
	questions, err := s.repo.ListQuestions(ctx, surveyID)
	if err != nil {
		return SurveyDetail{}, err
	}
	return SurveyDetail{Project: project, Steps: steps, Questions: questions}, nil
}

func (s *Service) GetSurveyByName(ctx context.Context, projectName string) (SurveyDetail, error) {
	project, err := s.repo.GetProjectByName(ctx, projectName)
	if err != nil {
		return SurveyDetail{}, err
	}
	return s.GetSurvey(ctx, project.SurveyID)
}

func (s *Service) DeleteSurvey(ctx context.Context, surveyID uint64) error {
	return s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteSurvey(txCtx, surveyID)
	})
}

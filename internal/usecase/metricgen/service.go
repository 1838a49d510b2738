package metricgen

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
)

var (
	// ErrMetricsExist means the survey already carries metrics and the
	// caller did not confirm the destructive replace.
	ErrMetricsExist = errors.New("metrics already exist for this survey")
	ErrNoQuestions  = errors.New("survey has no questions")
	ErrNoSuccesses  = errors.New("no rubric was generated successfully")
)

// Service drives rubric generation and persistence for one survey.
type Service struct {
	repo   ports.SurveyRepository
	uow    ports.UnitOfWork
	fanout *Fanout
	now    func() time.Time
}

func NewService(repo ports.SurveyRepository, uow ports.UnitOfWork, fanout *Fanout) *Service {
	return &Service{repo: repo, uow: uow, fanout: fanout, now: time.Now}
}

// Generate fans rubric generation out over the survey's questions. Nothing is
// persisted; the caller inspects the result and then calls Save.
func (s *Service) Generate(ctx context.Context, surveyID uint64, scaleType survey.ScaleType, progress ProgressFunc) (FanoutResult, error) {
	if _, err := s.repo.GetProject(ctx, surveyID); err != nil {
		return FanoutResult{}, err
	}
	questions, err := s.repo.ListQuestions(ctx, surveyID)
	if err != nil {
		return FanoutResult{}, errs.Wrap(err, "list questions")
	}
	if len(questions) == 0 {
		return FanoutResult{}, ErrNoQuestions
	}

	logging.Info(ctx, "starting metric fan-out",
		slog.Uint64("survey_id", surveyID),
		slog.Int("questions", len(questions)),
		slog.String("scale_type", string(scaleType)))
	return s.fanout.Run(ctx, questions, scaleType, progress)
}

// Save persists generated rubrics. When metrics already exist and replace is
// false it returns ErrMetricsExist so the caller can confirm; with replace the
// old set is deleted and the new one inserted in a single transaction, and the
// survey is marked metric complete.
func (s *Service) Save(ctx context.Context, surveyID uint64, result FanoutResult, replace bool) error {
	if len(result.Successes) == 0 {
		return ErrNoSuccesses
	}

	count, err := s.repo.CountMetrics(ctx, surveyID)
	if err != nil {
		return errs.Wrap(err, "count metrics")
	}
	if count > 0 && !replace {
		return ErrMetricsExist
	}

	metrics := make([]ports.MetricCreate, 0, len(result.Successes))
	for _, item := range result.Successes {
		metrics = append(metrics, ports.MetricCreate{
			QuestionID: item.QuestionID,
			ScaleType:  result.ScaleType,
			Rubric:     item.Rubric,
		})
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ReplaceMetrics(txCtx, surveyID, metrics); err != nil {
			return err
		}
		return s.repo.SetMetricCompleted(txCtx, surveyID, true, now)
	})
	if err != nil {
		return err
	}

	logging.Info(ctx, "metrics saved",
		slog.Uint64("survey_id", surveyID),
		slog.Int("metrics", len(metrics)),
		slog.Bool("replaced", count > 0))
	return nil
}

func (s *Service) ListMetrics(ctx context.Context, surveyID uint64) ([]ports.Metric, error) {
	return s.repo.ListMetrics(ctx, surveyID)
}

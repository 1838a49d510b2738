package ports

import (
	"context"
	"errors"

	"qsurvey/internal/domain/survey"
)

var (
	ErrSurveyNotFound    = errors.New("survey project not found")
	ErrProjectNameExists = errors.New("survey project name already exists")
)

// SurveyProject mirrors the surveys table. ProjectName is the natural key;
// only MetricCompleted and UpdatedAt change after creation.
type SurveyProject struct {
	SurveyID             uint64
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
	MetricCompleted      bool
	CreatedAt            string
	UpdatedAt            string
}

// GenerationStep is one pipeline stage's raw output, append-only audit data.
type GenerationStep struct {
	StepNumber int
	StepName   string
	StepResult string
}

type SurveyQuestion struct {
	QuestionID       uint64
	QuestionOrder    int
	QualityAttribute string
	QuestionText     string
}

type Metric struct {
	MetricID   uint64
	SurveyID   uint64
	QuestionID uint64
	ScaleType  survey.ScaleType
	Rubric     survey.Rubric
}

type MetricCreate struct {
	QuestionID uint64
	ScaleType  survey.ScaleType
	Rubric     survey.Rubric
}

type SurveyCreate struct {
	Project   SurveyProject
	Steps     []GenerationStep
	Questions []SurveyQuestion
}

type SurveyReadRepository interface {
	ProjectNameExists(ctx context.Context, projectName string) (bool, error)
	ListProjects(ctx context.Context) ([]SurveyProject, error)
	GetProject(ctx context.Context, surveyID uint64) (SurveyProject, error)
	GetProjectByName(ctx context.Context, projectName string) (SurveyProject, error)
	ListSteps(ctx context.Context, surveyID uint64) ([]GenerationStep, error)
	ListQuestions(ctx context.Context, surveyID uint64) ([]SurveyQuestion, error)
	ListMetrics(ctx context.Context, surveyID uint64) ([]Metric, error)
	CountMetrics(ctx context.Context, surveyID uint64) (int64, error)
}

type SurveyRepository interface {
	SurveyReadRepository
	// CreateSurvey persists the project, its stage audit trail and the curated
	// questions. Fails with ErrProjectNameExists on a duplicate name.
	CreateSurvey(ctx context.Context, input SurveyCreate) (SurveyProject, error)
	DeleteSurvey(ctx context.Context, surveyID uint64) error
	// ReplaceMetrics deletes any stored metrics for the survey and inserts the
	// given set. Callers run it inside a unit of work so delete and insert
	// commit together.
	ReplaceMetrics(ctx context.Context, surveyID uint64, metrics []MetricCreate) error
	SetMetricCompleted(ctx context.Context, surveyID uint64, completed bool, updatedAt string) error
}

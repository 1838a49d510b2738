package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/infrastructure/persistence/model"
	"qsurvey/internal/ports"
)

type SurveyRepository struct {
	db *gorm.DB
}

var _ ports.SurveyRepository = (*SurveyRepository)(nil)

func NewSurveyRepository(db *gorm.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

func (r *SurveyRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *SurveyRepository) ProjectNameExists(ctx context.Context, projectName string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.Survey{}).Where("project_name = ?", projectName).Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count surveys by project name")
	}
	return count > 0, nil
}

func (r *SurveyRepository) ListProjects(ctx context.Context) ([]ports.SurveyProject, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Survey
	if err := db.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query surveys")
	}

	items := make([]ports.SurveyProject, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapSurvey(row))
	}
	return items, nil
}

func (r *SurveyRepository) GetProject(ctx context.Context, surveyID uint64) (ports.SurveyProject, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.SurveyProject{}, err
	}

	var row model.Survey
	if err := db.Where("survey_id = ?", surveyID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SurveyProject{}, ports.ErrSurveyNotFound
		}
		return ports.SurveyProject{}, errs.Wrap(err, "query survey by id")
	}
	return mapSurvey(row), nil
}

func (r *SurveyRepository) GetProjectByName(ctx context.Context, projectName string) (ports.SurveyProject, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.SurveyProject{}, err
	}

	var row model.Survey
	if err := db.Where("project_name = ?", projectName).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SurveyProject{}, ports.ErrSurveyNotFound
		}
		return ports.SurveyProject{}, errs.Wrap(err, "query survey by project name")
	}
	return mapSurvey(row), nil
}

func (r *SurveyRepository) ListSteps(ctx context.Context, surveyID uint64) ([]ports.GenerationStep, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.GenerationStep
	if err := db.Where("survey_id = ?", surveyID).Order("step_number asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query generation steps")
	}

	steps := make([]ports.GenerationStep, 0, len(rows))
	for _, row := range rows {
		steps = append(steps, ports.GenerationStep{
			StepNumber: row.StepNumber,
			StepName:   row.StepName,
			StepResult: row.StepResult,
		})
	}
	return steps, nil
}

func (r *SurveyRepository) ListQuestions(ctx context.Context, surveyID uint64) ([]ports.SurveyQuestion, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.SurveyQuestion
	if err := db.Where("survey_id = ?", surveyID).Order("question_order asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query survey questions")
	}

	questions := make([]ports.SurveyQuestion, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, ports.SurveyQuestion{
			QuestionID:       row.QuestionID,
			QuestionOrder:    row.QuestionOrder,
			QualityAttribute: row.QualityAttribute,
			QuestionText:     row.QuestionText,
		})
	}
	return questions, nil
}

func (r *SurveyRepository) ListMetrics(ctx context.Context, surveyID uint64) ([]ports.Metric, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Metric
	if err := db.Where("survey_id = ?", surveyID).Order("metric_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query metrics")
	}

	metrics := make([]ports.Metric, 0, len(rows))
	for _, row := range rows {
		var rubric survey.Rubric
		if err := json.Unmarshal(row.ElementDescription, &rubric); err != nil {
			return nil, errs.Wrapf(err, "decode rubric for metric %d", row.MetricID)
		}
		metrics = append(metrics, ports.Metric{
			MetricID:   row.MetricID,
			SurveyID:   row.SurveyID,
			QuestionID: row.QuestionID,
			ScaleType:  survey.ScaleType(row.ScaleType),
			Rubric:     rubric,
		})
	}
	return metrics, nil
}

func (r *SurveyRepository) CountMetrics(ctx context.Context, surveyID uint64) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Metric{}).Where("survey_id = ?", surveyID).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count metrics")
	}
	return count, nil
}

func (r *SurveyRepository) CreateSurvey(ctx context.Context, input ports.SurveyCreate) (ports.SurveyProject, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.SurveyProject{}, err
	}

	exists, err := r.ProjectNameExists(ctx, input.Project.ProjectName)
	if err != nil {
		return ports.SurveyProject{}, err
	}
	if exists {
		return ports.SurveyProject{}, ports.ErrProjectNameExists
	}

	row := model.Survey{
		ProjectName:          input.Project.ProjectName,
		SoftwareDescription:  input.Project.SoftwareDescription,
		EvaluationPurpose:    input.Project.EvaluationPurpose,
		RespondentInfo:       input.Project.RespondentInfo,
		ExpectedRespondents:  input.Project.ExpectedRespondents,
		DevelopmentScale:     input.Project.DevelopmentScale,
		UserScale:            input.Project.UserScale,
		OperatingEnvironment: input.Project.OperatingEnvironment,
		IndustryField:        input.Project.IndustryField,
		SurveyItemCount:      input.Project.SurveyItemCount,
		CreatedAt:            input.Project.CreatedAt,
		UpdatedAt:            input.Project.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.SurveyProject{}, errs.Wrap(err, "insert survey")
	}

	for _, step := range input.Steps {
		stepRow := model.GenerationStep{
			SurveyID:   row.SurveyID,
			StepNumber: step.StepNumber,
			StepName:   step.StepName,
			StepResult: step.StepResult,
		}
		if err := db.Create(&stepRow).Error; err != nil {
			return ports.SurveyProject{}, errs.Wrapf(err, "insert generation step %d", step.StepNumber)
		}
	}

	for _, q := range input.Questions {
		questionRow := model.SurveyQuestion{
			SurveyID:         row.SurveyID,
			QuestionOrder:    q.QuestionOrder,
			QualityAttribute: q.QualityAttribute,
			QuestionText:     q.QuestionText,
		}
		if err := db.Create(&questionRow).Error; err != nil {
			return ports.SurveyProject{}, errs.Wrapf(err, "insert survey question %d", q.QuestionOrder)
		}
	}

	return mapSurvey(row), nil
}

func (r *SurveyRepository) DeleteSurvey(ctx context.Context, surveyID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	// Explicit child deletes; the schema does not rely on cascading constraints.
	if err := db.Where("survey_id = ?", surveyID).Delete(&model.Metric{}).Error; err != nil {
		return errs.Wrap(err, "delete metrics")
	}
	if err := db.Where("survey_id = ?", surveyID).Delete(&model.SurveyQuestion{}).Error; err != nil {
		return errs.Wrap(err, "delete survey questions")
	}
	if err := db.Where("survey_id = ?", surveyID).Delete(&model.GenerationStep{}).Error; err != nil {
		return errs.Wrap(err, "delete generation steps")
	}
	if err := db.Where("survey_id = ?", surveyID).Delete(&model.Survey{}).Error; err != nil {
		return errs.Wrap(err, "delete survey")
	}
	return nil
}

func (r *SurveyRepository) ReplaceMetrics(ctx context.Context, surveyID uint64, metrics []ports.MetricCreate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("survey_id = ?", surveyID).Delete(&model.Metric{}).Error; err != nil {
		return errs.Wrap(err, "delete existing metrics")
	}

	for _, m := range metrics {
		payload, err := json.Marshal(m.Rubric)
		if err != nil {
			return errs.Wrapf(err, "encode rubric for question %d", m.QuestionID)
		}
		row := model.Metric{
			SurveyID:           surveyID,
			QuestionID:         m.QuestionID,
			ScaleType:          string(m.ScaleType),
			ElementDescription: datatypes.JSON(payload),
		}
		if err := db.Create(&row).Error; err != nil {
			return errs.Wrapf(err, "insert metric for question %d", m.QuestionID)
		}
	}
	return nil
}

func (r *SurveyRepository) SetMetricCompleted(ctx context.Context, surveyID uint64, completed bool, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Survey{}).
		Where("survey_id = ?", surveyID).
		Updates(map[string]any{
			"metric_completed": completed,
			"updated_at":       updatedAt,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update metric completed flag")
	}
	if result.RowsAffected == 0 {
		return ports.ErrSurveyNotFound
	}
	return nil
}

func mapSurvey(row model.Survey) ports.SurveyProject {
	return ports.SurveyProject{
		SurveyID:             row.SurveyID,
		ProjectName:          row.ProjectName,
		SoftwareDescription:  row.SoftwareDescription,
		EvaluationPurpose:    row.EvaluationPurpose,
		RespondentInfo:       row.RespondentInfo,
		ExpectedRespondents:  row.ExpectedRespondents,
		DevelopmentScale:     row.DevelopmentScale,
		UserScale:            row.UserScale,
		OperatingEnvironment: row.OperatingEnvironment,
		IndustryField:        row.IndustryField,
		SurveyItemCount:      row.SurveyItemCount,
		MetricCompleted:      row.MetricCompleted,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
}

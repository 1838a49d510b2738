package model

// GenerationStep is one pipeline stage's raw output; append-only audit trail,
// one row per stage per survey.
type GenerationStep struct {
	StepID     uint64 `gorm:"column:step_id;primaryKey;autoIncrement"`
	SurveyID   uint64 `gorm:"column:survey_id;not null;index"`
	StepNumber int    `gorm:"column:step_number;not null"`
	StepName   string `gorm:"column:step_name;type:text;not null"`
	StepResult string `gorm:"column:step_result;type:text;not null"`
}

func (GenerationStep) TableName() string {
	return "generation_steps"
}

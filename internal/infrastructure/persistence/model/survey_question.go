package model

type SurveyQuestion struct {
	QuestionID       uint64 `gorm:"column:question_id;primaryKey;autoIncrement"`
	SurveyID         uint64 `gorm:"column:survey_id;not null;index:idx_question_survey_order,unique"`
	QuestionOrder    int    `gorm:"column:question_order;not null;index:idx_question_survey_order,unique"`
	QualityAttribute string `gorm:"column:quality_attribute;type:text;not null"`
	QuestionText     string `gorm:"column:question_text;type:text;not null"`
}

func (SurveyQuestion) TableName() string {
	return "survey_questions"
}

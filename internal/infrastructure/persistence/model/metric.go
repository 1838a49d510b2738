package model

import "gorm.io/datatypes"

// Metric stores one rubric per question. ElementDescription holds the ordered
// scale_interpretations list as JSON; one-metric-per-question is enforced by
// the replace flow, not a constraint.
type Metric struct {
	MetricID           uint64         `gorm:"column:metric_id;primaryKey;autoIncrement"`
	SurveyID           uint64         `gorm:"column:survey_id;not null;index"`
	QuestionID         uint64         `gorm:"column:question_id;not null;index"`
	ScaleType          string         `gorm:"column:scale_type;type:text;not null"`
	ElementDescription datatypes.JSON `gorm:"column:element_description;not null"`
}

func (Metric) TableName() string {
	return "metrics"
}

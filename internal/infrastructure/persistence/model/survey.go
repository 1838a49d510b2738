package model

// Survey is the root row; every other table hangs off survey_id and has no
// independent lifecycle.
type Survey struct {
	SurveyID             uint64 `gorm:"column:survey_id;primaryKey;autoIncrement"`
	ProjectName          string `gorm:"column:project_name;type:text;not null;uniqueIndex"`
	SoftwareDescription  string `gorm:"column:software_description;type:text;not null"`
	EvaluationPurpose    string `gorm:"column:evaluation_purpose;type:text"`
	RespondentInfo       string `gorm:"column:respondent_info;type:text"`
	ExpectedRespondents  string `gorm:"column:expected_respondents;type:text"`
	DevelopmentScale     string `gorm:"column:development_scale;type:text"`
	UserScale            string `gorm:"column:user_scale;type:text"`
	OperatingEnvironment string `gorm:"column:operating_environment;type:text"`
	IndustryField        string `gorm:"column:industry_field;type:text"`
	SurveyItemCount      int    `gorm:"column:survey_item_count;not null;default:0"`
	MetricCompleted      bool   `gorm:"column:metric_completed;not null;default:0"`
	CreatedAt            string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt            string `gorm:"column:updated_at;type:text;not null"`
}

func (Survey) TableName() string {
	return "surveys"
}

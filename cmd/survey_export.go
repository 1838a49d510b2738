package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"qsurvey/internal/bootstrap"
	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/errs"
	"qsurvey/internal/usecase/surveygen"
)

var surveyExportCmd = &cobra.Command{
	Use:   "export <survey-id>",
	Short: "Export a survey as text report or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		surveyID, err := parseSurveyID(cmd.Flags().Args()[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			format = "txt"
		}
		if format != "txt" && format != "json" {
			return fmt.Errorf("unsupported format %q (expected: txt or json)", format)
		}

		detail, err := svcs.Survey.GetSurvey(ctx, surveyID)
		if err != nil {
			logging.Error(ctx, "load survey for export failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "load survey")
		}

		payload, err := marshalSurveyExport(detail, format)
		if err != nil {
			return err
		}
		if format == "txt" {
			metrics, err := svcs.Metric.ListMetrics(ctx, surveyID)
			if err != nil {
				return errs.Wrap(err, "load metrics for export")
			}
			payload = append(payload, surveygen.MetricSection(metrics)...)
		}

		writer, closeFn, err := resolveExportWriter(cmd, outPath)
		if err != nil {
			return err
		}
		if _, err := writer.Write(payload); err != nil {
			_ = closeFn()
			return errs.Wrap(err, "write survey export output")
		}
		if err := closeFn(); err != nil {
			return errs.Wrap(err, "close survey export output")
		}
		return nil
	}),
}

type surveyExportStep struct {
	StepNumber int    `json:"step_number"`
	StepName   string `json:"step_name"`
	StepResult string `json:"step_result"`
}

type surveyExportQuestion struct {
	QuestionOrder    int    `json:"question_order"`
	QualityAttribute string `json:"quality_attribute"`
	QuestionText     string `json:"question_text"`
}

type surveyExportPayload struct {
	SurveyID        uint64                 `json:"survey_id"`
	ProjectName     string                 `json:"project_name"`
	MetricCompleted bool                   `json:"metric_completed"`
	CreatedAt       string                 `json:"created_at"`
	Steps           []surveyExportStep     `json:"steps"`
	Questions       []surveyExportQuestion `json:"questions"`
}

func marshalSurveyExport(detail surveygen.SurveyDetail, format string) ([]byte, error) {
	if format == "txt" {
		return []byte(surveygen.Report(detail)), nil
	}

	payload := surveyExportPayload{
		SurveyID:        detail.Project.SurveyID,
		ProjectName:     detail.Project.ProjectName,
		MetricCompleted: detail.Project.MetricCompleted,
		CreatedAt:       detail.Project.CreatedAt,
	}
	for _, step := range detail.Steps {
		payload.Steps = append(payload.Steps, surveyExportStep{
			StepNumber: step.StepNumber,
			StepName:   step.StepName,
			StepResult: step.StepResult,
		})
	}
	for _, q := range detail.Questions {
		payload.Questions = append(payload.Questions, surveyExportQuestion{
			QuestionOrder:    q.QuestionOrder,
			QualityAttribute: q.QualityAttribute,
			QuestionText:     q.QuestionText,
		})
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, errs.Wrap(err, "marshal survey export")
	}
	return append(raw, '\n'), nil
}

func resolveExportWriter(cmd *cobra.Command, outPath string) (io.Writer, func() error, error) {
	if strings.TrimSpace(outPath) == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(outPath)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "create export file %s", outPath)
	}
	return file, file.Close, nil
}

func init() {
	surveyExportCmd.Flags().String("format", "txt", "Export format: txt or json")
	surveyExportCmd.Flags().String("out", "", "Output file (default stdout)")
}

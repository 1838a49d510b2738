package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"qsurvey/internal/bootstrap"
	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/usecase/metricgen"
)

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Rating rubric commands",
}

var metricGenerateCmd = &cobra.Command{
	Use:   "generate <survey-id>",
	Short: "Generate per-question rating rubrics and save them",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		surveyID, err := parseSurveyID(cmd.Flags().Args()[0])
		if err != nil {
			return err
		}
		scaleRaw, _ := cmd.Flags().GetString("scale")
		replace, _ := cmd.Flags().GetBool("replace")

		scaleType, err := survey.ParseScaleType(scaleRaw)
		if err != nil {
			return err
		}

		result, err := svcs.Metric.Generate(ctx, surveyID, scaleType, func(done, total int) {
			fmt.Fprintf(cmd.OutOrStdout(), "진행 중... (%d/%d)\n", done, total)
		})
		if err != nil {
			logging.Error(ctx, "metric generation failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "generate metrics")
		}

		for _, failure := range result.Failures {
			fmt.Fprintf(cmd.OutOrStdout(), "Q%d 실패: %s\n", failure.Ordinal, failure.Reason)
		}
		if result.PartiallyComplete() {
			fmt.Fprintf(cmd.OutOrStdout(), "부분 완료: 성공 %d / 실패 %d\n",
				len(result.Successes), len(result.Failures))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "모든 질문의 메트릭 생성 완료 (%d개)\n", len(result.Successes))
		}

		if err := svcs.Metric.Save(ctx, surveyID, result, replace); err != nil {
			if errors.Is(err, metricgen.ErrMetricsExist) {
				return errors.New("metrics already exist for this survey; re-run with --replace to overwrite them")
			}
			return errs.Wrap(err, "save metrics")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "메트릭 저장 완료: survey=%d metrics=%d\n", surveyID, len(result.Successes))
		return nil
	}),
	Args: cobra.ExactArgs(1),
}

var metricExportCmd = &cobra.Command{
	Use:   "export <survey-id>",
	Short: "Export a survey's rubrics as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		surveyID, err := parseSurveyID(cmd.Flags().Args()[0])
		if err != nil {
			return err
		}
		outPath, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			format = "json"
		}
		if format != "json" && format != "jsonl" {
			return fmt.Errorf("unsupported format %q (expected: json or jsonl)", format)
		}

		metrics, err := svcs.Metric.ListMetrics(ctx, surveyID)
		if err != nil {
			return errs.Wrap(err, "list metrics")
		}
		if len(metrics) == 0 {
			return fmt.Errorf("survey %d has no metrics", surveyID)
		}

		rubrics := make([]survey.Rubric, 0, len(metrics))
		for _, metric := range metrics {
			rubrics = append(rubrics, metric.Rubric)
		}
		var payload []byte
		if format == "jsonl" {
			var b bytes.Buffer
			enc := json.NewEncoder(&b)
			for _, rubric := range rubrics {
				if err := enc.Encode(rubric); err != nil {
					return errs.Wrap(err, "marshal metrics export")
				}
			}
			payload = b.Bytes()
		} else {
			raw, err := json.MarshalIndent(rubrics, "", "  ")
			if err != nil {
				return errs.Wrap(err, "marshal metrics export")
			}
			payload = append(raw, '\n')
		}

		writer, closeFn, err := resolveExportWriter(cmd, outPath)
		if err != nil {
			return err
		}
		if _, err := writer.Write(payload); err != nil {
			_ = closeFn()
			return errs.Wrap(err, "write metrics export output")
		}
		if err := closeFn(); err != nil {
			return errs.Wrap(err, "close metrics export output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(metricCmd)
	metricCmd.AddCommand(metricGenerateCmd)
	metricCmd.AddCommand(metricExportCmd)

	metricGenerateCmd.Flags().String("scale", "likert_5", "Scale type: likert_5 or numeric_100")
	metricGenerateCmd.Flags().Bool("replace", false, "Replace existing metrics")
	metricExportCmd.Flags().String("format", "json", "Export format: json or jsonl")
	metricExportCmd.Flags().String("out", "", "Output file (default stdout)")
}

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"qsurvey/internal/bootstrap"
	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
	"qsurvey/internal/usecase/curation"
	"qsurvey/internal/usecase/surveygen"
)

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Survey design commands",
}

var surveyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate survey questions through the staged pipeline and curate them",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		input, err := surveyInputFromFlags(cmd)
		if err != nil {
			return err
		}

		result, err := svcs.Survey.Generate(ctx, input, func(stage int, name string, done bool) {
			if done {
				fmt.Fprintln(cmd.OutOrStdout(), "모든 단계가 완료되었습니다")
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d단계: %s 진행 중...\n", stage, name)
		})
		if err != nil {
			if errors.Is(err, surveygen.ErrProjectNameExists) {
				return fmt.Errorf("project name %q already exists, pick another", input.ProjectName)
			}
			logging.Error(ctx, "survey generation failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "generate survey")
		}
		if len(result.Questions) == 0 {
			return errors.New("pipeline produced no parseable questions")
		}

		interactive, _ := cmd.Flags().GetBool("interactive")
		if interactive {
			model := curation.NewCurationModel(ctx, svcs.Survey, input, result)
			program := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return errs.Wrap(err, "run curation console")
			}
			return nil
		}

		saved, err := svcs.Survey.SaveCuration(ctx, input, result, result.Questions)
		if err != nil {
			return errs.Wrap(err, "save survey")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "survey saved: id=%d questions=%d\n", saved.SurveyID, len(result.Questions))
		return nil
	}),
}

func surveyInputFromFlags(cmd *cobra.Command) (surveygen.GenerateInput, error) {
	get := func(name string) string {
		value, _ := cmd.Flags().GetString(name)
		return value
	}
	itemCount, _ := cmd.Flags().GetInt("items")
	if itemCount < 0 || itemCount > 100 {
		return surveygen.GenerateInput{}, fmt.Errorf("items must be between 0 and 100, got %d", itemCount)
	}

	input := surveygen.GenerateInput{
		ProjectName:          get("name"),
		SoftwareDescription:  get("description"),
		EvaluationPurpose:    get("purpose"),
		RespondentInfo:       get("respondents"),
		ExpectedRespondents:  get("respondent-count"),
		DevelopmentScale:     get("dev-scale"),
		UserScale:            get("user-scale"),
		OperatingEnvironment: get("environment"),
		IndustryField:        get("industry"),
		SurveyItemCount:      itemCount,
	}

	if profilePath := get("profile"); profilePath != "" {
		profile, err := surveygen.LoadProfile(profilePath)
		if err != nil {
			return surveygen.GenerateInput{}, err
		}
		if input.SurveyItemCount == 0 && profile.ItemCount > 0 {
			input.SurveyItemCount = profile.ItemCount
		}
	}
	return input, nil
}

var surveyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved survey projects",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		projects, err := svcs.Survey.ListProjects(ctx)
		if err != nil {
			return errs.Wrap(err, "list surveys")
		}
		if len(projects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no surveys saved")
			return nil
		}
		for _, p := range projects {
			metrics := " "
			if p.MetricCompleted {
				metrics = "M"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%6d [%s] %s (created %s)\n", p.SurveyID, metrics, p.ProjectName, p.CreatedAt)
		}
		return nil
	}),
}

var surveyShowCmd = &cobra.Command{
	Use:   "show <survey-id>",
	Short: "Show a survey's transcripts and questions",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		surveyID, err := parseSurveyID(cmd.Flags().Args()[0])
		if err != nil {
			return err
		}
		detail, err := svcs.Survey.GetSurvey(ctx, surveyID)
		if err != nil {
			if errors.Is(err, ports.ErrSurveyNotFound) {
				return fmt.Errorf("survey %d not found", surveyID)
			}
			return errs.Wrap(err, "load survey")
		}

		fmt.Fprint(cmd.OutOrStdout(), surveygen.Report(detail))
		return nil
	}),
}

var surveyDeleteCmd = &cobra.Command{
	Use:   "delete <survey-id>",
	Short: "Delete a survey with its steps, questions and metrics",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		surveyID, err := parseSurveyID(cmd.Flags().Args()[0])
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("deletion is permanent; re-run with --yes to confirm")
		}
		if err := svcs.Survey.DeleteSurvey(ctx, surveyID); err != nil {
			if errors.Is(err, ports.ErrSurveyNotFound) {
				return fmt.Errorf("survey %d not found", surveyID)
			}
			return errs.Wrap(err, "delete survey")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "survey %d deleted\n", surveyID)
		return nil
	}),
}

func parseSurveyID(raw string) (uint64, error) {
	surveyID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid survey id %q", raw)
	}
	return surveyID, nil
}

func init() {
	rootCmd.AddCommand(surveyCmd)
	surveyCmd.AddCommand(surveyGenerateCmd)
	surveyCmd.AddCommand(surveyListCmd)
	surveyCmd.AddCommand(surveyShowCmd)
	surveyCmd.AddCommand(surveyDeleteCmd)
	surveyCmd.AddCommand(surveyExportCmd)

	surveyGenerateCmd.Flags().String("name", "", "Unique project name (required)")
	surveyGenerateCmd.Flags().String("description", "", "Software under evaluation (required)")
	surveyGenerateCmd.Flags().String("purpose", "", "Evaluation purpose")
	surveyGenerateCmd.Flags().String("respondents", "", "Respondent profile")
	surveyGenerateCmd.Flags().String("respondent-count", "", "Expected respondent count")
	surveyGenerateCmd.Flags().String("dev-scale", "", "Development scale")
	surveyGenerateCmd.Flags().String("user-scale", "", "User scale")
	surveyGenerateCmd.Flags().String("environment", "", "Operating environment")
	surveyGenerateCmd.Flags().String("industry", "", "Industry field")
	surveyGenerateCmd.Flags().Int("items", 0, "Survey item count (0 = automatic)")
	surveyGenerateCmd.Flags().String("profile", "", "Generation profile TOML file")
	surveyGenerateCmd.Flags().Bool("interactive", false, "Review questions in the curation console before saving")

	surveyDeleteCmd.Flags().Bool("yes", false, "Confirm deletion")
}

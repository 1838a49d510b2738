package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"qsurvey/internal/bootstrap"
	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/survey"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
	"qsurvey/internal/usecase/metricgen"
	"qsurvey/internal/usecase/ragqa"
	"qsurvey/internal/usecase/surveygen"
)

type surveyAPI interface {
	Generate(ctx context.Context, in surveygen.GenerateInput, progress surveygen.ProgressFunc) (surveygen.PipelineResult, error)
	SaveCuration(ctx context.Context, in surveygen.GenerateInput, result surveygen.PipelineResult, selected []survey.Question) (ports.SurveyProject, error)
	ListProjects(ctx context.Context) ([]ports.SurveyProject, error)
	GetSurvey(ctx context.Context, surveyID uint64) (surveygen.SurveyDetail, error)
}

type metricAPI interface {
	Generate(ctx context.Context, surveyID uint64, scaleType survey.ScaleType, progress metricgen.ProgressFunc) (metricgen.FanoutResult, error)
	Save(ctx context.Context, surveyID uint64, result metricgen.FanoutResult, replace bool) error
	ListMetrics(ctx context.Context, surveyID uint64) ([]ports.Metric, error)
}

type ragAPI interface {
	Ask(ctx context.Context, question string) (ragqa.Answer, error)
}

// apiServer exposes the survey pipeline over HTTP and a websocket progress
// stream for long generation runs.
type apiServer struct {
	surveys  surveyAPI
	metrics  metricAPI
	rag      ragAPI
	upgrader websocket.Upgrader
}

func newAPIServer(surveys surveyAPI, metrics metricAPI, rag ragAPI) *apiServer {
	return &apiServer{
		surveys: surveys,
		metrics: metrics,
		rag:     rag,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *apiServer) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)

	router.Route("/api", func(r chi.Router) {
		r.Post("/surveys/generate", s.handleGenerate)
		r.Post("/surveys", s.handleSaveSurvey)
		r.Get("/surveys", s.handleListSurveys)
		r.Get("/surveys/{surveyID}", s.handleGetSurvey)
		r.Get("/surveys/{surveyID}/report", s.handleReport)
		r.Post("/surveys/{surveyID}/metrics", s.handleGenerateMetrics)
		r.Get("/surveys/{surveyID}/metrics", s.handleListMetrics)
		r.Post("/rag/ask", s.handleAsk)
	})
	router.Get("/ws/generate", s.handleGenerateWS)
	return router
}

type generateRequest struct {
	ProjectName          string `json:"project_name"`
	SoftwareDescription  string `json:"software_description"`
	EvaluationPurpose    string `json:"evaluation_purpose"`
	RespondentInfo       string `json:"respondent_info"`
	ExpectedRespondents  string `json:"expected_respondents"`
	DevelopmentScale     string `json:"development_scale"`
	UserScale            string `json:"user_scale"`
	OperatingEnvironment string `json:"operating_environment"`
	IndustryField        string `json:"industry_field"`
	SurveyItemCount      int    `json:"survey_item_count"`
}

func (r generateRequest) toInput() surveygen.GenerateInput {
	return surveygen.GenerateInput{
		ProjectName:          r.ProjectName,
		SoftwareDescription:  r.SoftwareDescription,
		EvaluationPurpose:    r.EvaluationPurpose,
		RespondentInfo:       r.RespondentInfo,
		ExpectedRespondents:  r.ExpectedRespondents,
		DevelopmentScale:     r.DevelopmentScale,
		UserScale:            r.UserScale,
		OperatingEnvironment: r.OperatingEnvironment,
		IndustryField:        r.IndustryField,
		SurveyItemCount:      r.SurveyItemCount,
	}
}

type questionPayload struct {
	Ordinal   int    `json:"ordinal"`
	Attribute string `json:"attribute"`
	Text      string `json:"text"`
}

type generateResponse struct {
	DomainAnalysis   string            `json:"domain_analysis"`
	Selection        string            `json:"selection"`
	InitialQuestions string            `json:"initial_questions"`
	RefinementResult string            `json:"refinement_result"`
	FinalQuestions   string            `json:"final_questions"`
	ConsolidationRan bool              `json:"consolidation_ran"`
	Questions        []questionPayload `json:"questions"`
}

func toGenerateResponse(result surveygen.PipelineResult) generateResponse {
	resp := generateResponse{
		DomainAnalysis:   result.DomainAnalysis,
		Selection:        result.Selection,
		InitialQuestions: result.InitialQuestions,
		RefinementResult: result.RefinementResult,
		FinalQuestions:   result.FinalQuestions,
		ConsolidationRan: result.ConsolidationRan,
	}
	for _, q := range result.Questions {
		resp.Questions = append(resp.Questions, questionPayload{
			Ordinal:   q.Ordinal,
			Attribute: q.Attribute,
			Text:      q.Text,
		})
	}
	return resp
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.surveys.Generate(r.Context(), req.toInput(), nil)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGenerateResponse(result))
}

type saveSurveyRequest struct {
	generateRequest
	DomainAnalysis   string            `json:"domain_analysis"`
	Selection        string            `json:"selection"`
	InitialQuestions string            `json:"initial_questions"`
	RefinementResult string            `json:"refinement_result"`
	Questions        []questionPayload `json:"questions"`
}

func (s *apiServer) handleSaveSurvey(w http.ResponseWriter, r *http.Request) {
	var req saveSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := surveygen.PipelineResult{
		DomainAnalysis:   req.DomainAnalysis,
		Selection:        req.Selection,
		InitialQuestions: req.InitialQuestions,
		RefinementResult: req.RefinementResult,
	}
	selected := make([]survey.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		selected = append(selected, survey.Question{Ordinal: q.Ordinal, Attribute: q.Attribute, Text: q.Text})
	}

	saved, err := s.surveys.SaveCuration(r.Context(), req.toInput(), result, selected)
	if err != nil {
		switch {
		case errors.Is(err, surveygen.ErrProjectNameExists):
			writeError(w, http.StatusConflict, "project name already exists")
		case errors.Is(err, surveygen.ErrNoQuestionsSelected):
			writeError(w, http.StatusUnprocessableEntity, "at least one question is required")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"survey_id":    saved.SurveyID,
		"project_name": saved.ProjectName,
	})
}

func (s *apiServer) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	projects, err := s.surveys.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *apiServer) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	detail, ok := s.loadSurvey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	detail, ok := s.loadSurvey(w, r)
	if !ok {
		return
	}
	metrics, err := s.metrics.ListMetrics(r.Context(), detail.Project.SurveyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(surveygen.Report(detail) + surveygen.MetricSection(metrics)))
}

func (s *apiServer) loadSurvey(w http.ResponseWriter, r *http.Request) (surveygen.SurveyDetail, bool) {
	surveyID, err := parseSurveyID(chi.URLParam(r, "surveyID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return surveygen.SurveyDetail{}, false
	}
	detail, err := s.surveys.GetSurvey(r.Context(), surveyID)
	if err != nil {
		if errors.Is(err, ports.ErrSurveyNotFound) {
			writeError(w, http.StatusNotFound, "survey not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return surveygen.SurveyDetail{}, false
	}
	return detail, true
}

type metricsResponse struct {
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Partial   bool                    `json:"partial"`
	Failures  []metricgen.ItemFailure `json:"failures,omitempty"`
}

func (s *apiServer) handleGenerateMetrics(w http.ResponseWriter, r *http.Request) {
	surveyID, err := parseSurveyID(chi.URLParam(r, "surveyID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scaleType, err := survey.ParseScaleType(r.URL.Query().Get("scale"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	replace := r.URL.Query().Get("replace") == "true"

	result, err := s.metrics.Generate(r.Context(), surveyID, scaleType, nil)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrSurveyNotFound):
			writeError(w, http.StatusNotFound, "survey not found")
		case errors.Is(err, metricgen.ErrNoQuestions):
			writeError(w, http.StatusUnprocessableEntity, "survey has no questions")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := s.metrics.Save(r.Context(), surveyID, result, replace); err != nil {
		switch {
		case errors.Is(err, metricgen.ErrMetricsExist):
			writeError(w, http.StatusConflict, "metrics already exist; retry with replace=true")
		case errors.Is(err, metricgen.ErrNoSuccesses):
			writeError(w, http.StatusUnprocessableEntity, "no rubric was generated successfully")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, metricsResponse{
		Succeeded: len(result.Successes),
		Failed:    len(result.Failures),
		Partial:   result.PartiallyComplete(),
		Failures:  result.Failures,
	})
}

func (s *apiServer) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	surveyID, err := parseSurveyID(chi.URLParam(r, "surveyID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics, err := s.metrics.ListMetrics(r.Context(), surveyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *apiServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := s.rag.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, ragqa.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type wsFrame struct {
	Type   string `json:"type"`
	Stage  int    `json:"stage,omitempty"`
	Label  string `json:"label,omitempty"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// handleGenerateWS runs one generation per connection: the client sends a
// generateRequest, the server streams stage frames and closes with either a
// result frame or an error frame.
func (s *apiServer) handleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req generateRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsFrame{Type: "error", Error: "invalid generate request"})
		return
	}

	result, err := s.surveys.Generate(r.Context(), req.toInput(), func(stage int, label string, done bool) {
		if done {
			return
		}
		_ = conn.WriteJSON(wsFrame{Type: "stage", Stage: stage, Label: label})
	})
	if err != nil {
		_ = conn.WriteJSON(wsFrame{Type: "error", Error: err.Error()})
		return
	}
	_ = conn.WriteJSON(wsFrame{Type: "result", Result: toGenerateResponse(result)})
}

func writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, surveygen.ErrProjectNameExists):
		writeError(w, http.StatusConflict, "project name already exists")
	case errors.Is(err, surveygen.ErrProjectNameRequired),
		errors.Is(err, surveygen.ErrDescriptionRequired):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the survey API over HTTP",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		server := &http.Server{
			Addr:              addr,
			Handler:           newAPIServer(svcs.Survey, svcs.Metric, svcs.RAG).routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		logging.Info(ctx, "http server listening", slog.String("addr", addr))
		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errs.Wrap(err, "serve http")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address")
}

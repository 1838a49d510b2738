package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"qsurvey/internal/bootstrap/config"
	"qsurvey/internal/bootstrap/database"
	"qsurvey/internal/bootstrap/logging"
	cacheinfra "qsurvey/internal/infrastructure/cache"
	"qsurvey/internal/infrastructure/llm"
	"qsurvey/internal/infrastructure/persistence/repository"
	"qsurvey/internal/infrastructure/persistence/uow"
	"qsurvey/internal/infrastructure/search"
	"qsurvey/internal/ports"
	"qsurvey/internal/usecase/metricgen"
	"qsurvey/internal/usecase/ragqa"
	"qsurvey/internal/usecase/surveygen"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			repository.NewSurveyRepository,
			fx.As(new(ports.SurveyRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewDBCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideLLMClient),
	fx.Provide(provideVectorIndex),
	fx.Provide(providePipeline),
	fx.Provide(surveygen.NewService),
	fx.Provide(provideFanout),
	fx.Provide(metricgen.NewService),
	fx.Provide(provideRAGService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

type llmClients struct {
	fx.Out

	Chat     ports.ChatClient
	Embedder ports.EmbeddingClient
}

func provideLLMClient(cfg config.Config) (llmClients, error) {
	client, err := llm.NewClient(cfg.OpenAI)
	if err != nil {
		return llmClients{}, err
	}
	return llmClients{Chat: client, Embedder: client}, nil
}

func provideVectorIndex(lc fx.Lifecycle, cfg config.Config) ports.VectorIndex {
	index := search.NewRedisIndex(cfg.Search)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return index.Close()
		},
	})
	return index
}

func providePipeline(cfg config.Config, chat ports.ChatClient) (*surveygen.Pipeline, error) {
	temps := stageTemperatures(cfg.Pipeline)
	if cfg.Pipeline.ProfileFile != "" {
		profile, err := surveygen.LoadProfile(cfg.Pipeline.ProfileFile)
		if err != nil {
			return nil, err
		}
		temps = profile.Apply(temps)
	}
	return surveygen.NewPipeline(chat, temps), nil
}

func stageTemperatures(cfg config.PipelineConfig) surveygen.StageTemperatures {
	return surveygen.StageTemperatures{
		Analysis:    cfg.AnalysisTemp,
		Selection:   cfg.SelectionTemp,
		Generation:  cfg.GenerationTemp,
		Refinement:  cfg.RefinementTemp,
		Consolidate: cfg.ConsolidateTemp,
	}
}

func provideFanout(cfg config.Config, chat ports.ChatClient) *metricgen.Fanout {
	return metricgen.NewFanout(chat, cfg.Metrics.Workers, cfg.Metrics.Temperature)
}

func provideRAGService(cfg config.Config, chat ports.ChatClient, embedder ports.EmbeddingClient, index ports.VectorIndex, cache ports.Cache) (*ragqa.Service, error) {
	store, err := ragqa.NewDocumentStore(cfg.RAG.DocumentsDir)
	if err != nil {
		return nil, err
	}
	return ragqa.NewService(store, chat, embedder, index, cache, cfg.RAG.ChunkSize, cfg.Search.TopK), nil
}

package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Search   SearchConfig   `mapstructure:"search"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// OpenAIConfig targets either a plain OpenAI-compatible endpoint (BaseURL) or an
// Azure OpenAI deployment (AzureEndpoint + APIVersion). Azure wins when both are set.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	AzureEndpoint  string `mapstructure:"azure_endpoint"`
	APIVersion     string `mapstructure:"api_version"`
	ChatModel      string `mapstructure:"chat_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type SearchConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	IndexName     string `mapstructure:"index_name"`
	VectorDim     int    `mapstructure:"vector_dim"`
	TopK          int    `mapstructure:"top_k"`
}

type RAGConfig struct {
	DocumentsDir string `mapstructure:"documents_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
}

// PipelineConfig carries one sampling temperature per generation stage.
// Stage numbering follows the survey pipeline: 1 analysis, 2 attribute
// selection, 3 question generation, 4 refinement audit, 5 consolidation.
type PipelineConfig struct {
	ProfileFile     string  `mapstructure:"profile_file"`
	AnalysisTemp    float64 `mapstructure:"analysis_temp"`
	SelectionTemp   float64 `mapstructure:"selection_temp"`
	GenerationTemp  float64 `mapstructure:"generation_temp"`
	RefinementTemp  float64 `mapstructure:"refinement_temp"`
	ConsolidateTemp float64 `mapstructure:"consolidate_temp"`
}

type MetricsConfig struct {
	Workers     int     `mapstructure:"workers"`
	Temperature float64 `mapstructure:"temperature"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.Metrics.Workers <= 0 {
		return Config{}, errors.New("metrics.workers must be positive")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("chat_model", cfg.OpenAI.ChatModel),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "qsurvey")
	v.SetDefault("app.env", "local")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".qsurvey/state/qsurvey.sqlite")

	v.SetDefault("openai.api_version", "2024-02-15-preview")
	v.SetDefault("openai.chat_model", "gpt-4.1-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")

	v.SetDefault("search.redis_addr", "localhost:6379")
	v.SetDefault("search.index_name", "iso25010-index")
	v.SetDefault("search.vector_dim", 1536)
	v.SetDefault("search.top_k", 3)

	v.SetDefault("rag.documents_dir", ".qsurvey/docs")
	v.SetDefault("rag.chunk_size", 2000)

	// Exploratory for initial generation, conservative for audit passes.
	v.SetDefault("pipeline.analysis_temp", 0.5)
	v.SetDefault("pipeline.selection_temp", 0.5)
	v.SetDefault("pipeline.generation_temp", 0.7)
	v.SetDefault("pipeline.refinement_temp", 0.3)
	v.SetDefault("pipeline.consolidate_temp", 0.3)

	v.SetDefault("metrics.workers", 5)
	v.SetDefault("metrics.temperature", 0.3)
}

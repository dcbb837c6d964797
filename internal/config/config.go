// Package config loads layered application configuration: defaults,
// optional .env file, optional YAML config file, then environment
// variables, in increasing priority, mirroring the teacher repo's
// viper/godotenv wiring.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration (spec §6 "External
// Interfaces / Configuration").
type Config struct {
	Database       Database       `mapstructure:"database"`
	AI             AI             `mapstructure:"ai"`
	Search         Search         `mapstructure:"search"`
	Graph          Graph          `mapstructure:"graph"`
	Recommendation Recommendation `mapstructure:"recommendation"`
	Worker         Worker         `mapstructure:"worker"`
	Ingestion      Ingestion      `mapstructure:"ingestion"`
	Fetch          Fetch          `mapstructure:"fetch"`
	Quality        Quality        `mapstructure:"quality"`
	Logging        Logging        `mapstructure:"logging"`
}

// Database holds storage-backend configuration. The scheme of URL
// selects the backend: "postgres"/"postgresql" for the pgvector-backed
// relational store, anything else (including a bare file path) for the
// embedded SQLite store.
type Database struct {
	URL string `mapstructure:"url"`
}

// AI holds the embedding dimension and the AI adapter's memoization
// cache size (spec §4.3).
type AI struct {
	EmbeddingDimension int           `mapstructure:"embedding_dimension"`
	EmbeddingCacheSize int           `mapstructure:"embedding_cache_size"`
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	GeminiModel        string        `mapstructure:"gemini_model"`
	GeminiEmbedModel   string        `mapstructure:"gemini_embedding_model"`
	StickyFailureTTL   time.Duration `mapstructure:"sticky_failure_ttl"`
}

// Search holds hybrid-search fusion configuration (spec §4.8).
type Search struct {
	DefaultHybridWeight float64       `mapstructure:"default_hybrid_weight"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// Graph holds multi-layer graph fusion weights and thresholds (spec
// §4.9).
type Graph struct {
	WeightVector          float64 `mapstructure:"weight_vector"`
	WeightTags            float64 `mapstructure:"weight_tags"`
	WeightClassification  float64 `mapstructure:"weight_classification"`
	VectorMinSimThreshold float64 `mapstructure:"vector_min_sim_threshold"`
	DefaultNeighbors      int     `mapstructure:"default_neighbors"`
	OverviewMaxEdges      int     `mapstructure:"overview_max_edges"`
}

// Recommendation holds recommendation-engine candidate sourcing
// configuration (spec §4.10).
type Recommendation struct {
	ProfileSize          int `mapstructure:"profile_size"`
	KeywordCount         int `mapstructure:"keyword_count"`
	CandidatesPerKeyword int `mapstructure:"candidates_per_keyword"`
}

// Worker holds the bounded worker pool size backing the event bus and
// scheduler (spec §4.11).
type Worker struct {
	PoolSize int `mapstructure:"pool_size"`
}

// Ingestion holds pipeline retry policy (spec §4.4).
type Ingestion struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// Fetch holds content-extractor network policy (spec §4.2).
type Fetch struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Quality holds the five quality-dimension weights, which must sum to
// 1 (spec §3 "Quality", §6 "QUALITY_WEIGHTS").
type Quality struct {
	Weights [5]float64 `mapstructure:"-"`
	raw     string
}

// Logging holds the ambient logger configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads configuration from defaults, an optional .env file, an
// optional YAML config file, and environment variables, in that order
// of increasing priority.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("neo-alexandria")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := parseQualityWeights(cfg, viper.GetString("quality.weights")); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it with defaults if
// it has not yet been loaded.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the global configuration. Used by tests that need a
// fresh Load with different environment variables.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("database.url", "neo-alexandria.db")

	viper.SetDefault("ai.embedding_dimension", 768)
	viper.SetDefault("ai.embedding_cache_size", 1000)
	viper.SetDefault("ai.gemini_model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini_embedding_model", "text-embedding-004")
	viper.SetDefault("ai.sticky_failure_ttl", "5m")

	viper.SetDefault("search.default_hybrid_weight", 0.5)
	viper.SetDefault("search.timeout", "10s")

	viper.SetDefault("graph.weight_vector", 0.6)
	viper.SetDefault("graph.weight_tags", 0.3)
	viper.SetDefault("graph.weight_classification", 0.1)
	viper.SetDefault("graph.vector_min_sim_threshold", 0.85)
	viper.SetDefault("graph.default_neighbors", 7)
	viper.SetDefault("graph.overview_max_edges", 50)

	viper.SetDefault("recommendation.profile_size", 50)
	viper.SetDefault("recommendation.keyword_count", 5)
	viper.SetDefault("recommendation.candidates_per_keyword", 10)

	viper.SetDefault("worker.pool_size", 4)

	viper.SetDefault("ingestion.max_retries", 5)

	viper.SetDefault("fetch.timeout", "15s")

	viper.SetDefault("quality.weights", "0.30,0.25,0.20,0.15,0.10")

	viper.SetDefault("logging.level", "info")
}

// bindEnvKeys binds the spec's documented SCREAMING_SNAKE_CASE
// environment variable names directly, since they don't follow the
// nested dot-path naming AutomaticEnv would otherwise derive.
func bindEnvKeys() {
	bind := map[string]string{
		"database.url":                        "DATABASE_URL",
		"ai.embedding_dimension":               "EMBEDDING_DIMENSION",
		"search.default_hybrid_weight":         "DEFAULT_HYBRID_SEARCH_WEIGHT",
		"ai.embedding_cache_size":              "EMBEDDING_CACHE_SIZE",
		"graph.weight_vector":                  "GRAPH_WEIGHT_VECTOR",
		"graph.weight_tags":                    "GRAPH_WEIGHT_TAGS",
		"graph.weight_classification":          "GRAPH_WEIGHT_CLASSIFICATION",
		"graph.vector_min_sim_threshold":       "GRAPH_VECTOR_MIN_SIM_THRESHOLD",
		"graph.default_neighbors":              "DEFAULT_GRAPH_NEIGHBORS",
		"graph.overview_max_edges":             "GRAPH_OVERVIEW_MAX_EDGES",
		"recommendation.profile_size":          "RECOMMENDATION_PROFILE_SIZE",
		"recommendation.keyword_count":         "RECOMMENDATION_KEYWORD_COUNT",
		"recommendation.candidates_per_keyword": "RECOMMENDATION_CANDIDATES_PER_KEYWORD",
		"search.timeout":                       "SEARCH_TIMEOUT",
		"worker.pool_size":                     "WORKER_POOL_SIZE",
		"ingestion.max_retries":                "INGESTION_MAX_RETRIES",
		"fetch.timeout":                        "FETCH_TIMEOUT",
		"quality.weights":                      "QUALITY_WEIGHTS",
		"ai.gemini_api_key":                    "GEMINI_API_KEY",
		"logging.level":                        "LOG_LEVEL",
	}
	for key, env := range bind {
		if v := os.Getenv(env); v != "" {
			viper.Set(key, v)
		}
	}
}

// parseQualityWeights parses the comma-separated QUALITY_WEIGHTS
// value into the fixed [accuracy, completeness, consistency,
// timeliness, relevance] array, validating it sums to 1 (spec §6).
func parseQualityWeights(cfg *Config, raw string) error {
	parts := strings.Split(raw, ",")
	if len(parts) != 5 {
		return fmt.Errorf("quality weights must have exactly 5 comma-separated values, got %d", len(parts))
	}
	var sum float64
	var weights [5]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid quality weight %q: %w", p, err)
		}
		weights[i] = f
		sum += f
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("quality weights must sum to 1, got %f", sum)
	}
	cfg.Quality.Weights = weights
	cfg.Quality.raw = raw
	return nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Database.URL == "" {
		errs = append(errs, "database.url (DATABASE_URL) is required")
	}
	if cfg.AI.EmbeddingDimension <= 0 {
		errs = append(errs, "ai.embedding_dimension (EMBEDDING_DIMENSION) must be positive")
	}
	if cfg.Search.DefaultHybridWeight < 0 || cfg.Search.DefaultHybridWeight > 1 {
		errs = append(errs, "search.default_hybrid_weight (DEFAULT_HYBRID_SEARCH_WEIGHT) must be in [0,1]")
	}
	if cfg.Worker.PoolSize <= 0 {
		errs = append(errs, "worker.pool_size (WORKER_POOL_SIZE) must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

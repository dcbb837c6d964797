package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/aiadapter"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/authority"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/classify"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/config"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/discovery/provider"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/eventbus"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/graph"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/ingest"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/persistence"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/quality"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/recommend"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/scheduler"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/search"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/vectorstore"
)

// app bundles every wired collaborator a subcommand needs. Each
// subcommand builds one via newApp and closes it via app.Close before
// returning, the way the teacher's commands open a *store.Store
// per-invocation rather than holding process-wide globals.
type app struct {
	cfg   *config.Config
	db    persistence.Database
	ai    *aiadapter.Adapter
	bus   *eventbus.Bus
	sched *scheduler.Scheduler

	ingestor  *ingest.Ingestor
	search    *search.Engine
	graph     *graph.Store
	recommend *recommend.Engine
}

// newApp loads configuration and wires every collaborator against the
// configured storage backend. Callers must call Close when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger.SetLevel(logLevel(cfg.Logging.Level))

	db, err := persistence.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ai := aiadapter.New(geminiFactory(cfg), aiadapter.Config{
		EmbeddingDimension: cfg.AI.EmbeddingDimension,
		CacheSize:          cfg.AI.EmbeddingCacheSize,
		StickyFailureTTL:   cfg.AI.StickyFailureTTL,
	})

	bus := eventbus.New(cfg.Worker.PoolSize)
	sched := scheduler.New(&scheduler.Config{Concurrency: cfg.Worker.PoolSize})

	rules := classify.NewRuleClassifier(nil, classify.DefaultTau)
	scorer := quality.NewScorer(core.QualityWeights{
		Accuracy: cfg.Quality.Weights[0], Completeness: cfg.Quality.Weights[1],
		Consistency: cfg.Quality.Weights[2], Timeliness: cfg.Quality.Weights[3],
		Relevance: cfg.Quality.Weights[4],
	})

	seedSubjects, err := db.Subjects().TopByUsage(ctx, 10000)
	if err != nil {
		return nil, fmt.Errorf("loading subjects: %w", err)
	}
	subjects := authority.NewRegistry(seedSubjects)

	ingestCfg := ingest.DefaultConfig()
	ingestor := ingest.New(ingestCfg, db, ai, subjects, rules, scorer, bus, sched)

	searchEngine := newSearchEngine(db, ai)

	graphStore := graph.NewStore(graph.NewBuilder(), graph.PersistenceSource{DB: db})
	if err := graphStore.Rebuild(ctx); err != nil {
		logger.Warn("initial graph rebuild failed", "error", err.Error())
	}
	graphStore.Subscribe(bus)

	providers := []provider.Provider{provider.NewDuckDuckGoProvider()}
	recommendEngine := recommend.NewEngine(
		recommend.PersistenceLibrary{DB: db},
		recommend.EmbedderAdapter{AI: ai},
		providers,
	)

	return &app{
		cfg: cfg, db: db, ai: ai, bus: bus, sched: sched,
		ingestor: ingestor, search: searchEngine, graph: graphStore, recommend: recommendEngine,
	}, nil
}

// newSearchEngine selects the semantic branch implementation by the
// concrete Database type: pgvector-backed ANN search for Postgres,
// brute-force cosine scan for the embedded SQLite store (spec §6's
// two storage backends have no shared ANN index).
func newSearchEngine(db persistence.Database, ai *aiadapter.Adapter) *search.Engine {
	engine := &search.Engine{
		Lexical:  search.LexicalAdapter{DB: db},
		Embedder: search.EmbedderAdapter{AI: ai},
		Lookup:   search.ResourceLookupAdapter{DB: db},
	}
	if pg, ok := db.(*persistence.PostgresDB); ok {
		engine.Semantic = search.PgVectorSemantic{Store: vectorstore.NewPgVectorAdapter(pg.SQLDB())}
	} else {
		engine.Semantic = search.BruteForceSemantic{DB: db}
	}
	return engine
}

func (a *app) Close() error {
	a.sched.Stop()
	return a.db.Close()
}

func geminiFactory(cfg *config.Config) aiadapter.Factory {
	return func() (aiadapter.Backend, error) {
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not configured")
		}
		return aiadapter.NewGeminiBackend(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel, cfg.AI.GeminiEmbedModel)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

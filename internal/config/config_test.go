package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("QUALITY_WEIGHTS")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.AI.EmbeddingDimension != 768 {
		t.Errorf("Expected EmbeddingDimension 768, got %d", cfg.AI.EmbeddingDimension)
	}
	if cfg.Search.DefaultHybridWeight != 0.5 {
		t.Errorf("Expected DefaultHybridWeight 0.5, got %f", cfg.Search.DefaultHybridWeight)
	}
	if cfg.Graph.DefaultNeighbors != 7 {
		t.Errorf("Expected DefaultNeighbors 7, got %d", cfg.Graph.DefaultNeighbors)
	}
	if cfg.Graph.OverviewMaxEdges != 50 {
		t.Errorf("Expected OverviewMaxEdges 50, got %d", cfg.Graph.OverviewMaxEdges)
	}
	if cfg.Ingestion.MaxRetries != 5 {
		t.Errorf("Expected MaxRetries 5, got %d", cfg.Ingestion.MaxRetries)
	}
	want := [5]float64{0.30, 0.25, 0.20, 0.15, 0.10}
	if cfg.Quality.Weights != want {
		t.Errorf("Expected quality weights %v, got %v", want, cfg.Quality.Weights)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	Reset()
	os.Setenv("DATABASE_URL", "postgres://localhost/neo")
	os.Setenv("WORKER_POOL_SIZE", "8")
	defer os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("WORKER_POOL_SIZE")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/neo" {
		t.Errorf("Expected DATABASE_URL override, got %s", cfg.Database.URL)
	}
	if cfg.Worker.PoolSize != 8 {
		t.Errorf("Expected WORKER_POOL_SIZE 8, got %d", cfg.Worker.PoolSize)
	}
}

func TestQualityWeightsMustSumToOne(t *testing.T) {
	Reset()
	os.Setenv("QUALITY_WEIGHTS", "0.5,0.5,0.5,0.5,0.5")
	defer os.Unsetenv("QUALITY_WEIGHTS")

	if _, err := Load(""); err == nil {
		t.Error("Expected error for quality weights not summing to 1, got nil")
	}
}

func TestQualityWeightsWrongCount(t *testing.T) {
	Reset()
	os.Setenv("QUALITY_WEIGHTS", "0.5,0.5")
	defer os.Unsetenv("QUALITY_WEIGHTS")

	if _, err := Load(""); err == nil {
		t.Error("Expected error for wrong quality weight count, got nil")
	}
}

func TestLoadIsMemoized(t *testing.T) {
	Reset()
	first, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	second, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if first != second {
		t.Error("Expected Load to return the same memoized Config pointer")
	}
	Reset()
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("QA_TOP_K", "")
	t.Setenv("QA_RECALL_SIZE", "")
	t.Setenv("QA_FUSION_RRF_K", "")
	t.Setenv("QA_RERANK_POOL", "")
	t.Setenv("QA_PERSON_BOOST", "")
	t.Setenv("MESSAGES_REFRESH_SEC", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QATopK != 10 {
		t.Fatalf("expected default top k 10, got %d", cfg.QATopK)
	}
	if cfg.QARecallSize != 100 {
		t.Fatalf("expected default recall size 100, got %d", cfg.QARecallSize)
	}
	if cfg.QAFusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.QAFusionRRFK)
	}
	if cfg.QARerankPool != 60 {
		t.Fatalf("expected default rerank pool 60, got %d", cfg.QARerankPool)
	}
	if cfg.PersonBoost != 1.15 {
		t.Fatalf("expected default person boost 1.15, got %v", cfg.PersonBoost)
	}
	if cfg.RefreshIntervalSec != 600 {
		t.Fatalf("expected default refresh interval 600, got %d", cfg.RefreshIntervalSec)
	}
	if cfg.EmbedDim != 384 {
		t.Fatalf("expected default embed dim 384, got %d", cfg.EmbedDim)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("QA_TOP_K", "7")
	t.Setenv("QA_FUSION_RRF_K", "75")
	t.Setenv("QA_PERSON_BOOST", "1.4")
	t.Setenv("MESSAGES_URL_BASE", "http://messages.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QATopK != 7 {
		t.Fatalf("expected top k override 7, got %d", cfg.QATopK)
	}
	if cfg.QAFusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.QAFusionRRFK)
	}
	if cfg.PersonBoost != 1.4 {
		t.Fatalf("expected person boost 1.4, got %v", cfg.PersonBoost)
	}
	if cfg.MessagesBaseURL != "http://messages.internal" {
		t.Fatalf("expected messages base override, got %q", cfg.MessagesBaseURL)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "qa_top_k: 3\nmessages_base_url: http://from-yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("QA_TOP_K", "")
	t.Setenv("MESSAGES_URL_BASE", "http://from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QATopK != 3 {
		t.Fatalf("expected yaml top k 3, got %d", cfg.QATopK)
	}
	if cfg.MessagesBaseURL != "http://from-env" {
		t.Fatalf("expected env to win over yaml, got %q", cfg.MessagesBaseURL)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("qa_top_k: [broken"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

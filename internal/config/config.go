package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	MessagesBaseURL    string `yaml:"messages_base_url"`
	RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
	FetchTimeoutSec    int    `yaml:"fetch_timeout_sec"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`
	EmbedDim         int    `yaml:"embed_dim"`

	RerankAPIKeyEnv string `yaml:"rerank_api_key_env"`
	RerankModel     string `yaml:"rerank_model"`

	QATopK       int     `yaml:"qa_top_k"`
	QARecallSize int     `yaml:"qa_recall_size"`
	QAFusionRRFK int     `yaml:"qa_fusion_rrf_k"`
	QARerankPool int     `yaml:"qa_rerank_pool"`
	PersonBoost  float64 `yaml:"person_boost"`

	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight"`
	APIQueueWaitMS    int     `yaml:"api_queue_wait_ms"`
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_PATH, and environment variables in increasing precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		MessagesBaseURL:    "https://november7-730026606190.europe-west1.run.app",
		RefreshIntervalSec: 600,
		FetchTimeoutSec:    30,

		OllamaURL:        "http://localhost:11434",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "all-minilm",
		EmbedDim:         384,

		RerankAPIKeyEnv: "COHERE_API_KEY",
		RerankModel:     "rerank-english-v3.0",

		QATopK:       10,
		QARecallSize: 100,
		QAFusionRRFK: 60,
		QARerankPool: 60,
		PersonBoost:  1.15,

		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		APIMaxInFlight:    64,
		APIQueueWaitMS:    200,
	}
}

func applyEnv(cfg *Config) {
	cfg.APIPort = envString("API_PORT", cfg.APIPort)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	cfg.MessagesBaseURL = envString("MESSAGES_URL_BASE", cfg.MessagesBaseURL)
	cfg.RefreshIntervalSec = envInt("MESSAGES_REFRESH_SEC", cfg.RefreshIntervalSec)
	cfg.FetchTimeoutSec = envInt("MESSAGES_FETCH_TIMEOUT_SEC", cfg.FetchTimeoutSec)

	cfg.OllamaURL = envString("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaGenModel = envString("OLLAMA_GEN_MODEL", cfg.OllamaGenModel)
	cfg.OllamaEmbedModel = envString("OLLAMA_EMBED_MODEL", cfg.OllamaEmbedModel)
	cfg.EmbedDim = envInt("EMBED_DIM", cfg.EmbedDim)

	cfg.RerankAPIKeyEnv = envString("RERANK_API_KEY_ENV", cfg.RerankAPIKeyEnv)
	cfg.RerankModel = envString("RERANK_MODEL", cfg.RerankModel)

	cfg.QATopK = envInt("QA_TOP_K", cfg.QATopK)
	cfg.QARecallSize = envInt("QA_RECALL_SIZE", cfg.QARecallSize)
	cfg.QAFusionRRFK = envInt("QA_FUSION_RRF_K", cfg.QAFusionRRFK)
	cfg.QARerankPool = envInt("QA_RERANK_POOL", cfg.QARerankPool)
	cfg.PersonBoost = envFloat("QA_PERSON_BOOST", cfg.PersonBoost)

	cfg.APIRateLimitRPS = envFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = envInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = envInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)
	cfg.APIQueueWaitMS = envInt("API_QUEUE_WAIT_MS", cfg.APIQueueWaitMS)
}

func envString(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

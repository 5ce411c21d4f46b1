package bootstrap

import (
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/config"
	"github.com/varad-suryavanshi/member-qa/internal/core/ports"
	"github.com/varad-suryavanshi/member-qa/internal/core/usecase"
	"github.com/varad-suryavanshi/member-qa/internal/infrastructure/corpus"
	"github.com/varad-suryavanshi/member-qa/internal/infrastructure/llm/ollama"
	"github.com/varad-suryavanshi/member-qa/internal/infrastructure/rerank/cohere"
	"github.com/varad-suryavanshi/member-qa/internal/infrastructure/resilience"
	"github.com/varad-suryavanshi/member-qa/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Corpus *corpus.Store
	AskUC  ports.QuestionService
}

func New(cfg config.Config) *App {
	serverMetrics := metrics.NewHTTPServerMetrics("api")

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	fetcher := corpus.NewFetcher(cfg.MessagesBaseURL, time.Duration(cfg.FetchTimeoutSec)*time.Second)
	store := corpus.NewStore(fetcher, embedder, corpus.StoreConfig{
		RefreshInterval: time.Duration(cfg.RefreshIntervalSec) * time.Second,
		EmbedDim:        cfg.EmbedDim,
		PersonBoost:     cfg.PersonBoost,
	}, serverMetrics)

	reranker := cohere.New(cfg.RerankAPIKeyEnv, cfg.RerankModel, "")

	askUC := usecase.NewAskUseCase(store, reranker, generator, usecase.SearchConfig{
		TopK:       cfg.QATopK,
		RecallSize: cfg.QARecallSize,
		RRFK:       cfg.QAFusionRRFK,
		RerankPool: cfg.QARerankPool,
	})
	askUC.SetRerankFallbackHook(serverMetrics.RecordRerankFallback)

	return &App{
		Config:  cfg,
		Metrics: serverMetrics,
		Corpus:  store,
		AskUC:   askUC,
	}
}

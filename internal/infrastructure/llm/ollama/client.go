package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
	"github.com/varad-suryavanshi/member-qa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Embedder serves sentence embeddings over the Ollama embed API.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator synthesizes grounded answers. Any synthesis failure becomes the
// fixed fallback sentence with a reason tag, never an error to the caller.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, evidence []domain.ScoredMessage) (string, error) {
	raw, err := g.client.generateText(ctx, buildAnswerPrompt(question, evidence))
	if err != nil {
		slog.Warn("synthesis_failed", "error", err)
		return fallbackWithReason("model error"), nil
	}

	answer := postprocessAnswer(raw)
	if answer == "" {
		return fallbackWithReason("empty model output"), nil
	}
	return answer, nil
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"system": systemPrompt,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.0,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// call runs one API round-trip through the resilience executor so
// transient upstream failures are retried and repeated failures open the
// circuit.
func (c *Client) call(ctx context.Context, path string, payload, out any, operation string) error {
	if c.executor == nil {
		return c.postJSON(ctx, path, payload, out, operation)
	}
	err := c.executor.Execute(ctx, "ollama_"+operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}

func fallbackWithReason(reason string) string {
	return fmt.Sprintf("%s (%s)", domain.FallbackAnswer, reason)
}

func postprocessAnswer(text string) string {
	answer := strings.TrimSpace(text)
	for _, quotes := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if strings.HasPrefix(answer, quotes[0]) && strings.HasSuffix(answer, quotes[1]) && len(answer) > len(quotes[0])+len(quotes[1]) {
			answer = strings.TrimSpace(answer[len(quotes[0]) : len(answer)-len(quotes[1])])
		}
	}
	if len(answer) > 500 {
		answer = strings.TrimSpace(answer[:500])
	}
	return answer
}

package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/varad-suryavanshi/member-qa/internal/config"
	"github.com/varad-suryavanshi/member-qa/internal/core/ports"
	"github.com/varad-suryavanshi/member-qa/internal/observability/metrics"
)

const serviceName = "api"

// Message shown when the corpus cannot be loaded. Kept deliberately vague:
// upstream details go to the log, not the client.
const unavailableAnswer = "I couldn’t reach the messages API right now. Please try again in a moment."

type Router struct {
	askSvc  ports.QuestionService
	metrics *metrics.HTTPServerMetrics
	cfg     config.Config
}

func NewRouter(askSvc ports.QuestionService, m *metrics.HTTPServerMetrics, cfg config.Config) *Router {
	return &Router{
		askSvc:  askSvc,
		metrics: m,
		cfg:     cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.root)
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/ask", rt.ask)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = corsMiddleware(handler)
	return handler
}

func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"endpoints": []string{"/healthz", "/ask?question=..."},
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	question := r.URL.Query().Get("question")
	if strings.TrimSpace(question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	debug, _ := strconv.ParseBool(r.URL.Query().Get("debug"))

	start := time.Now()
	result, err := rt.askSvc.Ask(r.Context(), question)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		slog.Error("ask_failed",
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"error", err,
		)
		rt.recordAsk("error", "", 0, start)

		if status == http.StatusBadRequest {
			writeJSON(w, status, map[string]string{"error": "question is required"})
			return
		}
		payload := map[string]string{"answer": unavailableAnswer}
		if debug {
			payload["error"] = err.Error()
		}
		writeJSON(w, status, payload)
		return
	}

	outcome := "answered"
	if result.Refused {
		outcome = "refused"
	}
	rt.recordAsk(outcome, string(result.RefusalReason), len(result.SnippetsChecked), start)

	if debug {
		writeJSON(w, http.StatusOK, debugPayload(result))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": result.Answer})
}

func (rt *Router) recordAsk(outcome, reason string, candidates int, start time.Time) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAsk(serviceName, outcome, reason, candidates, time.Since(start))
}

type snippetView struct {
	User string `json:"user"`
	TS   string `json:"ts"`
	Msg  string `json:"msg"`
}

func debugPayload(result *ports.AskResult) map[string]any {
	snippets := make([]snippetView, 0, len(result.SnippetsChecked))
	for _, s := range result.SnippetsChecked {
		snippets = append(snippets, snippetView{
			User: s.UserName,
			TS:   s.Timestamp,
			Msg:  s.Message.Message,
		})
	}

	return map[string]any{
		"question":         result.Question,
		"person_detected":  result.PersonDetected,
		"topic":            result.Topic,
		"focus_terms":      result.FocusTerms,
		"snippets_checked": snippets,
		"answer":           result.Answer,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/larkrelay/internal/api"
	"github.com/charlesng35/larkrelay/internal/app"
	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/internal/feeds"
	"github.com/charlesng35/larkrelay/internal/genai"
	"github.com/charlesng35/larkrelay/internal/lark"
	"github.com/charlesng35/larkrelay/internal/middleware"
	"github.com/charlesng35/larkrelay/internal/monitoring"
	"github.com/charlesng35/larkrelay/internal/monitoring/checks"
	"github.com/charlesng35/larkrelay/internal/services"
	"github.com/charlesng35/larkrelay/internal/worker"
	"github.com/charlesng35/larkrelay/pkg/response"
)

// Test credentials shared by every Env.
const (
	VerificationToken = "verify-token"
	JokeText          = "今天也要认真摸鱼"
	AwslText          = "https://awsl.example.com/1.jpg"
	AIText            = "AI reply"
	AccessToken       = "t-test-token"
)

// ReplyRecord is a reply captured by the fake open platform.
type ReplyRecord struct {
	MessageID     string
	Authorization string
	MsgType       string `json:"msg_type"`
	Content       string `json:"content"`
}

// Upstream fakes the open platform, the feeds, the AI endpoint and custom-bot webhooks.
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	replies  []ReplyRecord
	webhooks []lark.WebhookMessage
	prompts  []string
}

func newUpstream(t *testing.T) *Upstream {
	t.Helper()
	u := &Upstream{calls: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		u.record("token")
		writeJSON(w, map[string]any{"code": 0, "msg": "ok", "tenant_access_token": AccessToken, "expire": 7200})
	})
	mux.HandleFunc("/open-apis/im/v1/messages/", func(w http.ResponseWriter, r *http.Request) {
		u.record("reply")
		rec := ReplyRecord{
			MessageID:     strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/open-apis/im/v1/messages/"), "/reply"),
			Authorization: r.Header.Get("Authorization"),
		}
		_ = json.NewDecoder(r.Body).Decode(&rec)
		u.mu.Lock()
		u.replies = append(u.replies, rec)
		u.mu.Unlock()
		writeJSON(w, map[string]any{"code": 0, "msg": "success"})
	})
	mux.HandleFunc("/moyu", func(w http.ResponseWriter, r *http.Request) {
		u.record("moyu")
		_, _ = io.WriteString(w, "  "+JokeText+"\n")
	})
	mux.HandleFunc("/awsl/v2/random", func(w http.ResponseWriter, r *http.Request) {
		u.record("awsl")
		writeJSON(w, AwslText)
	})
	mux.HandleFunc("/api/v3/quote/", func(w http.ResponseWriter, r *http.Request) {
		u.record("stock")
		_, _ = io.WriteString(w, `[{"symbol":"NVDA","name":"NVIDIA Corporation","price":135.58,"change":-1.2,"open":136.1,"previousClose":136.78}]`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		u.record("openai")
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		for _, m := range body.Messages {
			u.prompts = append(u.prompts, m.Content)
		}
		u.mu.Unlock()
		writeJSON(w, map[string]any{
			"id": "chatcmpl-test", "object": "chat.completion", "created": 1700000000, "model": "gpt-3.5-turbo",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": AIText}}},
		})
	})
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		u.record("hook")
		var msg lark.WebhookMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		u.mu.Lock()
		u.webhooks = append(u.webhooks, msg)
		u.mu.Unlock()
		writeJSON(w, map[string]any{"StatusCode": 0})
	})

	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Server.Close)
	return u
}

func (u *Upstream) record(name string) {
	u.mu.Lock()
	u.calls[name]++
	u.mu.Unlock()
}

// Calls returns how often the named fake endpoint was hit.
func (u *Upstream) Calls(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[name]
}

// TotalCalls returns the number of requests the fakes received.
func (u *Upstream) TotalCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, n := range u.calls {
		total += n
	}
	return total
}

// Replies returns captured message replies.
func (u *Upstream) Replies() []ReplyRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]ReplyRecord(nil), u.replies...)
}

// Webhooks returns captured custom-bot deliveries.
func (u *Upstream) Webhooks() []lark.WebhookMessage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]lark.WebhookMessage(nil), u.webhooks...)
}

// Prompts returns the user messages sent to the AI endpoint.
func (u *Upstream) Prompts() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.prompts...)
}

// HookURL is the fake custom-bot webhook.
func (u *Upstream) HookURL() string {
	return u.Server.URL + "/hook"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Env encapsulates a fully-wired router whose upstreams are local fakes.
type Env struct {
	T        *testing.T
	Router   *gin.Engine
	Store    *cache.MemoryStore
	Pool     *worker.Pool
	Upstream *Upstream
	Config   *app.Config
}

// EnvOption customises the configuration before wiring.
type EnvOption func(*app.Config)

// WithEncryptKey enables signature verification and encrypted events.
func WithEncryptKey(key string) EnvOption {
	return func(cfg *app.Config) { cfg.Lark.EncryptKey = key }
}

// WithRateLimit enables the limiter.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh router, cache, worker pool and upstream fakes.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	up := newUpstream(t)
	cfg := &app.Config{
		Lark: app.LarkConfig{
			BaseURL:           up.Server.URL,
			AppID:             "cli_test",
			AppSecret:         "app-secret",
			VerificationToken: VerificationToken,
		},
		OpenAI:     app.OpenAIConfig{BaseURL: up.Server.URL, APIKey: "sk-test", Model: "gpt-3.5-turbo"},
		Feeds:      app.FeedsConfig{MoyuURL: up.Server.URL + "/moyu", AwslAPIURL: up.Server.URL + "/awsl"},
		Stock:      app.StockConfig{BaseURL: up.Server.URL, APIKey: "stock-key", Symbols: []string{"NVDA"}},
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"}},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := cache.NewMemoryStore()
	pool := worker.New(worker.WithTaskTimeout(5 * time.Second))
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	httpClient := up.Server.Client()

	tokens, err := lark.NewTokenSource(store, lark.Credentials{
		BaseURL:   cfg.Lark.BaseURL,
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, lark.WithHTTPClient(httpClient))
	require.NoError(t, err)

	larkClient, err := lark.NewClient(cfg.Lark.BaseURL, tokens, lark.WithHTTPClient(httpClient))
	require.NoError(t, err)

	ai, err := genai.NewClient(genai.Config{BaseURL: cfg.OpenAI.BaseURL, APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, HTTPClient: httpClient})
	require.NoError(t, err)

	jokes := feeds.NewJokeFeed(cfg.Feeds.MoyuURL, httpClient)

	replies, err := services.NewReplyService(services.ReplyDeps{
		Store:   store,
		Jokes:   jokes,
		Random:  feeds.NewRandomFeed(cfg.Feeds.AwslAPIURL, httpClient),
		AI:      ai,
		Replier: larkClient,
		Tasks:   pool,
	})
	require.NoError(t, err)

	notifier, err := services.NewNotifierService(
		lark.NewWebhookSender(lark.WithHTTPClient(httpClient)),
		jokes,
		feeds.NewQuoteFeed(cfg.Stock.BaseURL, cfg.Stock.APIKey, cfg.Stock.Symbols, httpClient),
	)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Messages:  replies,
		Notifier:  notifier,
		RateStore: middleware.NewCacheRateStore(store),
		Health:    monitoring.NewHealthManager(checks.Cache(store, time.Second)),
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		Router:   router,
		Store:    store,
		Pool:     pool,
		Upstream: up,
		Config:   cfg,
	}
}

// Drain waits for background reply tasks to finish.
func (e *Env) Drain() {
	e.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(e.T, e.Pool.Shutdown(ctx))
}

// Request executes an HTTP request against the router. Strings and byte
// slices are sent verbatim, anything else is JSON encoded.
func (e *Env) Request(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.T, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// DecodeResponse parses the standard API envelope from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// MessageEvent builds an im.message.receive_v1 callback body.
func MessageEvent(token, messageID, messageType, text string) map[string]any {
	content, _ := json.Marshal(map[string]string{"text": text})
	return map[string]any{
		"schema": "2.0",
		"header": map[string]any{
			"event_id":   "ev_" + messageID,
			"token":      token,
			"event_type": lark.EventTypeMessageReceive,
		},
		"event": map[string]any{
			"message": map[string]any{
				"message_id":   messageID,
				"chat_id":      "oc_test",
				"chat_type":    "group",
				"message_type": messageType,
				"content":      string(content),
			},
		},
	}
}

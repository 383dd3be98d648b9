package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/newsflow/article-analyzer/internal/analyzer"
	"github.com/newsflow/article-analyzer/internal/config"
	"github.com/newsflow/article-analyzer/internal/logger"
	"github.com/newsflow/article-analyzer/internal/throttle"
)

// 请求体上限
const maxRequestBytes = 64 << 10

// Handler HTTP 处理器
type Handler struct {
	analyzer  *analyzer.Analyzer
	throttle  *throttle.Throttle
	semaphore chan struct{}
	config    *config.Config
}

// AnalyzeRequest 分析请求
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// ExtractResponse 正文预览响应
type ExtractResponse struct {
	URL         string `json:"url"`
	FinalURL    string `json:"finalUrl"`
	Platform    string `json:"platform"`
	Title       string `json:"title,omitempty"`
	Byline      string `json:"byline,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
	Text        string `json:"text"`
	ContentHTML string `json:"contentHtml,omitempty"`
	Length      int    `json:"length"`
	Truncated   bool   `json:"truncated"`
	ReadingTime int    `json:"readingTime"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status        string `json:"status"`
	Concurrency   int    `json:"concurrency"`
	Available     int    `json:"available"`
	FetchStrategy string `json:"fetchStrategy"`
	LLMConfigured bool   `json:"llmConfigured"`
}

// New 创建处理器；throttle 由调用方创建并管理生命周期
func New(cfg *config.Config, an *analyzer.Analyzer, th *throttle.Throttle) *Handler {
	return &Handler{
		analyzer:  an,
		throttle:  th,
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
		config:    cfg,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/favicon.ico", h.handleFavicon)
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/api/analyze", h.throttled(http.HandlerFunc(h.handleAnalyze)))
	mux.Handle("/api/extract", h.throttled(http.HandlerFunc(h.handleExtract)))
}

// Routes 返回带 CORS 的完整路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return WithCORS(mux)
}

// handleHealth 健康检查
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Concurrency:   cap(h.semaphore),
		Available:     cap(h.semaphore) - len(h.semaphore),
		FetchStrategy: h.config.FetchStrategy,
		LLMConfigured: h.analyzer.Configured(),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleAnalyze 分析文章
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req := h.decodeRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), h.config.AnalyzeTimeout)
	defer cancel()

	release, err := h.acquire(ctx)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	defer release()

	result, err := h.analyzer.Analyze(ctx, req.URL)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// handleExtract 只抓取和提取正文，不调用模型
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req := h.decodeRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), h.config.AnalyzeTimeout)
	defer cancel()

	release, err := h.acquire(ctx)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	defer release()

	preview, err := h.analyzer.Preview(ctx, req.URL)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	article := preview.Article
	h.writeJSON(w, http.StatusOK, ExtractResponse{
		URL:         preview.URL,
		FinalURL:    preview.FinalURL,
		Platform:    article.Platform.String(),
		Title:       article.Title,
		Byline:      article.Byline,
		Excerpt:     article.Excerpt,
		SiteName:    article.SiteName,
		Text:        preview.Text,
		ContentHTML: article.ContentHTML,
		Length:      len([]rune(article.Text)),
		Truncated:   preview.Truncated,
		ReadingTime: article.ReadingTime,
	})
}

// decodeRequest 请求体无法解析时按空 URL 处理，由校验步骤返回 400
func (h *Handler) decodeRequest(r *http.Request) AnalyzeRequest {
	var req AnalyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		logger.Log.WithError(err).Debug("invalid request body")
		return AnalyzeRequest{}
	}
	return req
}

// acquire 等待并发名额，超时返回错误
func (h *Handler) acquire(ctx context.Context) (func(), error) {
	select {
	case h.semaphore <- struct{}{}:
		return func() { <-h.semaphore }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// throttled 按客户端标识节流
func (h *Handler) throttled(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := h.clientID(r)
		if !h.throttle.Allow(client) {
			logger.Log.WithField("client", client).Info("request throttled")
			h.writeFailure(w, analyzer.ErrThrottled)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID 从代理请求头取客户端 IP，缺失时所有请求共用 unknown
func (h *Handler) clientID(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(h.config.Throttle.ClientIPHeader)); ip != "" {
		return ip
	}
	return throttle.UnknownClient
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var e *analyzer.Error
	if !errors.As(err, &e) {
		logger.Log.WithError(err).Error("unexpected failure")
		e = analyzer.AsError(err, "Internal Server Error")
	}
	h.writeError(w, e.StatusCode(), e.Message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Warn("write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// WithCORS 允许任意来源跨域访问，预检请求直接返回 204
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")
		header.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

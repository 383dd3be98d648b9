package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newsflow/article-analyzer/internal/config"
)

// 浏览器请求头
const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	acceptLanguageHeader = "zh-CN,zh;q=0.9,en;q=0.8"
)

// 单个页面读取的最大字节数
const maxBodyBytes = 10 << 20

// FetchResult 抓取结果
type FetchResult struct {
	URL         string
	FinalURL    string
	HTML        string
	StatusCode  int
	ContentType string
	Strategy    string // cycletls, standard
	Duration    time.Duration
	Error       error
}

// HTTPError 目标站点返回了非 2xx 状态码
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}

// client 单一抓取策略
type client interface {
	Fetch(ctx context.Context, url string) *FetchResult
	Close()
}

// Fetcher 页面抓取器
//
// 每次调用只发起一次 GET 请求，失败不重试，也不在策略之间回退。
type Fetcher struct {
	client   client
	strategy string
}

// New 根据配置创建抓取器
func New(cfg *config.Config) (*Fetcher, error) {
	switch cfg.FetchStrategy {
	case config.StrategyCycleTLS:
		c, err := NewCycleTLSClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("init cycletls client: %w", err)
		}
		return &Fetcher{client: c, strategy: config.StrategyCycleTLS}, nil
	case config.StrategyStandard, "":
		return &Fetcher{client: NewStandardClient(cfg), strategy: config.StrategyStandard}, nil
	default:
		return nil, fmt.Errorf("unknown fetch strategy %q", cfg.FetchStrategy)
	}
}

// Fetch 抓取页面；只接受 http 和 https，与抓取策略无关
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *FetchResult {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &FetchResult{URL: rawURL, Strategy: f.strategy, Error: fmt.Errorf("parse url: %w", err)}
	}
	if !isHTTPScheme(u) {
		return &FetchResult{URL: rawURL, Strategy: f.strategy, Error: fmt.Errorf("unsupported URL scheme: %q", u.Scheme)}
	}
	return f.client.Fetch(ctx, rawURL)
}

// Strategy 当前使用的抓取策略
func (f *Fetcher) Strategy() string {
	return f.strategy
}

// Close 关闭抓取器
func (f *Fetcher) Close() {
	f.client.Close()
}

// capBody 截断超过 maxBodyBytes 的响应体
func capBody(body string) string {
	if len(body) > maxBodyBytes {
		return body[:maxBodyBytes]
	}
	return body
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

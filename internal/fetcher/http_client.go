package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/newsflow/article-analyzer/internal/config"
)

// StandardClient 标准 HTTP 客户端
type StandardClient struct {
	client    *http.Client
	userAgent string
}

// NewStandardClient 创建标准 HTTP 客户端
func NewStandardClient(cfg *config.Config) *StandardClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			if !isHTTPScheme(req.URL) {
				return errors.New("redirect to unsupported scheme")
			}
			return nil
		},
	}

	return &StandardClient{
		client:    client,
		userAgent: cfg.UserAgent,
	}
}

// Fetch 使用标准客户端抓取
func (c *StandardClient) Fetch(ctx context.Context, rawURL string) *FetchResult {
	start := time.Now()
	result := &FetchResult{URL: rawURL, Strategy: config.StrategyStandard}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	result.FinalURL = resp.Request.URL.String()
	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if !isSuccess(resp.StatusCode) {
		result.Error = &HTTPError{StatusCode: resp.StatusCode}
		result.Duration = time.Since(start)
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Error = fmt.Errorf("read body: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.HTML = string(body)
	result.Duration = time.Since(start)
	return result
}

// Close 释放空闲连接
func (c *StandardClient) Close() {
	c.client.CloseIdleConnections()
}

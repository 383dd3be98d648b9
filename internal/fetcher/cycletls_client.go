package fetcher

import (
	"context"
	"time"

	cycletls "github.com/Danny-Dasilva/CycleTLS/cycletls"
	"github.com/newsflow/article-analyzer/internal/config"
)

// CycleTLSClient 使用 CycleTLS 的客户端（TLS 指纹伪造）
//
// 微信公众号等站点会根据 TLS 指纹拦截非浏览器请求。
type CycleTLSClient struct {
	client    cycletls.CycleTLS
	userAgent string
	ja3       string
	timeout   int
}

// Chrome JA3 指纹
const ChromeJA3 = "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-17513,29-23-24,0"

// NewCycleTLSClient 创建 CycleTLS 客户端
func NewCycleTLSClient(cfg *config.Config) (*CycleTLSClient, error) {
	client := cycletls.Init()

	timeout := int(cfg.RequestTimeout.Seconds())
	if timeout <= 0 {
		timeout = 15
	}

	return &CycleTLSClient{
		client:    client,
		userAgent: cfg.UserAgent,
		ja3:       ChromeJA3,
		timeout:   timeout,
	}, nil
}

// Fetch 使用 CycleTLS 抓取（模拟 Chrome TLS 指纹）
func (c *CycleTLSClient) Fetch(ctx context.Context, url string) *FetchResult {
	start := time.Now()
	result := &FetchResult{URL: url, Strategy: config.StrategyCycleTLS}

	// CycleTLS 不接受 context，只能在发起前检查
	if err := ctx.Err(); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	options := cycletls.Options{
		Body:      "",
		Ja3:       c.ja3,
		UserAgent: c.userAgent,
		Headers: map[string]string{
			"Accept":          acceptHeader,
			"Accept-Language": acceptLanguageHeader,
			"Accept-Encoding": "gzip, deflate, br",
			"Connection":      "keep-alive",
			"Cache-Control":   "no-cache",
		},
		Timeout: c.timeout,
	}

	resp, err := c.client.Do(url, options, "GET")
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	result.FinalURL = resp.FinalUrl
	if result.FinalURL == "" {
		result.FinalURL = url
	}
	result.StatusCode = resp.Status
	if ct, ok := resp.Headers["Content-Type"]; ok {
		result.ContentType = ct
	}

	if !isSuccess(resp.Status) {
		result.Error = &HTTPError{StatusCode: resp.Status}
		result.Duration = time.Since(start)
		return result
	}

	result.HTML = capBody(resp.Body)
	result.Duration = time.Since(start)
	return result
}

// Close 关闭客户端
func (c *CycleTLSClient) Close() {
	c.client.Close()
}

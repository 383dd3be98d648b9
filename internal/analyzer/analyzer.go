// Package analyzer 实现文章分析流程：
// URL 校验 → 抓取 → 正文提取 → 截断 → 构造提示词 → 调用模型 → 解析结果。
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newsflow/article-analyzer/internal/extractor"
	"github.com/newsflow/article-analyzer/internal/fetcher"
	"github.com/newsflow/article-analyzer/internal/llm"
	"github.com/newsflow/article-analyzer/internal/logger"
	"github.com/sirupsen/logrus"
)

// Fetcher 页面抓取
type Fetcher interface {
	Fetch(ctx context.Context, url string) *fetcher.FetchResult
}

// Completer 对话补全服务
type Completer interface {
	Complete(ctx context.Context, prompt llm.Prompt) (string, error)
}

// Analyzer 分析流程，可并发使用
type Analyzer struct {
	fetcher   Fetcher
	extractor *extractor.Extractor
	completer Completer
	policy    TruncationPolicy
}

// New 创建分析器；completer 为 nil 表示未配置 API Key，Analyze 将返回 KindConfigMissing
func New(f Fetcher, e *extractor.Extractor, c Completer, policy TruncationPolicy) *Analyzer {
	if policy.Marker == "" {
		policy.Marker = DefaultTruncationMarker
	}
	return &Analyzer{
		fetcher:   f,
		extractor: e,
		completer: c,
		policy:    policy,
	}
}

// Configured 模型服务是否可用
func (a *Analyzer) Configured() bool {
	return a.completer != nil
}

// Analyze 对 URL 指向的文章执行完整分析
//
// 所有失败都以 *Error 返回，不做任何重试。
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*Result, error) {
	start := time.Now()
	rawURL = strings.TrimSpace(rawURL)
	log := logger.Log.WithField("url", rawURL)

	if a.completer == nil {
		return nil, newError(KindConfigMissing, MsgConfigMissing, nil)
	}

	content, err := a.fetchContent(ctx, rawURL, log)
	if err != nil {
		return nil, err
	}

	text, truncated := a.policy.Apply(content.Text)
	log = log.WithFields(logrus.Fields{
		"platform":  content.Platform.String(),
		"chars":     len([]rune(content.Text)),
		"truncated": truncated,
	})

	raw, err := a.completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		log.WithError(err).Error("completion request failed")
		return nil, newError(KindUpstreamFailure, MsgUpstreamFailure, err)
	}

	result, err := Interpret(raw)
	if err != nil {
		log.WithError(err).Error("completion response rejected")
		return nil, err
	}

	log.WithField("duration", time.Since(start).String()).Info("article analyzed")
	return result, nil
}

// PreviewResult 送入模型前的文本和文章元信息
type PreviewResult struct {
	URL       string
	FinalURL  string
	Article   *extractor.Article
	Text      string
	Truncated bool
}

// Preview 执行到截断为止的流程，不调用模型，也不要求 API Key
func (a *Analyzer) Preview(ctx context.Context, rawURL string) (*PreviewResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	log := logger.Log.WithField("url", rawURL)

	if !extractor.ValidateURL(rawURL) {
		return nil, newError(KindInvalidInput, MsgInvalidURL, nil)
	}
	page, err := a.fetch(ctx, rawURL, log)
	if err != nil {
		return nil, err
	}

	article, err := a.extractor.Extract(page.HTML, rawURL)
	if err != nil {
		log.WithError(err).Error("extract failed")
		return nil, newError(KindExtractionEmpty, MsgExtractionEmpty, err)
	}
	if article.Text == "" {
		return nil, newError(KindExtractionEmpty, MsgExtractionEmpty, nil)
	}

	text, truncated := a.policy.Apply(article.Text)
	return &PreviewResult{
		URL:       rawURL,
		FinalURL:  page.FinalURL,
		Article:   article,
		Text:      text,
		Truncated: truncated,
	}, nil
}

func (a *Analyzer) fetchContent(ctx context.Context, rawURL string, log *logrus.Entry) (*extractor.Content, error) {
	if !extractor.ValidateURL(rawURL) {
		return nil, newError(KindInvalidInput, MsgInvalidURL, nil)
	}

	page, err := a.fetch(ctx, rawURL, log)
	if err != nil {
		return nil, err
	}

	// 平台按调用方给出的 URL 判断，而不是重定向后的地址
	content, err := a.extractor.ExtractText(page.HTML, rawURL)
	if err != nil {
		log.WithError(err).Error("extract failed")
		return nil, newError(KindExtractionEmpty, MsgExtractionEmpty, err)
	}
	if content.Text == "" {
		log.Warn("no extractable text")
		return nil, newError(KindExtractionEmpty, MsgExtractionEmpty, nil)
	}
	return content, nil
}

func (a *Analyzer) fetch(ctx context.Context, rawURL string, log *logrus.Entry) (*fetcher.FetchResult, error) {
	page := a.fetcher.Fetch(ctx, rawURL)
	if page.Error == nil {
		return page, nil
	}

	entry := log.WithError(page.Error).WithField("strategy", page.Strategy)
	var httpErr *fetcher.HTTPError
	if errors.As(page.Error, &httpErr) {
		entry.WithField("status", httpErr.StatusCode).Error("fetch failed")
		return nil, newError(KindFetchFailed, fmt.Sprintf("%s: %d", MsgFetchFailed, httpErr.StatusCode), page.Error)
	}
	entry.Error("fetch failed")
	return nil, newError(KindFetchFailed, MsgFetchFailed, page.Error)
}

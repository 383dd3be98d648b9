// Package extractor 从文章页面 HTML 中提取供模型分析的正文
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/newsflow/article-analyzer/internal/logger"
)

// 提取正文前移除的节点，避免脚本和样式混入文本
const noiseSelector = "script, style, noscript"

// Content 提取出的正文
type Content struct {
	// 空白已归一化；为空表示页面中没有可用正文
	Text     string
	Platform Platform
}

// Article 预览接口使用的完整提取结果
type Article struct {
	Content
	Title       string
	Byline      string
	Excerpt     string
	SiteName    string
	ContentHTML string
	ReadingTime int
}

// Extractor 正文提取器
type Extractor struct {
	sanitizer *Sanitizer
}

// New 创建提取器
func New() *Extractor {
	return &Extractor{
		sanitizer: NewSanitizer(),
	}
}

// ExtractText 按平台选择正文区域并归一化空白
//
// 返回空文本不是错误，由调用方决定如何处理。
func (e *Extractor) ExtractText(html, pageURL string) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(DecodeCloudflareEmails(html)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	platform := Classify(pageURL)
	return &Content{
		Text:     Normalize(regionText(doc, platform)),
		Platform: platform,
	}, nil
}

// Extract 提取正文并附带标题、作者等元信息
func (e *Extractor) Extract(html, pageURL string) (*Article, error) {
	content, err := e.ExtractText(html, pageURL)
	if err != nil {
		return nil, err
	}

	article := &Article{
		Content:     *content,
		ReadingTime: calculateReadingTime(content.Text),
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	meta, err := extractWithReadability(html, parsedURL)
	if err != nil {
		// 元信息缺失不影响正文
		logger.Log.WithError(err).WithField("url", pageURL).Debug("readability failed")
		return article, nil
	}

	article.Title = meta.Title
	article.Byline = meta.Byline
	article.Excerpt = meta.Excerpt
	article.SiteName = meta.SiteName
	article.ContentHTML = e.sanitizer.Sanitize(meta.Content)
	return article, nil
}

func regionText(doc *goquery.Document, platform Platform) string {
	for _, selector := range regionSelectors[platform] {
		if text := strings.TrimSpace(doc.Find(selector).Text()); text != "" {
			return text
		}
	}
	return doc.Find("body").Text()
}

// Normalize 将连续空白折叠为单个空格并去掉首尾空白
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var hanRegex = regexp.MustCompile(`\p{Han}`)

// calculateReadingTime 计算阅读时间（分钟）
func calculateReadingTime(text string) int {
	if text == "" {
		return 0
	}

	// 中文约 400 字/分钟，英文约 200 词/分钟
	chineseCount := len(hanRegex.FindAllStringIndex(text, -1))
	wordCount := len(strings.Fields(hanRegex.ReplaceAllString(text, " ")))

	minutes := float64(chineseCount)/400.0 + float64(wordCount)/200.0
	if minutes < 1 {
		return 1
	}
	return int(minutes + 0.5)
}

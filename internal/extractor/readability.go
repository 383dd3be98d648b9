package extractor

import (
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// ReadabilityResult Readability 提取的文章元信息
type ReadabilityResult struct {
	Title    string
	Content  string // HTML 格式
	Excerpt  string
	Byline   string
	SiteName string
}

// extractWithReadability 使用 go-readability 解析文章元信息
func extractWithReadability(html string, pageURL *url.URL) (*ReadabilityResult, error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, err
	}

	return &ReadabilityResult{
		Title:    strings.TrimSpace(article.Title),
		Content:  article.Content,
		Excerpt:  strings.TrimSpace(article.Excerpt),
		Byline:   strings.TrimSpace(article.Byline),
		SiteName: strings.TrimSpace(article.SiteName),
	}, nil
}

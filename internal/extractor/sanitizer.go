package extractor

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer HTML 净化器，用于预览接口返回的正文 HTML
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer 创建净化器
func NewSanitizer() *Sanitizer {
	policy := bluemonday.NewPolicy()

	// 只保留文章排版相关的标签
	policy.AllowElements(
		"p", "br", "hr", "div", "span",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"b", "i", "strong", "em", "u", "s", "del", "ins", "sub", "sup", "small", "mark",
		"blockquote", "pre", "code",
		"figure", "figcaption",
		"table", "caption", "thead", "tbody", "tfoot", "tr", "th", "td",
		"time", "section",
	)

	policy.AllowAttrs("href").OnElements("a")
	policy.AllowRelativeURLs(false)
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	policy.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	policy.AllowAttrs("datetime").OnElements("time")

	return &Sanitizer{policy: policy}
}

// Sanitize 净化 HTML
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}

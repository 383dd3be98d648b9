package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/newsflow/article-analyzer/internal/logger"
	"github.com/sirupsen/logrus"
)

// Result 返回给调用方的分析结果
type Result struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Stats    Stats    `json:"stats"`
}

// Stats 估算的阅读、评论数，未知时为 "N/A"
type Stats struct {
	Views    string `json:"views"`
	Comments string `json:"comments"`
}

// payload 模型返回的原始结构，字段缺失时为 nil
type payload struct {
	Summary  *string `json:"summary"`
	Keywords []any   `json:"keywords"`
	Stats    *struct {
		Views    json.RawMessage `json:"views"`
		Comments json.RawMessage `json:"comments"`
	} `json:"stats"`
}

// Interpret 解析模型输出并校验必需字段
//
// 空输出返回 KindUpstreamEmpty；不是 JSON 或缺少 summary、keywords、stats
// 返回 KindUpstreamMalformed，不会用默认值补齐。
func Interpret(raw string) (*Result, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil, newError(KindUpstreamEmpty, MsgUpstreamEmpty, nil)
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, newError(KindUpstreamMalformed, MsgUpstreamMalformed, err)
	}

	if p.Summary == nil || strings.TrimSpace(*p.Summary) == "" {
		return nil, malformed("missing summary")
	}
	if p.Stats == nil {
		return nil, malformed("missing stats")
	}

	keywords, err := parseKeywords(p.Keywords)
	if err != nil {
		return nil, err
	}
	views, err := parseStat("views", p.Stats.Views)
	if err != nil {
		return nil, err
	}
	comments, err := parseStat("comments", p.Stats.Comments)
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary:  strings.TrimSpace(*p.Summary),
		Keywords: keywords,
		Stats:    Stats{Views: views, Comments: comments},
	}, nil
}

func malformed(reason string) *Error {
	return newError(KindUpstreamMalformed, MsgUpstreamMalformed, fmt.Errorf("%s", reason))
}

// parseKeywords 去掉空白项，最多保留 KeywordCount 个
func parseKeywords(items []any) ([]string, error) {
	keywords := make([]string, 0, KeywordCount)
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, malformed("keywords must be strings")
		}
		if s = strings.TrimSpace(s); s != "" && len(keywords) < KeywordCount {
			keywords = append(keywords, s)
		}
	}
	if len(keywords) == 0 {
		return nil, malformed("missing keywords")
	}
	if len(items) != KeywordCount || len(keywords) != KeywordCount {
		logger.Log.WithFields(logrus.Fields{
			"received": len(items),
			"kept":     len(keywords),
			"expected": KeywordCount,
		}).Warn("keyword count differs from prompt contract")
	}
	return keywords, nil
}

// parseStat 接受字符串或数字；缺失、null 或空字符串视为 "N/A"
func parseStat(name string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NotAvailable, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
		return NotAvailable, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return n.String(), nil
	}

	return "", malformed("stats." + name + " must be a string or number")
}

// stripCodeFence 去掉模型偶尔包裹的 ```json ... ``` 标记
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/newsflow/article-analyzer/internal/extractor"
	"github.com/newsflow/article-analyzer/internal/fetcher"
	"github.com/newsflow/article-analyzer/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	html  string
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context, url string) *fetcher.FetchResult {
	f.calls.Add(1)
	return &fetcher.FetchResult{URL: url, FinalURL: url, HTML: f.html, Error: f.err, Strategy: "stub"}
}

type stubCompleter struct {
	out    string
	err    error
	prompt llm.Prompt
	calls  atomic.Int32
}

func (c *stubCompleter) Complete(_ context.Context, prompt llm.Prompt) (string, error) {
	c.calls.Add(1)
	c.prompt = prompt
	return c.out, c.err
}

const articleHTML = `<html><body>
	<div id="img-content"><h1>标题</h1><p>正文</p><em>阅读 3万</em></div>
	<script>tracker()</script>
</body></html>`

func newTestAnalyzer(f Fetcher, c Completer) *Analyzer {
	return New(f, extractor.New(), c, DefaultTruncationPolicy())
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *Error, got %v", err)
	require.Equal(t, kind, e.Kind, e.Error())
	return e
}

func TestAnalyze_Success(t *testing.T) {
	f := &stubFetcher{html: articleHTML}
	c := &stubCompleter{out: `{"summary":"s","keywords":["a","b"],"stats":{"views":"3万","comments":"N/A"}}`}

	result, err := newTestAnalyzer(f, c).Analyze(context.Background(), " https://mp.weixin.qq.com/s/x ")
	require.NoError(t, err)

	assert.Equal(t, "s", result.Summary)
	assert.Equal(t, []string{"a", "b"}, result.Keywords)
	assert.Equal(t, Stats{Views: "3万", Comments: "N/A"}, result.Stats)
	assert.Equal(t, "标题正文阅读 3万", c.prompt.User)
	assert.NotContains(t, c.prompt.User, "tracker")
}

func TestAnalyze_TruncatesLongArticles(t *testing.T) {
	body := "开头" + strings.Repeat("长", 20000) + "结尾阅读 10万+"
	f := &stubFetcher{html: "<html><body>" + body + "</body></html>"}
	c := &stubCompleter{out: `{"summary":"s","keywords":["a"],"stats":{}}`}

	_, err := newTestAnalyzer(f, c).Analyze(context.Background(), "https://example.com/a")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.prompt.User, "开头"))
	assert.True(t, strings.HasSuffix(c.prompt.User, "结尾阅读 10万+"))
	assert.Equal(t, 1, strings.Count(c.prompt.User, DefaultTruncationMarker))
}

func TestAnalyze_ConfigMissingBeforeValidation(t *testing.T) {
	f := &stubFetcher{html: articleHTML}
	a := newTestAnalyzer(f, nil)

	for _, u := range []string{"not-a-url", "https://example.com"} {
		_, err := a.Analyze(context.Background(), u)
		e := requireKind(t, err, KindConfigMissing)
		assert.Equal(t, MsgConfigMissing, e.Message)
	}
	assert.Zero(t, f.calls.Load())
	assert.False(t, a.Configured())
}

func TestAnalyze_InvalidURL(t *testing.T) {
	f := &stubFetcher{html: articleHTML}
	c := &stubCompleter{}

	for _, u := range []string{"", "not-a-url", "ftp:/bad", "javascript:alert(1)"} {
		_, err := newTestAnalyzer(f, c).Analyze(context.Background(), u)
		e := requireKind(t, err, KindInvalidInput)
		assert.Equal(t, MsgInvalidURL, e.Message)
	}
	assert.Zero(t, f.calls.Load(), "no network call for invalid input")
	assert.Zero(t, c.calls.Load())
}

func TestAnalyze_FetchFailed(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		f := &stubFetcher{err: &fetcher.HTTPError{StatusCode: 404}}
		_, err := newTestAnalyzer(f, &stubCompleter{}).Analyze(context.Background(), "https://example.com")

		e := requireKind(t, err, KindFetchFailed)
		assert.Equal(t, "Failed to fetch URL: 404", e.Message)
		assert.Equal(t, 500, e.StatusCode())
		assert.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("network", func(t *testing.T) {
		f := &stubFetcher{err: errors.New("dial tcp: no such host")}
		_, err := newTestAnalyzer(f, &stubCompleter{}).Analyze(context.Background(), "https://example.com")

		e := requireKind(t, err, KindFetchFailed)
		assert.Equal(t, MsgFetchFailed, e.Message)
		assert.NotContains(t, e.Message, "no such host")
	})
}

func TestAnalyze_ExtractionEmpty(t *testing.T) {
	f := &stubFetcher{html: "<html><body><script>only()</script>  </body></html>"}
	c := &stubCompleter{}

	_, err := newTestAnalyzer(f, c).Analyze(context.Background(), "https://example.com")

	e := requireKind(t, err, KindExtractionEmpty)
	assert.Equal(t, 422, e.StatusCode())
	assert.Equal(t, MsgExtractionEmpty, e.Message)
	assert.Zero(t, c.calls.Load())
}

func TestAnalyze_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		c    *stubCompleter
		kind Kind
		msg  string
	}{
		{"error", &stubCompleter{err: errors.New("401 unauthorized")}, KindUpstreamFailure, MsgUpstreamFailure},
		{"empty", &stubCompleter{out: ""}, KindUpstreamEmpty, MsgUpstreamEmpty},
		{"not json", &stubCompleter{out: "Sure! Here is the summary."}, KindUpstreamMalformed, MsgUpstreamMalformed},
		{"partial", &stubCompleter{out: `{"summary":"s"}`}, KindUpstreamMalformed, MsgUpstreamMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAnalyzer(&stubFetcher{html: articleHTML}, tt.c).Analyze(context.Background(), "https://example.com")
			e := requireKind(t, err, tt.kind)
			assert.Equal(t, tt.msg, e.Message)
			assert.Equal(t, 500, e.StatusCode())
			assert.Equal(t, int32(1), tt.c.calls.Load(), "no retries")
		})
	}
}

func TestPreview(t *testing.T) {
	f := &stubFetcher{html: `<html><head><title>标题</title></head><body><article><p>` + strings.Repeat("预览正文。", 40) + `</p></article></body></html>`}
	a := New(f, extractor.New(), nil, TruncationPolicy{MaxChars: 50, HalfChars: 10})

	preview, err := a.Preview(context.Background(), "https://example.com/p")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/p", preview.URL)
	assert.True(t, preview.Truncated)
	assert.Contains(t, preview.Text, DefaultTruncationMarker)
	assert.Equal(t, extractor.PlatformGeneric, preview.Article.Platform)
	assert.Equal(t, 200, len([]rune(preview.Article.Text)))
}

func TestPreview_Errors(t *testing.T) {
	a := newTestAnalyzer(&stubFetcher{html: "<html></html>"}, nil)

	_, err := a.Preview(context.Background(), "javascript:alert(1)")
	requireKind(t, err, KindInvalidInput)

	_, err = a.Preview(context.Background(), "https://example.com")
	requireKind(t, err, KindExtractionEmpty)
}

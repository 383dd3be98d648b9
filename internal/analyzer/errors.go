package analyzer

import (
	"errors"
	"net/http"
)

// Kind 分析流程的失败分类
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindThrottled
	KindFetchFailed
	KindExtractionEmpty
	KindConfigMissing
	KindUpstreamEmpty
	KindUpstreamMalformed
	KindUpstreamFailure
)

// 返回给调用方的错误信息
const (
	MsgInvalidURL        = "Invalid URL provided"
	MsgThrottled         = "Too many requests. Please wait."
	MsgFetchFailed       = "Failed to fetch URL"
	MsgExtractionEmpty   = "Failed to fetch article content"
	MsgConfigMissing     = "Server configuration error: API Key missing"
	MsgUpstreamEmpty     = "Empty response from AI"
	MsgUpstreamMalformed = "Invalid JSON response from AI"
	MsgUpstreamFailure   = "AI service request failed"
)

var kindNames = map[Kind]string{
	KindInvalidInput:      "invalid_input",
	KindThrottled:         "throttled",
	KindFetchFailed:       "fetch_failed",
	KindExtractionEmpty:   "extraction_empty",
	KindConfigMissing:     "config_missing",
	KindUpstreamEmpty:     "upstream_empty",
	KindUpstreamMalformed: "upstream_malformed",
	KindUpstreamFailure:   "upstream_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// StatusCode 每种分类对应唯一的 HTTP 状态码
func (k Kind) StatusCode() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindThrottled:
		return http.StatusTooManyRequests
	case KindExtractionEmpty:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error 带分类的流程错误；Message 可直接返回给调用方，Err 只用于日志
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode 对应的 HTTP 状态码
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// ErrThrottled 节流拒绝
var ErrThrottled = &Error{Kind: KindThrottled, Message: MsgThrottled}

// AsError 取出 *Error；其他错误归为 500，信息使用 fallback
func AsError(err error, fallback string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindUpstreamFailure, fallback, err)
}

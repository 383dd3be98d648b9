package extractor

import (
	"net/url"
	"strings"
)

// ValidateURL 判断字符串是否为带 scheme 和 host 的绝对 URL，不发起网络请求
func ValidateURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

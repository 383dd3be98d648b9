package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// Cloudflare Email Protection 会把页面中的邮箱替换为
// <a href="/cdn-cgi/l/email-protection" data-cfemail="..."> 或
// <span class="__cf_email__" data-cfemail="..."> 这样的占位标签。
// 编码为十六进制，第一个字节是 XOR 密钥。
var (
	cfEmailElementRegex = regexp.MustCompile(`<(a|span)\b[^>]*data-cfemail="([a-fA-F0-9]+)"[^>]*>[^<]*</(?:a|span)>`)
	cfEmailHrefRegex    = regexp.MustCompile(`href="[^"]*?/cdn-cgi/l/email-protection#([a-fA-F0-9]+)"`)
)

// DecodeCloudflareEmails 还原 HTML 中被 Cloudflare 混淆的邮箱
//
// 占位标签被替换为明文邮箱，带编码的链接被替换为 mailto: 链接。
// 正则均为预编译，可并发调用。
func DecodeCloudflareEmails(html string) string {
	if !strings.Contains(html, "data-cfemail") && !strings.Contains(html, "email-protection#") {
		return html
	}

	html = cfEmailElementRegex.ReplaceAllStringFunc(html, func(match string) string {
		sub := cfEmailElementRegex.FindStringSubmatch(match)
		if email := decodeCloudflareEmail(sub[2]); email != "" {
			return email
		}
		return match
	})

	return cfEmailHrefRegex.ReplaceAllStringFunc(html, func(match string) string {
		sub := cfEmailHrefRegex.FindStringSubmatch(match)
		if email := decodeCloudflareEmail(sub[1]); email != "" {
			return `href="mailto:` + email + `"`
		}
		return match
	})
}

// decodeCloudflareEmail 解码单个编码串，格式不合法时返回空字符串
func decodeCloudflareEmail(encoded string) string {
	if len(encoded) < 4 || len(encoded)%2 != 0 {
		return ""
	}

	key, err := strconv.ParseUint(encoded[:2], 16, 8)
	if err != nil {
		return ""
	}

	var result strings.Builder
	for i := 2; i < len(encoded); i += 2 {
		b, err := strconv.ParseUint(encoded[i:i+2], 16, 8)
		if err != nil {
			return ""
		}
		result.WriteByte(byte(b ^ key))
	}
	return result.String()
}

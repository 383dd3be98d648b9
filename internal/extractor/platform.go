package extractor

import "strings"

// Platform 文章来源平台
type Platform int

const (
	PlatformGeneric Platform = iota
	PlatformWeChat
)

// 微信公众号文章域名
const weChatHost = "mp.weixin.qq.com"

func (p Platform) String() string {
	switch p {
	case PlatformWeChat:
		return "wechat"
	default:
		return "generic"
	}
}

// Classify 根据 URL 判断来源平台（子串匹配）
func Classify(rawURL string) Platform {
	if strings.Contains(rawURL, weChatHost) {
		return PlatformWeChat
	}
	return PlatformGeneric
}

// regionSelectors 各平台的正文区域选择器，按顺序尝试，全部为空时回退到 body。
//
// 微信使用 #img-content 而不是 #js_content：前者还包含文末的阅读、点赞等信息。
var regionSelectors = map[Platform][]string{
	PlatformWeChat: {"#img-content"},
}

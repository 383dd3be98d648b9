package analyzer

// DefaultTruncationMarker 截断处插入的标记
const DefaultTruncationMarker = "\n...[Content Truncated]...\n"

// TruncationPolicy 控制送入模型的正文长度，长度按 Unicode 字符计
//
// 超过 MaxChars 时保留开头和结尾各 HalfChars 个字符，中间用 Marker 连接；
// 文章结尾常有阅读数、评论数等信息，只保留开头会丢失它们。
type TruncationPolicy struct {
	MaxChars  int
	HalfChars int
	Marker    string
}

// DefaultTruncationPolicy 12000 字符上限，首尾各保留 6000
func DefaultTruncationPolicy() TruncationPolicy {
	return TruncationPolicy{MaxChars: 12000, HalfChars: 6000, Marker: DefaultTruncationMarker}
}

// Apply 返回截断后的文本以及是否发生了截断
func (p TruncationPolicy) Apply(text string) (string, bool) {
	runes := []rune(text)
	if len(runes) <= p.MaxChars {
		return text, false
	}

	half := p.HalfChars
	if half*2 > len(runes) {
		half = len(runes) / 2
	}

	head := string(runes[:half])
	tail := string(runes[len(runes)-half:])
	return head + p.Marker + tail, true
}

package analyzer

import "github.com/newsflow/article-analyzer/internal/llm"

// NotAvailable 无法从正文中找到统计数字时使用的占位值
const NotAvailable = "N/A"

// KeywordCount 要求模型返回的关键词数量
const KeywordCount = 10

const systemInstruction = `You are an expert article analyzer.
Analyze the provided article content and return a JSON object with exactly this shape:
{"summary": string, "keywords": string[], "stats": {"views": string, "comments": string}}
- summary: A concise summary (max 100 words).
- keywords: An array of exactly 10 representative keywords.
- stats: An object with "views" and "comments" fields.
  * Look for labels like "阅读" (Read), "浏览" (View), "评论" (Comment), "点赞" (Like).
  * If explicit numbers are found (e.g., "阅读 10万+", "Read 100k"), extract them as written, such as "10万+".
  * For some platforms (like WeChat) exact counts are loaded dynamically. If you only see static placeholders or cannot find an explicit number, set the field to the string "N/A".
Reply ONLY with the JSON object, without markdown fences or any other text.`

// BuildPrompt 构造系统指令和用户消息，用户消息原样携带正文
func BuildPrompt(text string) llm.Prompt {
	return llm.Prompt{
		System: systemInstruction,
		User:   text,
	}
}

// Package llm 封装 OpenAI 兼容的对话补全服务（默认 DeepSeek）
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Prompt 一次补全请求的系统指令和用户消息
type Prompt struct {
	System string
	User   string
}

// ChatClient 与 *openai.Client 的 CreateChatCompletion 方法一致，便于替换后端
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client 要求返回 JSON 对象的补全客户端
type Client struct {
	chat  ChatClient
	model string
}

// New 使用 API Key 创建客户端，baseURL 为空时使用 OpenAI 官方地址
func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return NewWithChatClient(openai.NewClientWithConfig(cfg), model)
}

// NewWithChatClient 使用自定义后端创建客户端
func NewWithChatClient(chat ChatClient, model string) *Client {
	return &Client{chat: chat, model: model}
}

// Model 模型名称
func (c *Client) Model() string {
	return c.model
}

// Complete 发送两条消息并返回第一条候选的原始内容
//
// 没有候选时返回空字符串，由调用方判定为空响应。不做重试。
func (c *Client) Complete(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		N: 1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

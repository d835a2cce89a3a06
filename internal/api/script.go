package api

import (
	"context"
	"net/url"
	"strconv"
)

// SaveDeepSeekAPIKey 保存 DeepSeek API Key 到服务端配置
func (c *Client) SaveDeepSeekAPIKey(ctx context.Context, apiKey string) error {
	form := url.Values{"api_key": {apiKey}}
	return c.postForm(ctx, "/save_deepseek_api_key", form, nil)
}

// GenerateAIScript 调用服务端的 AI 文案生成
func (c *Client) GenerateAIScript(ctx context.Context, prompt string) (string, error) {
	form := url.Values{"prompt": {prompt}}

	var resp struct {
		Script string `json:"script"`
	}
	if err := c.postForm(ctx, "/generate_ai_script", form, &resp); err != nil {
		return "", err
	}
	return resp.Script, nil
}

// SplitScript 调用服务端切分文案。
// 控制台自身使用本地切分（internal/script），此接口供 MCP 工具等外部消费方使用。
func (c *Client) SplitScript(ctx context.Context, scriptText, splitMode, customSplitChars string, calculateDuration bool, msPerChar int) ([]Segment, error) {
	form := url.Values{
		"script_text":        {scriptText},
		"split_mode":         {splitMode},
		"custom_split_chars": {customSplitChars},
		"calculate_duration": {strconv.FormatBool(calculateDuration)},
		"ms_per_char":        {strconv.Itoa(msPerChar)},
	}

	var resp struct {
		Segments []Segment `json:"segments"`
	}
	if err := c.postForm(ctx, "/split_script", form, &resp); err != nil {
		return nil, err
	}
	return resp.Segments, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client 封装 TTS 服务端的全部 HTTP 接口。
// 服务端是唯一的事实来源，客户端不做任何重试。
type Client struct {
	BaseURL    string
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// NewClient 创建新的客户端实例
func NewClient(logger *zap.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000" // 默认地址
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Logger:  logger,
		HTTPClient: &http.Client{
			Timeout: 600 * time.Second, // TTS生成可能需要较长时间
		},
	}
}

// envelope 所有接口共有的响应外壳
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError 应用层失败：响应可解析但 success 为 false
type APIError struct {
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s 请求失败", e.Endpoint)
	}
	return e.Message
}

// AudioURL 将服务端音频路径映射为可播放的完整地址
func (c *Client) AudioURL(path string) string {
	return c.BaseURL + "/audio/" + strings.TrimLeft(path, "/")
}

// OutputURL 将生成结果文件路径映射为可下载的完整地址
func (c *Client) OutputURL(outputFile string) string {
	return c.BaseURL + "/" + strings.TrimLeft(outputFile, "/")
}

// postForm 发送表单请求并解析 JSON 响应到 out（out 可为 nil）
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, endpoint, out)
}

// getJSON 发送 GET 请求并解析 JSON 响应
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	target := c.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}

	return c.do(req, endpoint, out)
}

// do 执行请求。错误信息按以下顺序回退：
// 结构化 error 字段 -> 原始响应文本 -> 通用提示。
func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Endpoint: endpoint, Message: extractError(body)}
	}

	// /get_history 返回顶层数组，外壳校验只针对对象响应
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("解析响应数据失败: %v", err)
			}
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	// 部分 GET 接口（如 /get_voices）没有 success 字段，
	// 只要能解析就按成功处理。
	if strings.Contains(trimmed, `"success"`) && !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		c.Logger.Warn("接口返回失败", zap.String("endpoint", endpoint), zap.String("error", msg))
		return &APIError{Endpoint: endpoint, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("解析响应数据失败: %v", err)
		}
	}
	return nil
}

// extractError 从非 2xx 响应体中提取最具体的错误描述
func extractError(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && len(text) < 512 {
		return text
	}
	return "服务器错误，请重试"
}

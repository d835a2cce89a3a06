package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcp "github.com/mark3labs/mcp-go/mcp"
	mcp_server "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
)

// Handler 注册并处理 MCP 工具请求
type Handler struct {
	server    *mcp_server.MCPServer
	client    *api.Client
	logger    *zap.Logger
	toolNames []string
}

func NewHandler(server *mcp_server.MCPServer, client *api.Client, logger *zap.Logger) *Handler {
	return &Handler{
		server:    server,
		client:    client,
		logger:    logger,
		toolNames: make([]string, 0),
	}
}

// RegisterTools 注册全部工具
func (h *Handler) RegisterTools() {
	generateSpeechTool := mcp.NewTool("generate_speech",
		mcp.WithDescription("Generate speech audio from text using IndexTTS voice cloning"),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to convert to speech")),
		mcp.WithString("voice", mcp.Required(), mcp.Description("Reference audio path for voice cloning")),
		mcp.WithString("model", mcp.Description("Model checkpoint directory, defaults to checkpoints")),
		mcp.WithString("infer_mode", mcp.Description("Inference mode: 普通推理 or 批次推理")),
	)
	h.server.AddTool(generateSpeechTool, h.handleGenerateSpeech)
	h.toolNames = append(h.toolNames, "generate_speech")

	splitScriptTool := mcp.NewTool("split_script",
		mcp.WithDescription("Split a script into timed segments for video narration"),
		mcp.WithString("script_text", mcp.Required(), mcp.Description("The script text to split")),
		mcp.WithString("split_mode", mcp.Description("Split mode: period, comma, four or custom")),
		mcp.WithString("custom_split_chars", mcp.Description("Split characters when split_mode is custom")),
		mcp.WithBoolean("calculate_duration", mcp.Description("Whether to estimate a duration per segment")),
	)
	h.server.AddTool(splitScriptTool, h.handleSplitScript)
	h.toolNames = append(h.toolNames, "split_script")

	generateAIScriptTool := mcp.NewTool("generate_ai_script",
		mcp.WithDescription("Generate a short-video narration script with DeepSeek"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("Topic or prompt for the script")),
	)
	h.server.AddTool(generateAIScriptTool, h.handleGenerateAIScript)
	h.toolNames = append(h.toolNames, "generate_ai_script")

	h.logger.Info("MCP工具注册完成", zap.Int("tool_count", len(h.toolNames)))
}

func (h *Handler) handleGenerateSpeech(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		h.logger.Error("缺少text参数", zap.Error(err))
		return mcp.NewToolResultError("Missing required parameter: text"), nil
	}

	voice, err := request.RequireString("voice")
	if err != nil {
		h.logger.Error("缺少voice参数", zap.Error(err))
		return mcp.NewToolResultError("Missing required parameter: voice"), nil
	}

	params := api.DefaultGenerateParams()
	params.Text = text
	params.Voice = voice
	if model := request.GetString("model", ""); model != "" {
		params.Model = model
	}
	if mode := request.GetString("infer_mode", ""); mode != "" {
		params.InferMode = mode
	}

	result, err := h.client.Generate(ctx, params)
	if err != nil {
		h.logger.Error("生成语音失败", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate speech: %v", err)), nil
	}

	response := map[string]interface{}{
		"output_file":     result.OutputFile,
		"audio_url":       h.client.OutputURL(result.OutputFile),
		"generation_time": result.GenerationTime,
	}
	responseJSON, _ := json.Marshal(response)
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func (h *Handler) handleSplitScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scriptText, err := request.RequireString("script_text")
	if err != nil {
		h.logger.Error("缺少script_text参数", zap.Error(err))
		return mcp.NewToolResultError("Missing required parameter: script_text"), nil
	}

	splitMode := request.GetString("split_mode", "period")
	customChars := request.GetString("custom_split_chars", "")
	calcDuration := request.GetBool("calculate_duration", true)

	segments, err := h.client.SplitScript(ctx, scriptText, splitMode, customChars, calcDuration, 0)
	if err != nil {
		h.logger.Error("切分文案失败", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to split script: %v", err)), nil
	}

	responseJSON, _ := json.Marshal(map[string]interface{}{
		"segments": segments,
		"count":    len(segments),
	})
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func (h *Handler) handleGenerateAIScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		h.logger.Error("缺少prompt参数", zap.Error(err))
		return mcp.NewToolResultError("Missing required parameter: prompt"), nil
	}

	script, err := h.client.GenerateAIScript(ctx, prompt)
	if err != nil {
		h.logger.Error("生成文案失败", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate script: %v", err)), nil
	}

	responseJSON, _ := json.Marshal(map[string]interface{}{"script": script})
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func (h *Handler) GetToolNames() []string {
	return append([]string(nil), h.toolNames...)
}

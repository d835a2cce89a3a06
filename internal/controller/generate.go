package controller

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// GenerateOutcome 一次生成的结果视图
type GenerateOutcome struct {
	AudioURL       string
	DownloadURL    string
	GenerationTime float64
	Record         api.GenerationRecord
}

// GenerateController 语音生成表单控制器
type GenerateController struct {
	client *api.Client
	store  *state.Store
	logger *zap.Logger

	mu   sync.Mutex
	busy bool
}

// NewGenerateController 创建生成控制器
func NewGenerateController(client *api.Client, store *state.Store, logger *zap.Logger) *GenerateController {
	return &GenerateController{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Busy 是否有生成请求在途，在途期间生成按钮保持禁用
func (c *GenerateController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Submit 提交生成请求。
// 未选择参考音频时自动选中第一个；没有任何音频时不发请求直接报错。
// busy 标志在请求结束时无条件清除，保证界面不会永久禁用。
func (c *GenerateController) Submit(ctx context.Context, params api.GenerateParams) (*GenerateOutcome, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, &InputError{Message: "请输入要生成的文本"}
	}

	voicePath, err := c.store.EnsureSelection(state.PanelGeneral)
	if err != nil {
		return nil, &InputError{Message: err.Error()}
	}
	params.Voice = voicePath
	if params.Model == "" {
		params.Model = c.store.Model(state.PanelGeneral)
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, &InputError{Message: "已有生成任务进行中，请稍候"}
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	c.logger.Info("提交语音生成",
		zap.String("voice", params.Voice),
		zap.String("model", params.Model),
		zap.Int("text_len", len(params.Text)))

	result, err := c.client.Generate(ctx, params)
	if err != nil {
		c.logger.Error("语音生成失败", zap.Error(err))
		return nil, err
	}

	outcome := &GenerateOutcome{
		AudioURL:       c.client.OutputURL(result.OutputFile),
		DownloadURL:    c.client.OutputURL(result.OutputFile),
		GenerationTime: result.GenerationTime,
	}

	// 响应自带结构化记录，直接插入历史表头部，不再额外拉取
	if result.Record != nil {
		outcome.Record = *result.Record
		c.store.PrependHistory(*result.Record)
	}

	c.logger.Info("语音生成成功",
		zap.String("output", result.OutputFile),
		zap.Float64("seconds", result.GenerationTime))
	return outcome, nil
}

// InputError 提交前的本地校验失败，不产生网络请求
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

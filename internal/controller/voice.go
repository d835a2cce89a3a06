package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// VoiceController 音频表格控制器：分类筛选、单选、备注与分类编辑
type VoiceController struct {
	client     *api.Client
	store      *state.Store
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewVoiceController 创建音频表格控制器
func NewVoiceController(client *api.Client, store *state.Store, reconciler *Reconciler, logger *zap.Logger) *VoiceController {
	return &VoiceController{
		client:     client,
		store:      store,
		reconciler: reconciler,
		logger:     logger,
	}
}

// SetFilter 设置分类筛选。筛选只影响展示，不改动数据。
func (c *VoiceController) SetFilter(panel state.Panel, category string) {
	c.store.SetFilter(panel, category)
}

// SelectVoice 选中一个参考音频，同一面板同时只有一个选中项
func (c *VoiceController) SelectVoice(panel state.Panel, voicePath string) error {
	return c.store.SelectVoice(panel, voicePath)
}

// SelectModel 切换模型并重新拉取该模型的参考音频列表
func (c *VoiceController) SelectModel(ctx context.Context, panel state.Panel, modelPath string) error {
	c.store.SetModel(panel, modelPath)

	list, err := c.client.GetVoices(ctx, modelPath)
	if err != nil {
		return fmt.Errorf("加载参考音频列表失败: %v", err)
	}
	c.store.PatchVoices(list.Voices)

	// 有可选音频时默认选中第一个
	if len(list.Voices) > 0 {
		if err := c.store.SelectVoice(panel, list.Voices[0].Path); err != nil {
			return err
		}
	}
	return nil
}

// SaveNote 保存音频备注。失败时本地状态保持不变，备注仍可编辑。
func (c *VoiceController) SaveNote(ctx context.Context, voiceName, note, modelPath string) error {
	if err := c.client.UpdateNote(ctx, voiceName, note, modelPath); err != nil {
		return fmt.Errorf("保存备注失败: %v", err)
	}
	c.store.SetVoiceNote(voiceName, note)
	c.logger.Info("备注已保存", zap.String("voice", voiceName))
	return nil
}

// ChangeCategory 修改音频分类。
// 不做乐观更新：分类影响分组展示，成功后做一次完整协调保证全局一致。
func (c *VoiceController) ChangeCategory(ctx context.Context, voiceName, categoryID string) error {
	if err := c.client.UpdateVoiceCategory(ctx, voiceName, categoryID); err != nil {
		return fmt.Errorf("更新分类失败: %v", err)
	}
	return c.reconciler.Refresh(ctx)
}

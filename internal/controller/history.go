package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// HistoryController 生成历史控制器：播放、查看全文、删除
type HistoryController struct {
	client *api.Client
	store  *state.Store
	logger *zap.Logger
}

// NewHistoryController 创建历史控制器
func NewHistoryController(client *api.Client, store *state.Store, logger *zap.Logger) *HistoryController {
	return &HistoryController{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Play 将共享播放器的音频源指向该记录的输出文件
func (c *HistoryController) Play(recordID string) error {
	record, ok := c.store.FindRecord(recordID)
	if !ok {
		return fmt.Errorf("记录不存在: %s", recordID)
	}
	c.store.SetPlayerSource(c.client.OutputURL(record.OutputFile))
	return nil
}

// FullText 返回记录的完整文本（未截断）
func (c *HistoryController) FullText(recordID string) (string, error) {
	record, ok := c.store.FindRecord(recordID)
	if !ok {
		return "", fmt.Errorf("记录不存在: %s", recordID)
	}
	if record.FullText != "" {
		return record.FullText, nil
	}
	return record.Text, nil
}

// Delete 删除一条历史记录。调用方负责交互确认。
// 成功时只移除该条并更新计数，列表清空由视图层替换为占位行。
func (c *HistoryController) Delete(ctx context.Context, recordID string) (int, error) {
	if err := c.client.DeleteRecord(ctx, recordID); err != nil {
		return c.store.HistoryCount(), fmt.Errorf("删除记录失败: %v", err)
	}

	if !c.store.RemoveHistory(recordID) {
		c.logger.Warn("删除的记录在本地不存在", zap.String("record_id", recordID))
	}

	count := c.store.HistoryCount()
	c.logger.Info("历史记录已删除",
		zap.String("record_id", recordID),
		zap.Int("remaining", count))
	return count, nil
}

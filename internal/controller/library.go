package controller

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
)

// ProgressSink 接收上传/替换过程的进度事件（内部经 WebSocket 推送到页面）
type ProgressSink interface {
	Publish(source, message string, percent int)
}

// UploadSummary 批量上传的汇总结果
type UploadSummary struct {
	Message      string
	Details      []api.UploadDetail
	SuccessCount int
	FailCount    int
	// FailureSummary 列出失败的文件及原因，为空表示全部成功
	FailureSummary string
}

// LibraryController 音频库控制器：批量上传、删除音频、分类增删
type LibraryController struct {
	client     *api.Client
	reconciler *Reconciler
	progress   ProgressSink
	logger     *zap.Logger
}

// NewLibraryController 创建音频库控制器
func NewLibraryController(client *api.Client, reconciler *Reconciler, progress ProgressSink, logger *zap.Logger) *LibraryController {
	return &LibraryController{
		client:     client,
		reconciler: reconciler,
		progress:   progress,
		logger:     logger,
	}
}

// Upload 批量上传参考音频。
// 进度按传输字节推导，服务端处理期间封顶在 90%，收到响应后置为 100%。
// patchInPlace 为 true 且响应带回音频列表时就地替换表格，否则做完整协调。
func (c *LibraryController) Upload(ctx context.Context, categoryID string, files []api.UploadFile, patchInPlace bool) (*UploadSummary, error) {
	if len(files) == 0 {
		return nil, &InputError{Message: "请选择要上传的音频文件"}
	}

	c.publish(fmt.Sprintf("正在上传 %d 个文件...", len(files)), 10)

	result, err := c.client.BatchUploadAudio(ctx, categoryID, files, func(loaded, total int64) {
		percent := 0
		if total > 0 {
			percent = int(loaded * 100 / total)
		}
		if percent > 90 {
			percent = 90
		}
		c.publish(fmt.Sprintf("上传进度: %d%%", percent), percent)
	})
	if err != nil {
		c.publish("上传失败", 100)
		return nil, err
	}

	summary := &UploadSummary{
		Message: result.Message,
		Details: result.Details,
	}
	var failures []string
	for _, detail := range result.Details {
		if detail.Success {
			summary.SuccessCount++
		} else {
			summary.FailCount++
			failures = append(failures, fmt.Sprintf("- %s: %s", detail.Filename, detail.Message))
		}
	}
	if summary.FailCount > 0 {
		summary.FailureSummary = fmt.Sprintf("失败的文件:\n%s", strings.Join(failures, "\n"))
	}

	c.publish(result.Message, 100)
	c.logger.Info("批量上传完成",
		zap.Int("success", summary.SuccessCount),
		zap.Int("failed", summary.FailCount))

	if patchInPlace && len(result.Voices) > 0 {
		c.reconciler.store.PatchVoices(result.Voices)
		return summary, nil
	}
	if err := c.reconciler.Refresh(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}

// Delete 删除音频文件。encodedName 为行键使用的百分号编码文件名，
// 请求体原样携带编码值以与写入时保持一致。调用方负责确认弹窗。
// 本地未找到匹配行时退回完整协调，避免残留过期界面。
func (c *LibraryController) Delete(ctx context.Context, encodedName string) error {
	if err := c.client.DeleteAudio(ctx, encodedName); err != nil {
		return fmt.Errorf("删除失败: %v", err)
	}

	if !c.reconciler.store.RemoveVoiceByEncodedName(encodedName) {
		c.logger.Warn("本地未找到对应音频行，执行完整协调", zap.String("filename", encodedName))
		return c.reconciler.Refresh(ctx)
	}

	c.logger.Info("音频文件已删除", zap.String("filename", encodedName))
	return nil
}

// AddCategory 新增分类，两个字段都要求去除空白后非空
func (c *LibraryController) AddCategory(ctx context.Context, categoryID, categoryName string) error {
	if strings.TrimSpace(categoryID) == "" {
		return &InputError{Message: "请输入分类ID"}
	}
	if strings.TrimSpace(categoryName) == "" {
		return &InputError{Message: "请输入分类名称"}
	}

	if err := c.client.AddCategory(ctx, categoryID, categoryName); err != nil {
		return fmt.Errorf("添加分类失败: %v", err)
	}
	return c.reconciler.Refresh(ctx)
}

// DeleteCategory 删除分类。已归属该分类的音频保留原 category_id，
// 不做任何级联处理，由操作者手动重新归类。
func (c *LibraryController) DeleteCategory(ctx context.Context, categoryID string) error {
	if strings.TrimSpace(categoryID) == "" {
		return &InputError{Message: "请指定要删除的分类"}
	}

	if err := c.client.DeleteCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("删除分类失败: %v", err)
	}
	return c.reconciler.Refresh(ctx)
}

func (c *LibraryController) publish(message string, percent int) {
	if c.progress != nil {
		c.progress.Publish("音频上传", message, percent)
	}
}

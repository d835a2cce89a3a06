package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// AudioSlotController 剪映工程配音槽位管理
type AudioSlotController struct {
	client *api.Client
	store  *state.Store
	logger *zap.Logger

	mu      sync.Mutex
	project string
	slots   []api.AudioSlot
	allSubs bool
}

func NewAudioSlotController(client *api.Client, store *state.Store, logger *zap.Logger) *AudioSlotController {
	return &AudioSlotController{client: client, store: store, logger: logger}
}

// Load 加载工程的配音槽位。
// getAllSubtitles 为真时包含没有对应音频的字幕条目。
func (ac *AudioSlotController) Load(ctx context.Context, project string, getAllSubtitles bool) (int, error) {
	if strings.TrimSpace(project) == "" {
		return 0, &InputError{Message: "请先选择剪映工程"}
	}

	dir := ac.store.ProjectDir()
	if dir == "" {
		return 0, &InputError{Message: "请先检测剪映工程目录"}
	}

	slots, err := ac.client.LoadProjectAudio(ctx, dir, project, getAllSubtitles)
	if err != nil {
		return 0, err
	}

	ac.mu.Lock()
	ac.project = project
	ac.slots = slots
	ac.allSubs = getAllSubtitles
	ac.mu.Unlock()

	ac.logger.Info("加载配音槽位完成",
		zap.String("project", project), zap.Int("count", len(slots)))
	return len(slots), nil
}

// SaveText 保存单个槽位的文案。文案未变化时不发请求直接返回。
func (ac *AudioSlotController) SaveText(ctx context.Context, slotID, textContent string) error {
	ac.mu.Lock()
	idx := ac.indexLocked(slotID)
	if idx < 0 {
		ac.mu.Unlock()
		return &InputError{Message: fmt.Sprintf("槽位不存在: %s", slotID)}
	}
	slot := ac.slots[idx]
	ac.mu.Unlock()

	if slot.TextContent == textContent {
		return nil
	}

	err := ac.client.SaveProjectText(ctx, ac.store.ProjectDir(), ac.project, slot.TextID, slot.ID, textContent)
	if err != nil {
		return err
	}

	ac.mu.Lock()
	if idx := ac.indexLocked(slotID); idx >= 0 {
		ac.slots[idx].TextContent = textContent
	}
	ac.mu.Unlock()
	return nil
}

// ReplaceSummary 批量替换配音的结果汇总
type ReplaceSummary struct {
	Message      string
	SuccessCount int
	FailCount    int
	Failures     []api.ReplaceResult
}

// Replace 对选中的槽位批量生成并替换配音。
// 整体返回成功不代表逐条成功，只有服务端报告成功的槽位才标记为已配音。
func (ac *AudioSlotController) Replace(ctx context.Context, slotIDs []string, syncPosition, appendToLast bool) (*ReplaceSummary, error) {
	if len(slotIDs) == 0 {
		return nil, &InputError{Message: "请至少选择一个配音槽位"}
	}

	voicePath, err := ac.store.EnsureSelection(state.PanelJianying)
	if err != nil {
		return nil, &InputError{Message: err.Error()}
	}
	model := ac.store.Model(state.PanelJianying)

	ac.mu.Lock()
	project := ac.project
	items := make([]api.AudioItem, 0, len(slotIDs))
	for _, id := range slotIDs {
		idx := ac.indexLocked(id)
		if idx < 0 {
			ac.mu.Unlock()
			return nil, &InputError{Message: fmt.Sprintf("槽位不存在: %s", id)}
		}
		items = append(items, api.AudioItem{
			ID:   ac.slots[idx].ID,
			Text: ac.slots[idx].TextContent,
		})
	}
	ac.mu.Unlock()

	result, err := ac.client.ReplaceAudio(ctx, ac.store.ProjectDir(), project, items, model, voicePath, syncPosition, appendToLast)
	if err != nil {
		return nil, err
	}

	summary := &ReplaceSummary{Message: result.Message}
	succeeded := make(map[string]bool)
	for _, r := range result.Results {
		if r.Success {
			summary.SuccessCount++
			succeeded[r.ID] = true
		} else {
			summary.FailCount++
			summary.Failures = append(summary.Failures, r)
		}
	}

	ac.mu.Lock()
	for i := range ac.slots {
		if succeeded[ac.slots[i].ID] {
			ac.slots[i].Status = true
			ac.slots[i].FileExists = true
		}
	}
	ac.mu.Unlock()

	ac.logger.Info("批量替换配音完成",
		zap.String("project", project),
		zap.Int("success", summary.SuccessCount), zap.Int("fail", summary.FailCount))
	return summary, nil
}

// Play 播放某个槽位的已生成音频
func (ac *AudioSlotController) Play(slotID string) error {
	ac.mu.Lock()
	idx := ac.indexLocked(slotID)
	if idx < 0 {
		ac.mu.Unlock()
		return &InputError{Message: fmt.Sprintf("槽位不存在: %s", slotID)}
	}
	slot := ac.slots[idx]
	ac.mu.Unlock()

	if !slot.FileExists {
		return &InputError{Message: "该槽位还没有生成的音频"}
	}
	ac.store.SetPlayerSource(ac.client.AudioURL(slot.Path))
	return nil
}

// Slots 返回槽位副本
func (ac *AudioSlotController) Slots() []api.AudioSlot {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return append([]api.AudioSlot(nil), ac.slots...)
}

// Project 当前加载的工程名
func (ac *AudioSlotController) Project() string {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.project
}

func (ac *AudioSlotController) indexLocked(slotID string) int {
	for i := range ac.slots {
		if ac.slots[i].ID == slotID {
			return i
		}
	}
	return -1
}

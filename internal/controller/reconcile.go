package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// SnapshotCache 本地快照缓存，协调成功后写入，启动时用于先行渲染
type SnapshotCache interface {
	Save(snap state.Snapshot) error
	Load() (state.Snapshot, error)
}

// Reconciler 状态协调器。
// 任何修改服务端状态的操作完成后都调用 Refresh：重新拉取一次完整快照，
// 所有依赖视图（分类徽章、下拉框、表格）从同一份快照重新推导，
// 取代原来"局部补丁 + 整页刷新"混用的做法。
type Reconciler struct {
	client *api.Client
	store  *state.Store
	cache  SnapshotCache
	logger *zap.Logger
}

// NewReconciler 创建协调器，cache 可为 nil
func NewReconciler(client *api.Client, store *state.Store, cache SnapshotCache, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		client: client,
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Refresh 拉取服务端快照并整体替换本地状态
func (r *Reconciler) Refresh(ctx context.Context) error {
	list, err := r.client.GetVoices(ctx, r.store.Model(state.PanelGeneral))
	if err != nil {
		return fmt.Errorf("拉取音频列表失败: %v", err)
	}

	history, err := r.client.GetHistory(ctx)
	if err != nil {
		return fmt.Errorf("拉取历史记录失败: %v", err)
	}

	snap := state.Snapshot{
		Voices:     list.Voices,
		Categories: list.Categories,
		History:    history,
	}
	r.store.ApplySnapshot(snap)

	if r.cache != nil {
		if err := r.cache.Save(snap); err != nil {
			// 缓存只影响下次启动的首屏，不阻塞本次协调
			r.logger.Warn("写入本地快照缓存失败", zap.Error(err))
		}
	}

	r.logger.Info("状态协调完成",
		zap.Int("voices", len(snap.Voices)),
		zap.Int("categories", len(snap.Categories)),
		zap.Int("history", len(snap.History)))
	return nil
}

// Restore 启动时从本地缓存恢复上次快照，失败时保持空状态
func (r *Reconciler) Restore() {
	if r.cache == nil {
		return
	}
	snap, err := r.cache.Load()
	if err != nil {
		r.logger.Warn("读取本地快照缓存失败", zap.Error(err))
		return
	}
	r.store.ApplySnapshot(snap)
}

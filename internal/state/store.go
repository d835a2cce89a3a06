package state

import (
	"errors"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
)

// Panel 区分通用面板和剪映面板，两个面板各自维护独立的音频选择
type Panel string

const (
	PanelGeneral  Panel = "general"
	PanelJianying Panel = "jianying"
)

// FilterAll 分类筛选的哨兵值，表示展示全部
const FilterAll = "all"

// ErrNoVoices 在没有任何参考音频可选时返回
var ErrNoVoices = errors.New("请至少添加一个参考音频")

// Snapshot 服务端状态的一次完整快照，协调后所有视图都由它重新推导
type Snapshot struct {
	Voices     []api.Voice
	Categories []api.Category
	History    []api.GenerationRecord
}

type panelState struct {
	voicePath string
	model     string
	filter    string
}

// Store 页面生命周期内的共享可变状态。
// 所有控制器只通过它读写选中音频/模型/筛选等标量，不再各自持有副本。
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger

	voices     []api.Voice
	categories []api.Category
	history    []api.GenerationRecord

	panels       map[Panel]*panelState
	playerSource string
	projectDir   string
}

// NewStore 创建空的状态存储
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		panels: map[Panel]*panelState{
			PanelGeneral:  {filter: FilterAll},
			PanelJianying: {filter: FilterAll},
		},
	}
}

// ApplySnapshot 用服务端快照整体替换本地状态。
// 选中的音频在新列表中不存在时会被清空，筛选值保持不变。
func (s *Store) ApplySnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voices = snap.Voices
	s.categories = snap.Categories
	s.history = snap.History

	for panel, ps := range s.panels {
		if ps.voicePath == "" {
			continue
		}
		if s.findVoiceByPath(ps.voicePath) == nil {
			s.logger.Info("选中音频已不存在，清空选择",
				zap.String("panel", string(panel)),
				zap.String("path", ps.voicePath))
			ps.voicePath = ""
		}
	}
}

// Voices 返回当前音频列表的副本
func (s *Store) Voices() []api.Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Voice(nil), s.voices...)
}

// Categories 返回当前分类列表的副本
func (s *Store) Categories() []api.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Category(nil), s.categories...)
}

// History 返回当前历史记录的副本
func (s *Store) History() []api.GenerationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.GenerationRecord(nil), s.history...)
}

// HistoryCount 当前历史记录条数
func (s *Store) HistoryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// FindRecord 按 id 查找历史记录
func (s *Store) FindRecord(id string) (api.GenerationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.history {
		if record.ID == id {
			return record, true
		}
	}
	return api.GenerationRecord{}, false
}

// PrependHistory 把新记录插到历史列表最前面
func (s *Store) PrependHistory(record api.GenerationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]api.GenerationRecord{record}, s.history...)
}

// RemoveHistory 按 id 删除历史记录，返回是否命中
func (s *Store) RemoveHistory(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, record := range s.history {
		if record.ID == id {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return true
		}
	}
	return false
}

// SetFilter 设置面板的分类筛选值
func (s *Store) SetFilter(panel Panel, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category == "" {
		category = FilterAll
	}
	s.panels[panel].filter = category
}

// Filter 返回面板当前的分类筛选值
func (s *Store) Filter(panel Panel) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panels[panel].filter
}

// SelectVoice 选中一个音频。路径必须存在于当前列表中。
func (s *Store) SelectVoice(panel Panel, voicePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findVoiceByPath(voicePath) == nil {
		return errors.New("指定的参考音频不存在")
	}
	s.panels[panel].voicePath = voicePath
	return nil
}

// SelectedVoice 返回面板当前选中的音频路径，未选中时为空串
func (s *Store) SelectedVoice(panel Panel) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panels[panel].voicePath
}

// EnsureSelection 保证面板有一个选中音频：
// 已有选择时原样返回；否则自动选中第一个音频；没有任何音频时报错。
func (s *Store) EnsureSelection(panel Panel) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.panels[panel]
	if ps.voicePath != "" {
		return ps.voicePath, nil
	}
	if len(s.voices) == 0 {
		return "", ErrNoVoices
	}
	ps.voicePath = s.voices[0].Path
	s.logger.Info("未选择参考音频，自动选中第一个",
		zap.String("panel", string(panel)),
		zap.String("path", ps.voicePath))
	return ps.voicePath, nil
}

// SetModel 记录面板当前使用的模型
func (s *Store) SetModel(panel Panel, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[panel].model = model
}

// Model 返回面板当前使用的模型
func (s *Store) Model(panel Panel) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panels[panel].model
}

// SetVoiceNote 更新本地列表中某个音频的备注
func (s *Store) SetVoiceNote(voiceName, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.voices {
		if s.voices[i].Name == voiceName {
			s.voices[i].Note = note
			return
		}
	}
}

// PatchVoices 用上传响应里的音频列表就地替换，不触发完整协调
func (s *Store) PatchVoices(voices []api.Voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = voices
	for _, ps := range s.panels {
		if ps.voicePath != "" && s.findVoiceByPath(ps.voicePath) == nil {
			ps.voicePath = ""
		}
	}
}

// RemoveVoiceByEncodedName 按百分号编码的文件名删除本地行。
// 行键写入时即为编码形式，删除时按同样的编码匹配；未命中返回 false，
// 调用方应退回到完整协调。
func (s *Store) RemoveVoiceByEncodedName(encodedName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, voice := range s.voices {
		if url.PathEscape(voice.Name) == encodedName {
			s.voices = append(s.voices[:i], s.voices[i+1:]...)
			for _, ps := range s.panels {
				if ps.voicePath == voice.Path {
					ps.voicePath = ""
				}
			}
			return true
		}
	}
	return false
}

// SetPlayerSource 设置共享历史播放器的音频源
func (s *Store) SetPlayerSource(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerSource = src
}

// PlayerSource 返回共享历史播放器当前的音频源
func (s *Store) PlayerSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerSource
}

// SetProjectDir 记录剪映项目根目录（三个剪映功能共用）
func (s *Store) SetProjectDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectDir = dir
}

// ProjectDir 返回剪映项目根目录
func (s *Store) ProjectDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectDir
}

func (s *Store) findVoiceByPath(path string) *api.Voice {
	for i := range s.voices {
		if s.voices[i].Path == path {
			return &s.voices[i]
		}
	}
	return nil
}

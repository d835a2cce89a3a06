package view

import (
	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/controller"
	"github.com/shiyaaini/index-tts-jianying/internal/script"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// VoiceRow 列表中的一行参考音频
type VoiceRow struct {
	Path       string
	Name       string
	Note       string
	Category   string
	FileExists bool
	Selected   bool
	Filtered   bool
	AudioURL   string
}

// VoicePanel 一个独立的参考音频选择面板
type VoicePanel struct {
	Panel        state.Panel
	Filter       string
	Model        string
	Voices       []VoiceRow
	HasSelection bool
}

// HistoryRow 历史记录中的一行
type HistoryRow struct {
	ID             string
	Timestamp      string
	Voice          string
	Text           string
	FullText       string
	Truncated      bool
	InferMode      string
	GenerationTime float64
	AudioURL       string
}

// SegmentRow 文案编辑器中的一个段落
type SegmentRow struct {
	ID       string
	Order    int
	Text     string
	Duration string
	First    bool
	Last     bool
}

// SlotRow 配音槽位列表中的一行
type SlotRow struct {
	ID          string
	Name        string
	TextContent string
	Status      bool
	FileExists  bool
	AudioURL    string
}

// FontOption 可选字体和它的预览规则标识
type FontOption struct {
	Name      string
	Path      string
	PreviewID string
}

// TextRow 字体替换列表中的一行工程文本
type TextRow struct {
	ID          string
	Content     string
	CurrentFont string
	FontSize    float64
	Selection   string
}

// Page 首页的完整视图模型，渲染期间不触发任何网络请求
type Page struct {
	General      VoicePanel
	Jianying     VoicePanel
	Categories   []api.Category
	History      []HistoryRow
	HistoryCount int
	PlayerSource string

	ProjectDir string
	Projects   []string
	Project    string
	FontPhase  controller.FontPhase
	Texts      []TextRow
	Fonts      []FontOption
	FontCSS    string

	Segments []SegmentRow
	Slots    []SlotRow

	Flash      string
	FlashError bool
}

// historyPreviewRunes 历史文本的预览长度，超出部分折叠到完整文本弹层
const historyPreviewRunes = 50

// BuildVoicePanel 按面板的分类筛选和选中状态构建列表
func BuildVoicePanel(store *state.Store, panel state.Panel, audioURL func(string) string) VoicePanel {
	filter := store.Filter(panel)
	selected := store.SelectedVoice(panel)

	vp := VoicePanel{
		Panel:  panel,
		Filter: filter,
		Model:  store.Model(panel),
	}

	for _, v := range store.Voices() {
		row := VoiceRow{
			Path:       v.Path,
			Name:       v.Name,
			Note:       v.Note,
			Category:   v.Category,
			FileExists: v.FileExists,
			Selected:   v.Path == selected,
			// 筛选只影响展示，不影响已有的选中状态
			Filtered:   filter != state.FilterAll && v.Category != filter,
			AudioURL:   audioURL(v.Path),
		}
		if row.Selected {
			vp.HasSelection = true
		}
		vp.Voices = append(vp.Voices, row)
	}
	return vp
}

// BuildHistory 构建历史记录列表，长文本截断展示
func BuildHistory(records []api.GenerationRecord, outputURL func(string) string) []HistoryRow {
	rows := make([]HistoryRow, 0, len(records))
	for _, r := range records {
		full := r.FullText
		if full == "" {
			full = r.Text
		}
		preview := full
		truncated := false
		if runes := []rune(full); len(runes) > historyPreviewRunes {
			preview = string(runes[:historyPreviewRunes]) + "..."
			truncated = true
		}
		rows = append(rows, HistoryRow{
			ID:             r.ID,
			Timestamp:      r.Timestamp,
			Voice:          r.Voice,
			Text:           preview,
			FullText:       full,
			Truncated:      truncated,
			InferMode:      r.InferMode,
			GenerationTime: r.GenerationTime,
			AudioURL:       outputURL(r.OutputFile),
		})
	}
	return rows
}

// BuildSegments 构建文案段落列表，时长格式化为秒数显示
func BuildSegments(segments []controller.ScriptSegment) []SegmentRow {
	rows := make([]SegmentRow, 0, len(segments))
	for i, s := range segments {
		row := SegmentRow{
			ID:    s.ID,
			Order: s.Order,
			Text:  s.Text,
			First: i == 0,
			Last:  i == len(segments)-1,
		}
		if s.Duration != nil {
			row.Duration = script.FormatDuration(*s.Duration)
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildSlots 构建配音槽位列表
func BuildSlots(slots []api.AudioSlot, audioURL func(string) string) []SlotRow {
	rows := make([]SlotRow, 0, len(slots))
	for _, s := range slots {
		row := SlotRow{
			ID:          s.ID,
			Name:        s.Name,
			TextContent: s.TextContent,
			Status:      s.Status,
			FileExists:  s.FileExists,
		}
		if s.FileExists {
			row.AudioURL = audioURL(s.Path)
		}
		rows = append(rows, row)
	}
	return rows
}

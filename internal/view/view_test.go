package view

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/controller"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

func newFilledStore(t *testing.T) *state.Store {
	t.Helper()
	store := state.NewStore(zap.NewNop())
	store.ApplySnapshot(state.Snapshot{
		Voices: []api.Voice{
			{Path: "refs/一号.wav", Name: "一号.wav", Category: "default", FileExists: true},
			{Path: "refs/二号.wav", Name: "二号.wav", Category: "news", FileExists: true},
			{Path: "refs/三号.wav", Name: "三号.wav", Category: "news", FileExists: true},
		},
		Categories: []api.Category{
			{ID: "default", Name: "默认"},
			{ID: "news", Name: "新闻"},
		},
	})
	return store
}

func audioURL(path string) string { return "/audio/" + path }

// TestBuildVoicePanelFilterOnlyMarksRows 测试分类筛选只标记行，不改变选中状态
func TestBuildVoicePanelFilterOnlyMarksRows(t *testing.T) {
	store := newFilledStore(t)
	if err := store.SelectVoice(state.PanelGeneral, "refs/一号.wav"); err != nil {
		t.Fatalf("选择音频失败: %v", err)
	}
	store.SetFilter(state.PanelGeneral, "news")

	panel := BuildVoicePanel(store, state.PanelGeneral, audioURL)

	if len(panel.Voices) != 3 {
		t.Fatalf("筛选不应删除行，应有3行，实际 %d", len(panel.Voices))
	}
	if !panel.Voices[0].Filtered {
		t.Error("不匹配分类的行应标记为被筛掉")
	}
	if panel.Voices[1].Filtered || panel.Voices[2].Filtered {
		t.Error("匹配分类的行不应被筛掉")
	}
	if !panel.Voices[0].Selected {
		t.Error("被筛掉的行仍应保留选中状态")
	}
}

// TestBuildVoicePanelFilterAll 测试 all 哨兵值显示全部行
func TestBuildVoicePanelFilterAll(t *testing.T) {
	store := newFilledStore(t)
	store.SetFilter(state.PanelGeneral, state.FilterAll)

	panel := BuildVoicePanel(store, state.PanelGeneral, audioURL)
	for _, row := range panel.Voices {
		if row.Filtered {
			t.Errorf("all 筛选下 %s 不应被筛掉", row.Name)
		}
	}
}

// TestBuildVoicePanelIndependentSelections 测试两个面板各自持有选中状态
func TestBuildVoicePanelIndependentSelections(t *testing.T) {
	store := newFilledStore(t)
	if err := store.SelectVoice(state.PanelGeneral, "refs/一号.wav"); err != nil {
		t.Fatalf("选择音频失败: %v", err)
	}
	if err := store.SelectVoice(state.PanelJianying, "refs/二号.wav"); err != nil {
		t.Fatalf("选择音频失败: %v", err)
	}

	general := BuildVoicePanel(store, state.PanelGeneral, audioURL)
	jianying := BuildVoicePanel(store, state.PanelJianying, audioURL)

	if !general.Voices[0].Selected || general.Voices[1].Selected {
		t.Error("通用面板应选中一号")
	}
	if jianying.Voices[0].Selected || !jianying.Voices[1].Selected {
		t.Error("剪映面板应选中二号")
	}
}

// TestBuildHistoryTruncation 测试长文本按50字截断并保留全文
func TestBuildHistoryTruncation(t *testing.T) {
	long := strings.Repeat("测", 60)
	rows := BuildHistory([]api.GenerationRecord{
		{ID: "r1", Text: "短文本", OutputFile: "outputs/r1.wav"},
		{ID: "r2", Text: long, OutputFile: "outputs/r2.wav"},
	}, audioURL)

	if rows[0].Truncated {
		t.Error("短文本不应被截断")
	}
	if !rows[1].Truncated {
		t.Fatal("60字文本应被截断")
	}
	if got := []rune(rows[1].Text); len(got) != historyPreviewRunes+3 {
		t.Errorf("截断后应为50字加省略号，实际 %d 字", len(got))
	}
	if rows[1].FullText != long {
		t.Error("全文应完整保留")
	}
}

// TestBuildHistoryPrefersFullText 测试有 full_text 时以其为准
func TestBuildHistoryPrefersFullText(t *testing.T) {
	rows := BuildHistory([]api.GenerationRecord{
		{ID: "r1", Text: "预览", FullText: "完整文本", OutputFile: "outputs/r1.wav"},
	}, audioURL)
	if rows[0].Text != "完整文本" {
		t.Errorf("应优先使用 full_text: %q", rows[0].Text)
	}
}

// TestBuildSegmentsBoundaryFlags 测试段落首尾标记和时长格式化
func TestBuildSegmentsBoundaryFlags(t *testing.T) {
	d := int64(1500000)
	rows := BuildSegments([]controller.ScriptSegment{
		{ID: "a", Order: 1, Text: "第一段", Duration: &d},
		{ID: "b", Order: 2, Text: "第二段"},
		{ID: "c", Order: 3, Text: "第三段"},
	})

	if !rows[0].First || rows[0].Last {
		t.Error("第一行应只有 First 标记")
	}
	if rows[2].First || !rows[2].Last {
		t.Error("最后一行应只有 Last 标记")
	}
	if rows[0].Duration != "1.5秒" {
		t.Errorf("时长格式化错误: %q", rows[0].Duration)
	}
	if rows[1].Duration != "" {
		t.Error("无时长的段落应显示为空")
	}
}

// TestBuildSlotsAudioURLOnlyWhenFileExists 测试仅已有音频的槽位给出试听地址
func TestBuildSlotsAudioURLOnlyWhenFileExists(t *testing.T) {
	rows := BuildSlots([]api.AudioSlot{
		{ID: "s1", Name: "audio_1", Path: "draft/1.wav", FileExists: true},
		{ID: "s2", Name: "audio_2"},
	}, audioURL)

	if rows[0].AudioURL != "/audio/draft/1.wav" {
		t.Errorf("已有音频的槽位地址错误: %q", rows[0].AudioURL)
	}
	if rows[1].AudioURL != "" {
		t.Error("无音频的槽位不应给出地址")
	}
}

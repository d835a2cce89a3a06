package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/script"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// DefaultImportFontSize 导入文案时的默认字号
const DefaultImportFontSize = 6.0

// ScriptSegment 编辑中的文案段落。
// id 在切分时生成且此后不变，排序只修改 order 字段。
type ScriptSegment struct {
	ID       string
	Order    int
	Text     string
	Duration *int64
}

// ScriptController 文案切分与导入流程
type ScriptController struct {
	client *api.Client
	store  *state.Store
	logger *zap.Logger

	mu        sync.Mutex
	segments  []ScriptSegment
	project   string
	msPerChar int
}

// NewScriptController 创建文案控制器，msPerChar 为 0 时用内置估算速率
func NewScriptController(client *api.Client, store *state.Store, msPerChar int, logger *zap.Logger) *ScriptController {
	return &ScriptController{client: client, store: store, msPerChar: msPerChar, logger: logger}
}

// Split 按指定方式切分文案，替换当前全部段落
func (sc *ScriptController) Split(text string, mode script.SplitMode, customSep string, calcDuration bool) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &InputError{Message: "请输入要切分的文案"}
	}

	pieces, err := script.Split(text, script.Options{
		Mode:              mode,
		CustomSplitChars:  customSep,
		CalculateDuration: calcDuration,
		MsPerChar:         sc.msPerChar,
	})
	if err != nil {
		return 0, err
	}

	segments := make([]ScriptSegment, 0, len(pieces))
	for i, p := range pieces {
		segments = append(segments, ScriptSegment{
			ID:       uuid.NewString(),
			Order:    i,
			Text:     p.Text,
			Duration: p.Duration,
		})
	}

	sc.mu.Lock()
	sc.segments = segments
	sc.mu.Unlock()

	sc.logger.Info("切分文案完成",
		zap.String("mode", string(mode)), zap.Int("count", len(segments)))
	return len(segments), nil
}

// UpdateText 修改某个段落的文本
func (sc *ScriptController) UpdateText(segmentID, text string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for i := range sc.segments {
		if sc.segments[i].ID == segmentID {
			sc.segments[i].Text = text
			return nil
		}
	}
	return &InputError{Message: fmt.Sprintf("段落不存在: %s", segmentID)}
}

// UpdateDuration 按显示值修改某个段落的时长。
// 显示值精度只有 0.1 秒，解析回微秒后不保证与切分时的估算值一致。
func (sc *ScriptController) UpdateDuration(segmentID, display string) error {
	micros, ok := script.ParseDuration(display)
	if !ok {
		return &InputError{Message: fmt.Sprintf("无效的时长: %s", display)}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	for i := range sc.segments {
		if sc.segments[i].ID == segmentID {
			sc.segments[i].Duration = &micros
			return nil
		}
	}
	return &InputError{Message: fmt.Sprintf("段落不存在: %s", segmentID)}
}

// MoveUp 把段落向前移动一位。已在首位时不动作。
func (sc *ScriptController) MoveUp(segmentID string) error {
	return sc.move(segmentID, -1)
}

// MoveDown 把段落向后移动一位。已在末位时不动作。
func (sc *ScriptController) MoveDown(segmentID string) error {
	return sc.move(segmentID, 1)
}

func (sc *ScriptController) move(segmentID string, delta int) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	idx := -1
	for i := range sc.segments {
		if sc.segments[i].ID == segmentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &InputError{Message: fmt.Sprintf("段落不存在: %s", segmentID)}
	}

	target := idx + delta
	if target < 0 || target >= len(sc.segments) {
		return nil
	}

	sc.segments[idx], sc.segments[target] = sc.segments[target], sc.segments[idx]
	sc.segments[idx].Order = idx
	sc.segments[target].Order = target
	return nil
}

// Delete 删除段落并压缩剩余段落的序号
func (sc *ScriptController) Delete(segmentID string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for i := range sc.segments {
		if sc.segments[i].ID == segmentID {
			sc.segments = append(sc.segments[:i], sc.segments[i+1:]...)
			for j := range sc.segments {
				sc.segments[j].Order = j
			}
			return nil
		}
	}
	return &InputError{Message: fmt.Sprintf("段落不存在: %s", segmentID)}
}

// SetProject 设置导入目标工程
func (sc *ScriptController) SetProject(name string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.project = name
}

// Import 把当前段落按序号顺序导入剪映工程。
// 空白段落跳过不提交，fontSize 为 0 时使用默认字号。
func (sc *ScriptController) Import(ctx context.Context, fontSize float64) (int, error) {
	sc.mu.Lock()
	project := sc.project
	segments := make([]api.Segment, 0, len(sc.segments))
	for _, s := range sc.segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		segments = append(segments, api.Segment{
			Text:     s.Text,
			Duration: s.Duration,
		})
	}
	sc.mu.Unlock()

	if len(segments) == 0 {
		return 0, &InputError{Message: "没有可导入的文案段落"}
	}
	if project == "" {
		return 0, &InputError{Message: "请先选择剪映工程"}
	}
	if fontSize <= 0 {
		fontSize = DefaultImportFontSize
	}

	dir := sc.store.ProjectDir()
	if err := sc.client.ImportScript(ctx, dir, project, segments, fontSize); err != nil {
		return 0, err
	}

	sc.logger.Info("导入文案完成",
		zap.String("project", project),
		zap.Int("count", len(segments)), zap.Float64("font_size", fontSize))
	return len(segments), nil
}

// GenerateAI 调用服务端生成口播文案
func (sc *ScriptController) GenerateAI(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &InputError{Message: "请输入文案主题"}
	}
	return sc.client.GenerateAIScript(ctx, prompt)
}

// SaveAPIKey 保存 DeepSeek API Key
func (sc *ScriptController) SaveAPIKey(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return &InputError{Message: "请输入 API Key"}
	}
	return sc.client.SaveDeepSeekAPIKey(ctx, key)
}

// Segments 按序号顺序返回段落副本
func (sc *ScriptController) Segments() []ScriptSegment {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]ScriptSegment(nil), sc.segments...)
}

package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/fontpreview"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// FontPhase 字体替换流程的阶段。
// 阶段单向推进：空闲 -> 已检测工程 -> 已加载文本 -> 已指定替换字体，
// 重新检测工程目录会回到起点并清空已加载的文本。
type FontPhase int

const (
	FontPhaseIdle FontPhase = iota
	FontPhaseProjectChecked
	FontPhaseProjectLoaded
	FontPhaseFontsAssigned
)

// FontController 剪映字体替换流程
type FontController struct {
	client   *api.Client
	store    *state.Store
	registry *fontpreview.Registry
	logger   *zap.Logger

	mu         sync.Mutex
	phase      FontPhase
	projects   []string
	project    string
	texts      []api.ProjectText
	fonts      []api.FontInfo
	selections map[string]string
}

func NewFontController(client *api.Client, store *state.Store, registry *fontpreview.Registry, logger *zap.Logger) *FontController {
	return &FontController{
		client:     client,
		store:      store,
		registry:   registry,
		logger:     logger,
		selections: make(map[string]string),
	}
}

// CheckProject 检测工程目录下的剪映草稿，返回工程名列表。
// 成功后流程回到"已检测工程"阶段，之前加载的文本与字体选择全部作废。
func (fc *FontController) CheckProject(ctx context.Context, projectDir string) ([]string, error) {
	dir := strings.TrimSpace(projectDir)
	if dir == "" {
		return nil, &InputError{Message: "请输入剪映工程目录"}
	}

	projects, err := fc.client.CheckProject(ctx, dir)
	if err != nil {
		return nil, err
	}

	fc.store.SetProjectDir(dir)

	fc.mu.Lock()
	fc.phase = FontPhaseProjectChecked
	fc.projects = projects
	fc.project = ""
	fc.texts = nil
	fc.selections = make(map[string]string)
	if len(projects) > 0 {
		fc.project = projects[0]
	}
	fc.mu.Unlock()

	fc.logger.Info("检测剪映工程完成",
		zap.String("dir", dir), zap.Int("count", len(projects)))
	return projects, nil
}

// SelectProject 选择当前操作的工程
func (fc *FontController) SelectProject(name string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.phase < FontPhaseProjectChecked {
		return &InputError{Message: "请先检测工程目录"}
	}
	for _, p := range fc.projects {
		if p == name {
			fc.project = name
			return nil
		}
	}
	return &InputError{Message: fmt.Sprintf("工程不存在: %s", name)}
}

// LoadTexts 加载所选工程的文本元素和服务端可用字体。
// 字体逐个注册到预览注册表，注册表自身保证重复加载不产生重复规则。
func (fc *FontController) LoadTexts(ctx context.Context) error {
	fc.mu.Lock()
	if fc.phase < FontPhaseProjectChecked || fc.project == "" {
		fc.mu.Unlock()
		return &InputError{Message: "请先检测并选择剪映工程"}
	}
	project := fc.project
	fc.mu.Unlock()

	dir := fc.store.ProjectDir()

	texts, err := fc.client.LoadProjectTexts(ctx, dir, project)
	if err != nil {
		return err
	}

	fonts, err := fc.client.GetAvailableFonts(ctx)
	if err != nil {
		return err
	}
	for _, f := range fonts {
		fc.registry.Register(f.Path)
	}

	fc.mu.Lock()
	fc.phase = FontPhaseProjectLoaded
	fc.texts = texts
	fc.fonts = fonts
	fc.selections = make(map[string]string)
	fc.mu.Unlock()

	fc.logger.Info("加载工程文本完成",
		zap.String("project", project),
		zap.Int("texts", len(texts)), zap.Int("fonts", len(fonts)))
	return nil
}

// AssignFont 为单条文本指定替换字体
func (fc *FontController) AssignFont(textID, fontPath string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.phase < FontPhaseProjectLoaded {
		return &InputError{Message: "请先加载工程文本"}
	}
	if !fc.textExistsLocked(textID) {
		return &InputError{Message: fmt.Sprintf("文本不存在: %s", textID)}
	}
	if !fc.fontExistsLocked(fontPath) {
		return &InputError{Message: "所选字体不可用"}
	}

	fc.selections[textID] = fontPath
	fc.phase = FontPhaseFontsAssigned
	return nil
}

// ApplyToAll 把同一字体一次性指定给全部文本
func (fc *FontController) ApplyToAll(fontPath string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.phase < FontPhaseProjectLoaded {
		return &InputError{Message: "请先加载工程文本"}
	}
	if !fc.fontExistsLocked(fontPath) {
		return &InputError{Message: "所选字体不可用"}
	}

	for _, t := range fc.texts {
		fc.selections[t.ID] = fontPath
	}
	if len(fc.texts) > 0 {
		fc.phase = FontPhaseFontsAssigned
	}
	return nil
}

// ReplaceFonts 把已指定的替换项提交给服务端，成功后重新加载文本
func (fc *FontController) ReplaceFonts(ctx context.Context) (int, error) {
	fc.mu.Lock()
	if fc.phase < FontPhaseFontsAssigned || len(fc.selections) == 0 {
		fc.mu.Unlock()
		return 0, &InputError{Message: "请先为文本指定替换字体"}
	}
	project := fc.project
	replacements := make([]api.FontReplacement, 0, len(fc.selections))
	for _, t := range fc.texts {
		if path, ok := fc.selections[t.ID]; ok {
			replacements = append(replacements, api.FontReplacement{
				TextID:   t.ID,
				FontPath: path,
			})
		}
	}
	fc.mu.Unlock()

	dir := fc.store.ProjectDir()
	if err := fc.client.ReplaceFont(ctx, dir, project, replacements); err != nil {
		return 0, err
	}

	fc.logger.Info("替换字体完成",
		zap.String("project", project), zap.Int("count", len(replacements)))

	// 替换后服务端的 current_font 已变化，重新加载拿到最新状态
	if err := fc.LoadTexts(ctx); err != nil {
		fc.logger.Warn("替换后重新加载文本失败", zap.Error(err))
	}
	return len(replacements), nil
}

// ExportResult 字幕导出结果，文件名由客户端生成
type ExportResult struct {
	Filename string
	Content  string
}

// ExportSubtitles 导出所选工程的字幕文本
func (fc *FontController) ExportSubtitles(ctx context.Context) (*ExportResult, error) {
	fc.mu.Lock()
	if fc.phase < FontPhaseProjectChecked || fc.project == "" {
		fc.mu.Unlock()
		return nil, &InputError{Message: "请先检测并选择剪映工程"}
	}
	project := fc.project
	fc.mu.Unlock()

	content, err := fc.client.ExportSubtitles(ctx, fc.store.ProjectDir(), project)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		Filename: fmt.Sprintf("%s_字幕_%s.txt", project, time.Now().Format("20060102_150405")),
		Content:  content,
	}, nil
}

// Phase 当前阶段
func (fc *FontController) Phase() FontPhase {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.phase
}

// Projects 已检测到的工程名列表
func (fc *FontController) Projects() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.projects...)
}

// Project 当前选中的工程名
func (fc *FontController) Project() string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.project
}

// Texts 已加载的文本元素
func (fc *FontController) Texts() []api.ProjectText {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]api.ProjectText(nil), fc.texts...)
}

// Fonts 服务端可用字体
func (fc *FontController) Fonts() []api.FontInfo {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]api.FontInfo(nil), fc.fonts...)
}

// Selection 某条文本当前指定的替换字体，未指定时返回空串
func (fc *FontController) Selection(textID string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.selections[textID]
}

func (fc *FontController) textExistsLocked(textID string) bool {
	for _, t := range fc.texts {
		if t.ID == textID {
			return true
		}
	}
	return false
}

func (fc *FontController) fontExistsLocked(fontPath string) bool {
	for _, f := range fc.fonts {
		if f.Path == fontPath {
			return true
		}
	}
	return false
}

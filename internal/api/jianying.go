package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// CheckProject 检查剪映项目目录，返回其中的工程名列表
func (c *Client) CheckProject(ctx context.Context, projectDir string) ([]string, error) {
	form := url.Values{"project_dir": {projectDir}}

	var resp struct {
		Projects []string `json:"projects"`
	}
	if err := c.postForm(ctx, "/check_jianying_project", form, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// LoadProjectTexts 加载工程中的全部文本元素
func (c *Client) LoadProjectTexts(ctx context.Context, projectDir, projectName string) ([]ProjectText, error) {
	form := url.Values{
		"project_dir":  {projectDir},
		"project_name": {projectName},
	}

	var resp struct {
		Texts []ProjectText `json:"texts"`
	}
	if err := c.postForm(ctx, "/load_jianying_text", form, &resp); err != nil {
		return nil, err
	}
	return resp.Texts, nil
}

// ExportSubtitles 导出工程字幕文本。文件本身由调用方生成，不走服务端下载。
func (c *Client) ExportSubtitles(ctx context.Context, projectDir, projectName string) (string, error) {
	form := url.Values{
		"project_dir":  {projectDir},
		"project_name": {projectName},
	}

	var resp struct {
		SubtitlesText string `json:"subtitles_text"`
	}
	if err := c.postForm(ctx, "/export_jianying_subtitles", form, &resp); err != nil {
		return "", err
	}
	return resp.SubtitlesText, nil
}

// ReplaceFont 替换选中文本元素的字体
func (c *Client) ReplaceFont(ctx context.Context, projectDir, projectName string, replacements []FontReplacement) error {
	if len(replacements) == 0 {
		return fmt.Errorf("请选择要更换字体的文本")
	}

	payload, err := json.Marshal(replacements)
	if err != nil {
		return fmt.Errorf("序列化替换数据失败: %v", err)
	}

	form := url.Values{
		"project_dir":       {projectDir},
		"project_name":      {projectName},
		"text_replacements": {string(payload)},
	}
	return c.postForm(ctx, "/replace_jianying_font", form, nil)
}

// GetAvailableFonts 拉取服务端可用字体列表
func (c *Client) GetAvailableFonts(ctx context.Context) ([]FontInfo, error) {
	var resp struct {
		Fonts []FontInfo `json:"fonts"`
	}
	if err := c.getJSON(ctx, "/get_available_fonts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Fonts, nil
}

// ImportScript 将切分后的文案段落导入剪映工程
func (c *Client) ImportScript(ctx context.Context, projectDir, projectName string, segments []Segment, fontSize float64) error {
	if len(segments) == 0 {
		return fmt.Errorf("没有有效的文案段落")
	}

	payload, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("序列化段落数据失败: %v", err)
	}

	form := url.Values{
		"project_dir":  {projectDir},
		"project_name": {projectName},
		"segments":     {string(payload)},
		"font_size":    {strconv.FormatFloat(fontSize, 'f', -1, 64)},
	}
	return c.postForm(ctx, "/import_script_to_jianying", form, nil)
}

// LoadProjectAudio 加载工程中的配音槽位，getAllSubtitles 时包含全部字幕条目
func (c *Client) LoadProjectAudio(ctx context.Context, projectDir, projectName string, getAllSubtitles bool) ([]AudioSlot, error) {
	form := url.Values{
		"project_dir":       {projectDir},
		"project_name":      {projectName},
		"get_all_subtitles": {strconv.FormatBool(getAllSubtitles)},
	}

	var resp struct {
		AudioInfos []AudioSlot `json:"audio_infos"`
	}
	if err := c.postForm(ctx, "/load_jianying_audio", form, &resp); err != nil {
		return nil, err
	}
	return resp.AudioInfos, nil
}

// SaveProjectText 保存单个槽位修改后的文本
func (c *Client) SaveProjectText(ctx context.Context, projectDir, projectName, textID, audioID, textContent string) error {
	form := url.Values{
		"project_dir":  {projectDir},
		"project_name": {projectName},
		"text_id":      {textID},
		"audio_id":     {audioID},
		"text_content": {textContent},
	}
	return c.postForm(ctx, "/save_jianying_text", form, nil)
}

// ReplaceAudio 按选中槽位批量替换配音。
// 整体 success 不代表逐条成功，调用方必须检查 Results。
func (c *Client) ReplaceAudio(ctx context.Context, projectDir, projectName string, items []AudioItem, model, voice string, syncPosition, appendToLast bool) (*ReplaceAudioResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("请选择要替换的音频")
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("序列化音频数据失败: %v", err)
	}

	form := url.Values{
		"project_dir":   {projectDir},
		"project_name":  {projectName},
		"audio_data":    {string(payload)},
		"model":         {model},
		"voice":         {voice},
		"sync_position": {strconv.FormatBool(syncPosition)},
		"append_to_last": {strconv.FormatBool(appendToLast)},
	}

	var result ReplaceAudioResult
	if err := c.postForm(ctx, "/replace_jianying_audio", form, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

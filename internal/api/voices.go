package api

import (
	"context"
	"net/url"
)

// VoiceList /get_voices 的响应
type VoiceList struct {
	Voices     []Voice    `json:"voices"`
	Categories []Category `json:"categories"`
}

// GetVoices 拉取全部参考音频和分类
func (c *Client) GetVoices(ctx context.Context, modelPath string) (*VoiceList, error) {
	query := url.Values{}
	if modelPath != "" {
		query.Set("model_path", modelPath)
	}

	var list VoiceList
	if err := c.getJSON(ctx, "/get_voices", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateVoiceCategory 修改音频所属分类
func (c *Client) UpdateVoiceCategory(ctx context.Context, voiceName, categoryID string) error {
	form := url.Values{
		"voice_name":  {voiceName},
		"category_id": {categoryID},
	}
	return c.postForm(ctx, "/update_voice_category", form, nil)
}

// UpdateNote 保存音频备注，modelPath 可为空
func (c *Client) UpdateNote(ctx context.Context, voiceName, note, modelPath string) error {
	form := url.Values{
		"voice_name": {voiceName},
		"note":       {note},
	}
	if modelPath != "" {
		form.Set("model_path", modelPath)
	}
	return c.postForm(ctx, "/update-note", form, nil)
}

// AddCategory 新增分类
func (c *Client) AddCategory(ctx context.Context, categoryID, categoryName string) error {
	form := url.Values{
		"category_id":   {categoryID},
		"category_name": {categoryName},
	}
	return c.postForm(ctx, "/add_category", form, nil)
}

// DeleteCategory 删除分类。服务端不会级联处理已归属该分类的音频。
func (c *Client) DeleteCategory(ctx context.Context, categoryID string) error {
	form := url.Values{"category_id": {categoryID}}
	return c.postForm(ctx, "/delete_category", form, nil)
}

// GetHistory 拉取全部生成历史
func (c *Client) GetHistory(ctx context.Context) ([]GenerationRecord, error) {
	var records []GenerationRecord
	if err := c.getJSON(ctx, "/get_history", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord 按 id 删除一条生成记录
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	form := url.Values{"record_id": {recordID}}
	return c.postForm(ctx, "/delete_record", form, nil)
}

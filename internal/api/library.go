package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// UploadFile 待上传的音频文件
type UploadFile struct {
	Name    string
	Content []byte
}

// ProgressFunc 上传进度回调，loaded/total 为已传输与总字节数
type ProgressFunc func(loaded, total int64)

// progressReader 包装请求体，按读取量上报传输进度
type progressReader struct {
	reader io.Reader
	total  int64
	loaded int64
	report ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.loaded += int64(n)
		if r.report != nil {
			r.report(r.loaded, r.total)
		}
	}
	return n, err
}

// BatchUploadAudio 批量上传参考音频。
// progress 可为 nil；回调在请求体被消费时触发，服务端处理期间不再更新。
func (c *Client) BatchUploadAudio(ctx context.Context, categoryID string, files []UploadFile, progress ProgressFunc) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("请选择要上传的音频文件")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if categoryID != "" {
		if err := writer.WriteField("category_id", categoryID); err != nil {
			return nil, fmt.Errorf("写入表单字段失败: %v", err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file.Name)
		if err != nil {
			return nil, fmt.Errorf("创建表单文件失败: %v", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, fmt.Errorf("写入文件内容失败: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单写入器失败: %v", err)
	}

	reader := &progressReader{
		reader: body,
		total:  int64(body.Len()),
		report: progress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/batch_upload_audio", reader)
	if err != nil {
		return nil, fmt.Errorf("创建上传请求失败: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = reader.total

	var result UploadResult
	if err := c.do(req, "/batch_upload_audio", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteAudio 删除音频文件。filename 使用与行属性一致的百分号编码形式。
func (c *Client) DeleteAudio(ctx context.Context, filename string) error {
	form := url.Values{"filename": {filename}}
	return c.postForm(ctx, "/delete_audio", form, nil)
}

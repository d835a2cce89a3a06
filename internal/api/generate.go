package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
)

// Generate 提交语音生成请求。与原始表单保持一致使用 multipart 编码。
func (c *Client) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"model":      params.Model,
		"voice":      params.Voice,
		"text":       params.Text,
		"infer_mode": params.InferMode,
		"do_sample":  strconv.FormatBool(params.DoSample),
		"top_p":      strconv.FormatFloat(params.TopP, 'f', -1, 64),
		"top_k":      strconv.Itoa(params.TopK),
		"temperature":        strconv.FormatFloat(params.Temperature, 'f', -1, 64),
		"length_penalty":     strconv.FormatFloat(params.LengthPenalty, 'f', -1, 64),
		"num_beams":          strconv.Itoa(params.NumBeams),
		"repetition_penalty": strconv.FormatFloat(params.RepetitionPenalty, 'f', -1, 64),
		"max_mel_tokens":     strconv.Itoa(params.MaxMelTokens),
		"max_text_tokens_per_sentence": strconv.Itoa(params.MaxTextTokensPerSentence),
	}
	if params.InferMode == InferModeBatch {
		fields["sentences_bucket_max_size"] = strconv.Itoa(params.SentencesBucketMaxSize)
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("写入表单字段失败: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单写入器失败: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate", body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result GenerateResult
	if err := c.do(req, "/generate", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// 推理模式，与服务端约定的中文取值
const (
	InferModeNormal = "普通推理"
	InferModeBatch  = "批次推理"
)

// DefaultGenerateParams 服务端各参数的默认值
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		InferMode:                InferModeNormal,
		DoSample:                 true,
		TopP:                     0.8,
		TopK:                     30,
		Temperature:              1.0,
		LengthPenalty:            0.0,
		NumBeams:                 3,
		RepetitionPenalty:        10.0,
		MaxMelTokens:             600,
		MaxTextTokensPerSentence: 120,
		SentencesBucketMaxSize:   4,
	}
}

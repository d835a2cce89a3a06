package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(zap.NewNop(), srv.URL)
}

// TestErrorExtractionStructured 测试结构化 error 字段优先
func TestErrorExtractionStructured(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "模型未加载"}`))
	})

	err := c.UpdateNote(context.Background(), "a.wav", "备注", "checkpoints")
	require.Error(t, err)
	assert.Equal(t, "模型未加载", err.Error())
}

// TestErrorExtractionRawBody 测试无结构化字段时回退到原始响应文本
func TestErrorExtractionRawBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	})

	err := c.DeleteRecord(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, "upstream timeout", err.Error())
}

// TestErrorExtractionGenericFallback 测试超长响应体回退到通用提示
func TestErrorExtractionGenericFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>" + strings.Repeat("x", 600) + "</html>"))
	})

	err := c.DeleteRecord(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, "服务器错误，请重试", err.Error())
}

// TestSuccessFalseWith200 测试 HTTP 200 但业务失败
func TestSuccessFalseWith200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "分类不存在"}`))
	})

	err := c.DeleteCategory(context.Background(), "ghost")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "分类不存在", apiErr.Message)
}

// TestGetVoicesWithoutSuccessField 测试没有 success 字段的 GET 接口按成功处理
func TestGetVoicesWithoutSuccessField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_voices", r.URL.Path)
		assert.Equal(t, "checkpoints", r.URL.Query().Get("model_path"))
		w.Write([]byte(`{
			"voices": [{"path": "a/一号.wav", "name": "一号.wav", "category": "default", "file_exists": true}],
			"categories": [{"id": "default", "name": "默认"}]
		}`))
	})

	list, err := c.GetVoices(context.Background(), "checkpoints")
	require.NoError(t, err)
	require.Len(t, list.Voices, 1)
	assert.Equal(t, "一号.wav", list.Voices[0].Name)
	assert.True(t, list.Voices[0].FileExists)
	require.Len(t, list.Categories, 1)
}

// TestGenerateNormalModeOmitsBucketSize 测试普通推理不提交分桶参数
func TestGenerateNormalModeOmitsBucketSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, InferModeNormal, r.FormValue("infer_mode"))
		_, has := r.MultipartForm.Value["sentences_bucket_max_size"]
		assert.False(t, has, "普通推理不应携带 sentences_bucket_max_size")
		w.Write([]byte(`{"success": true, "output_file": "outputs/x.wav", "generation_time": 2.5}`))
	})

	params := DefaultGenerateParams()
	params.Text = "测试文本"
	params.Voice = "a/一号.wav"
	result, err := c.Generate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "outputs/x.wav", result.OutputFile)
	assert.InDelta(t, 2.5, result.GenerationTime, 1e-9)
}

// TestGenerateBatchModeSendsBucketSize 测试批次推理提交分桶参数
func TestGenerateBatchModeSendsBucketSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "4", r.FormValue("sentences_bucket_max_size"))
		w.Write([]byte(`{"success": true, "output_file": "outputs/y.wav"}`))
	})

	params := DefaultGenerateParams()
	params.Text = "测试文本"
	params.Voice = "a/一号.wav"
	params.InferMode = InferModeBatch
	_, err := c.Generate(context.Background(), params)
	require.NoError(t, err)
}

// TestBatchUploadPartialFailure 测试批量上传的逐条结果
func TestBatchUploadPartialFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "news", r.FormValue("category_id"))
		assert.Len(t, r.MultipartForm.File["files"], 2)
		w.Write([]byte(`{
			"success": true,
			"message": "上传完成",
			"details": [
				{"filename": "好.wav", "success": true},
				{"filename": "坏.txt", "success": false, "message": "不支持的文件类型"}
			],
			"voices": [{"path": "a/好.wav", "name": "好.wav", "file_exists": true}]
		}`))
	})

	var lastLoaded, total int64
	result, err := c.BatchUploadAudio(context.Background(), "news", []UploadFile{
		{Name: "好.wav", Content: []byte("RIFF....")},
		{Name: "坏.txt", Content: []byte("not audio")},
	}, func(loaded, t int64) {
		lastLoaded, total = loaded, t
	})
	require.NoError(t, err)

	require.Len(t, result.Details, 2)
	assert.True(t, result.Details[0].Success)
	assert.False(t, result.Details[1].Success)
	assert.Equal(t, "不支持的文件类型", result.Details[1].Message)
	require.Len(t, result.Voices, 1)

	// 请求体消费完毕后进度应到达总量
	assert.Equal(t, total, lastLoaded)
	assert.Positive(t, total)
}

// TestBatchUploadNoFiles 测试空文件列表直接报错
func TestBatchUploadNoFiles(t *testing.T) {
	c := NewClient(zap.NewNop(), "http://127.0.0.1:1")
	_, err := c.BatchUploadAudio(context.Background(), "", nil, nil)
	require.Error(t, err)
}

// TestURLMapping 测试音频路径到播放地址的映射
func TestURLMapping(t *testing.T) {
	c := NewClient(zap.NewNop(), "http://localhost:5000/")
	assert.Equal(t, "http://localhost:5000/audio/refs/一号.wav", c.AudioURL("refs/一号.wav"))
	assert.Equal(t, "http://localhost:5000/outputs/x.wav", c.OutputURL("/outputs/x.wav"))
}

// TestDeleteAudioEncodedFilename 测试删除请求使用编码后的文件名
func TestDeleteAudioEncodedFilename(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "%E4%B8%80%E5%8F%B7.wav", r.FormValue("filename"))
		w.Write([]byte(`{"success": true}`))
	})

	err := c.DeleteAudio(context.Background(), "%E4%B8%80%E5%8F%B7.wav")
	require.NoError(t, err)
}

package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// fakeTTSServer 模拟语音服务端，按路径返回固定响应
type fakeTTSServer struct {
	mu        sync.Mutex
	responses map[string]string
	requests  []string
}

func newFakeTTSServer() *fakeTTSServer {
	return &fakeTTSServer{responses: map[string]string{
		"/get_voices": `{
			"voices": [
				{"path": "refs/一号.wav", "name": "一号.wav", "category": "default", "file_exists": true},
				{"path": "refs/二号.wav", "name": "二号.wav", "category": "news", "file_exists": true}
			],
			"categories": [{"id": "default", "name": "默认"}, {"id": "news", "name": "新闻"}]
		}`,
		"/get_history": `[{"id": "r1", "text": "旧记录", "output_file": "outputs/r1.wav"}]`,
	}}
}

func (f *fakeTTSServer) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = body
}

func (f *fakeTTSServer) seen(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.requests {
		if p == path {
			return true
		}
	}
	return false
}

func (f *fakeTTSServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.Path)
		body, ok := f.responses[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			body = `{"success": true}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

// memoryCache 内存快照缓存
type memoryCache struct {
	mu    sync.Mutex
	snap  state.Snapshot
	saves int
}

func (m *memoryCache) Save(snap state.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.saves++
	return nil
}

func (m *memoryCache) Load() (state.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

// recordingSink 记录全部进度事件
type recordingSink struct {
	mu       sync.Mutex
	percents []int
}

func (r *recordingSink) Publish(source, message string, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percents = append(r.percents, percent)
}

type testEnv struct {
	server     *fakeTTSServer
	client     *api.Client
	store      *state.Store
	cache      *memoryCache
	reconciler *Reconciler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := newFakeTTSServer()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	client := api.NewClient(logger, srv.URL)
	store := state.NewStore(logger)
	cache := &memoryCache{}
	reconciler := NewReconciler(client, store, cache, logger)

	if err := reconciler.Refresh(context.Background()); err != nil {
		t.Fatalf("初始协调失败: %v", err)
	}
	return &testEnv{server: fake, client: client, store: store, cache: cache, reconciler: reconciler}
}

// TestReconcilerRefresh 测试协调器整体替换状态并写入缓存
func TestReconcilerRefresh(t *testing.T) {
	env := newTestEnv(t)

	if len(env.store.Voices()) != 2 {
		t.Errorf("协调后应有2个音频，实际 %d", len(env.store.Voices()))
	}
	if env.store.HistoryCount() != 1 {
		t.Errorf("协调后应有1条历史，实际 %d", env.store.HistoryCount())
	}
	if env.cache.saves == 0 {
		t.Error("协调成功后应写入快照缓存")
	}
}

// TestReconcilerRestore 测试启动时从缓存恢复
func TestReconcilerRestore(t *testing.T) {
	env := newTestEnv(t)

	logger := zap.NewNop()
	store2 := state.NewStore(logger)
	reconciler2 := NewReconciler(env.client, store2, env.cache, logger)
	reconciler2.Restore()

	if len(store2.Voices()) != 2 {
		t.Errorf("从缓存恢复后应有2个音频，实际 %d", len(store2.Voices()))
	}
}

// TestGenerateValidation 测试生成前的本地校验
func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t)
	gc := NewGenerateController(env.client, env.store, zap.NewNop())

	params := api.DefaultGenerateParams()
	params.Text = "   "
	if _, err := gc.Submit(context.Background(), params); err == nil {
		t.Error("空文本应校验失败")
	}
	var inputErr *InputError
	_, err := gc.Submit(context.Background(), params)
	if !errors.As(err, &inputErr) {
		t.Errorf("本地校验失败应返回 InputError，实际: %T", err)
	}
	if env.server.seen("/generate") {
		t.Error("本地校验失败不应发出网络请求")
	}
}

// TestGenerateNoVoices 测试音频库为空时的生成提交
func TestGenerateNoVoices(t *testing.T) {
	env := newTestEnv(t)
	env.server.set("/get_voices", `{"voices": [], "categories": []}`)
	if err := env.reconciler.Refresh(context.Background()); err != nil {
		t.Fatalf("协调失败: %v", err)
	}

	gc := NewGenerateController(env.client, env.store, zap.NewNop())
	params := api.DefaultGenerateParams()
	params.Text = "你好"
	_, err := gc.Submit(context.Background(), params)
	if err == nil || !strings.Contains(err.Error(), "参考音频") {
		t.Errorf("没有参考音频时应提示添加，实际: %v", err)
	}
}

// TestGenerateAutoSelectAndPrepend 测试自动选择音色和历史前插
func TestGenerateAutoSelectAndPrepend(t *testing.T) {
	env := newTestEnv(t)
	env.server.set("/generate", `{
		"success": true,
		"output_file": "outputs/new.wav",
		"generation_time": 3.2,
		"record": {"id": "r2", "text": "你好", "voice": "一号.wav", "output_file": "outputs/new.wav"}
	}`)

	gc := NewGenerateController(env.client, env.store, zap.NewNop())
	params := api.DefaultGenerateParams()
	params.Text = "你好"
	outcome, err := gc.Submit(context.Background(), params)
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}

	// 未选择时自动选中第一个
	if env.store.SelectedVoice(state.PanelGeneral) != "refs/一号.wav" {
		t.Error("提交后应自动选中第一个音频")
	}
	if env.store.HistoryCount() != 2 {
		t.Errorf("成功后新记录应插入历史，实际 %d 条", env.store.HistoryCount())
	}
	if env.store.History()[0].ID != "r2" {
		t.Error("新记录应在历史列表最前面")
	}
	if outcome.GenerationTime != 3.2 {
		t.Errorf("生成耗时不正确: %v", outcome.GenerationTime)
	}
	if gc.Busy() {
		t.Error("请求结束后 busy 标志应被清除")
	}
}

// TestGenerateBusyClearedOnFailure 测试失败后 busy 标志同样清除
func TestGenerateBusyClearedOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.server.set("/generate", `{"success": false, "error": "显存不足"}`)

	gc := NewGenerateController(env.client, env.store, zap.NewNop())
	params := api.DefaultGenerateParams()
	params.Text = "你好"
	if _, err := gc.Submit(context.Background(), params); err == nil {
		t.Fatal("服务端失败应返回错误")
	}
	if gc.Busy() {
		t.Error("失败后 busy 标志应被清除")
	}
}

// TestHistoryPlayAndDelete 测试历史播放与删除
func TestHistoryPlayAndDelete(t *testing.T) {
	env := newTestEnv(t)
	hc := NewHistoryController(env.client, env.store, zap.NewNop())

	if err := hc.Play("r1"); err != nil {
		t.Fatalf("播放失败: %v", err)
	}
	if !strings.HasSuffix(env.store.PlayerSource(), "/outputs/r1.wav") {
		t.Errorf("播放器音频源不正确: %s", env.store.PlayerSource())
	}

	remaining, err := hc.Delete(context.Background(), "r1")
	if err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if remaining != 0 {
		t.Errorf("删除后应剩0条，实际 %d", remaining)
	}
	if _, err := hc.Delete(context.Background(), "r1"); err == nil {
		t.Error("删除不存在的记录应报错")
	}
}

// TestUploadProgressCap 测试上传进度封顶在90%后置为100%
func TestUploadProgressCap(t *testing.T) {
	env := newTestEnv(t)
	env.server.set("/batch_upload_audio", `{
		"success": true,
		"message": "上传完成",
		"details": [{"filename": "好.wav", "success": true}],
		"voices": [
			{"path": "refs/一号.wav", "name": "一号.wav", "file_exists": true},
			{"path": "refs/二号.wav", "name": "二号.wav", "file_exists": true},
			{"path": "refs/好.wav", "name": "好.wav", "file_exists": true}
		]
	}`)

	sink := &recordingSink{}
	lc := NewLibraryController(env.client, env.reconciler, sink, zap.NewNop())
	summary, err := lc.Upload(context.Background(), "default",
		[]api.UploadFile{{Name: "好.wav", Content: []byte("RIFF....")}}, true)
	if err != nil {
		t.Fatalf("上传失败: %v", err)
	}
	if summary.SuccessCount != 1 || summary.FailCount != 0 {
		t.Errorf("汇总不正确: %+v", summary)
	}

	if len(sink.percents) < 2 {
		t.Fatal("应至少上报开始和完成两次进度")
	}
	last := sink.percents[len(sink.percents)-1]
	if last != 100 {
		t.Errorf("最后一次进度应为100，实际 %d", last)
	}
	for _, p := range sink.percents[:len(sink.percents)-1] {
		if p > 90 {
			t.Errorf("响应到达前进度不应超过90，出现 %d", p)
		}
	}

	// 响应带回的列表就地生效
	if len(env.store.Voices()) != 3 {
		t.Errorf("上传后应有3个音频，实际 %d", len(env.store.Voices()))
	}
}

// TestUploadPartialFailureSummary 测试部分失败的逐条汇总
func TestUploadPartialFailureSummary(t *testing.T) {
	env := newTestEnv(t)
	env.server.set("/batch_upload_audio", `{
		"success": true,
		"message": "部分成功",
		"details": [
			{"filename": "好.wav", "success": true},
			{"filename": "坏.txt", "success": false, "message": "不支持的文件类型"}
		]
	}`)

	lc := NewLibraryController(env.client, env.reconciler, nil, zap.NewNop())
	summary, err := lc.Upload(context.Background(), "", []api.UploadFile{
		{Name: "好.wav", Content: []byte("a")},
		{Name: "坏.txt", Content: []byte("b")},
	}, true)
	if err != nil {
		t.Fatalf("上传失败: %v", err)
	}
	if summary.FailCount != 1 {
		t.Errorf("应有1个失败，实际 %d", summary.FailCount)
	}
	if !strings.Contains(summary.FailureSummary, "坏.txt: 不支持的文件类型") {
		t.Errorf("失败汇总应列出文件和原因: %q", summary.FailureSummary)
	}
}

// TestDeleteAudioFallbackToRefresh 测试本地未命中时退回完整协调
func TestDeleteAudioFallbackToRefresh(t *testing.T) {
	env := newTestEnv(t)
	lc := NewLibraryController(env.client, env.reconciler, nil, zap.NewNop())

	// 本地命中：直接删行
	if err := lc.Delete(context.Background(), "%E4%B8%80%E5%8F%B7.wav"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if len(env.store.Voices()) != 1 {
		t.Errorf("删除后应剩1个音频，实际 %d", len(env.store.Voices()))
	}

	// 本地未命中：退回协调，状态以服务端为准
	env.server.set("/get_voices", `{"voices": [], "categories": []}`)
	if err := lc.Delete(context.Background(), "%E4%B8%8D%E5%AD%98%E5%9C%A8.wav"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if len(env.store.Voices()) != 0 {
		t.Error("未命中后应执行完整协调")
	}
}

// TestDeleteCategoryKeepsVoices 测试删除分类不级联音频
func TestDeleteCategoryKeepsVoices(t *testing.T) {
	env := newTestEnv(t)
	// 删除 news 分类后服务端仍返回原 category_id 的音频
	env.server.set("/get_voices", `{
		"voices": [
			{"path": "refs/一号.wav", "name": "一号.wav", "category": "default", "file_exists": true},
			{"path": "refs/二号.wav", "name": "二号.wav", "category": "news", "file_exists": true}
		],
		"categories": [{"id": "default", "name": "默认"}]
	}`)

	lc := NewLibraryController(env.client, env.reconciler, nil, zap.NewNop())
	if err := lc.DeleteCategory(context.Background(), "news"); err != nil {
		t.Fatalf("删除分类失败: %v", err)
	}

	if len(env.store.Categories()) != 1 {
		t.Errorf("分类应只剩1个，实际 %d", len(env.store.Categories()))
	}
	found := false
	for _, v := range env.store.Voices() {
		if v.Category == "news" {
			found = true
		}
	}
	if !found {
		t.Error("归属已删除分类的音频应保留原 category")
	}
}

// TestAddCategoryValidation 测试分类新增的本地校验
func TestAddCategoryValidation(t *testing.T) {
	env := newTestEnv(t)
	lc := NewLibraryController(env.client, env.reconciler, nil, zap.NewNop())

	if err := lc.AddCategory(context.Background(), "  ", "名称"); err == nil {
		t.Error("空白分类ID应校验失败")
	}
	if err := lc.AddCategory(context.Background(), "id", "  "); err == nil {
		t.Error("空白分类名称应校验失败")
	}
	if env.server.seen("/add_category") {
		t.Error("校验失败不应发出网络请求")
	}
}

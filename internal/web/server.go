package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/config"
	"github.com/shiyaaini/index-tts-jianying/internal/controller"
	"github.com/shiyaaini/index-tts-jianying/internal/fontpreview"
	"github.com/shiyaaini/index-tts-jianying/internal/progress"
	"github.com/shiyaaini/index-tts-jianying/internal/script"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
	"github.com/shiyaaini/index-tts-jianying/internal/view"
)

// Server 控制台 Web 服务。
// 页面只在 GET / 时由状态整体渲染，全部写操作走 POST 后重定向回首页。
type Server struct {
	cfg      *config.Config
	client   *api.Client
	store    *state.Store
	registry *fontpreview.Registry
	hub      *progress.Hub
	logger   *zap.Logger

	reconciler *controller.Reconciler
	voices     *controller.VoiceController
	generate   *controller.GenerateController
	history    *controller.HistoryController
	library    *controller.LibraryController
	fonts      *controller.FontController
	scripts    *controller.ScriptController
	slots      *controller.AudioSlotController

	tmpl *template.Template

	flashMu    sync.Mutex
	flash      string
	flashError bool
}

// Deps 组装服务所需的全部依赖
type Deps struct {
	Config     *config.Config
	Client     *api.Client
	Store      *state.Store
	Registry   *fontpreview.Registry
	Hub        *progress.Hub
	Reconciler *controller.Reconciler
	Voices     *controller.VoiceController
	Generate   *controller.GenerateController
	History    *controller.HistoryController
	Library    *controller.LibraryController
	Fonts      *controller.FontController
	Scripts    *controller.ScriptController
	Slots      *controller.AudioSlotController
	Logger     *zap.Logger
}

func NewServer(deps Deps) (*Server, error) {
	tmpl, err := template.ParseFiles("./templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("解析页面模板失败: %v", err)
	}

	return &Server{
		cfg:        deps.Config,
		client:     deps.Client,
		store:      deps.Store,
		registry:   deps.Registry,
		hub:        deps.Hub,
		logger:     deps.Logger,
		reconciler: deps.Reconciler,
		voices:     deps.Voices,
		generate:   deps.Generate,
		history:    deps.History,
		library:    deps.Library,
		fonts:      deps.Fonts,
		scripts:    deps.Scripts,
		slots:      deps.Slots,
		tmpl:       tmpl,
	}, nil
}

// Run 注册路由并启动监听，阻塞直到服务退出
func (s *Server) Run() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/", s.handleIndex)
	r.GET("/ws", func(c *gin.Context) { s.hub.ServeWS(c.Writer, c.Request) })
	r.GET("/font_preview/:id", s.handleFontPreview)
	r.GET("/font_file/:name", s.handleFontFile)

	action := r.Group("/action")
	{
		action.POST("/refresh", s.handleRefresh)
		action.POST("/filter", s.handleFilter)
		action.POST("/select_voice", s.handleSelectVoice)
		action.POST("/select_model", s.handleSelectModel)
		action.POST("/save_note", s.handleSaveNote)
		action.POST("/change_category", s.handleChangeCategory)

		action.POST("/generate", s.handleGenerate)
		action.POST("/play_record", s.handlePlayRecord)
		action.POST("/delete_record", s.handleDeleteRecord)

		action.POST("/upload", s.handleUpload)
		action.POST("/delete_audio", s.handleDeleteAudio)
		action.POST("/add_category", s.handleAddCategory)
		action.POST("/delete_category", s.handleDeleteCategory)

		action.POST("/check_project", s.handleCheckProject)
		action.POST("/select_project", s.handleSelectProject)
		action.POST("/load_texts", s.handleLoadTexts)
		action.POST("/assign_font", s.handleAssignFont)
		action.POST("/apply_font_all", s.handleApplyFontAll)
		action.POST("/replace_fonts", s.handleReplaceFonts)
		action.POST("/export_subtitles", s.handleExportSubtitles)

		action.POST("/split_script", s.handleSplitScript)
		action.POST("/update_segment_text", s.handleUpdateSegmentText)
		action.POST("/update_segment_duration", s.handleUpdateSegmentDuration)
		action.POST("/segment_up", s.handleSegmentUp)
		action.POST("/segment_down", s.handleSegmentDown)
		action.POST("/delete_segment", s.handleDeleteSegment)
		action.POST("/import_script", s.handleImportScript)
		action.POST("/generate_ai_script", s.handleGenerateAIScript)
		action.POST("/save_api_key", s.handleSaveAPIKey)

		action.POST("/load_audio_slots", s.handleLoadSlots)
		action.POST("/save_slot_text", s.handleSaveSlotText)
		action.POST("/replace_audio", s.handleReplaceAudio)
		action.POST("/play_slot", s.handlePlaySlot)
	}

	s.logger.Info("Web服务器启动", zap.String("listen", s.cfg.Listen))
	return r.Run(s.cfg.Listen)
}

func (s *Server) handleIndex(c *gin.Context) {
	page := view.Page{
		General:      view.BuildVoicePanel(s.store, state.PanelGeneral, s.client.AudioURL),
		Jianying:     view.BuildVoicePanel(s.store, state.PanelJianying, s.client.AudioURL),
		Categories:   s.store.Categories(),
		History:      view.BuildHistory(s.store.History(), s.client.OutputURL),
		HistoryCount: s.store.HistoryCount(),
		PlayerSource: s.store.PlayerSource(),
		ProjectDir:   s.store.ProjectDir(),
		Projects:     s.fonts.Projects(),
		Project:      s.fonts.Project(),
		FontPhase:    s.fonts.Phase(),
		FontCSS:      s.registry.StyleSheet(),
		Segments:     view.BuildSegments(s.scripts.Segments()),
		Slots:        view.BuildSlots(s.slots.Slots(), s.client.AudioURL),
	}

	for _, t := range s.fonts.Texts() {
		page.Texts = append(page.Texts, view.TextRow{
			ID:          t.ID,
			Content:     t.Content,
			CurrentFont: t.CurrentFont,
			FontSize:    t.FontSize,
			Selection:   s.fonts.Selection(t.ID),
		})
	}
	for _, f := range s.fonts.Fonts() {
		page.Fonts = append(page.Fonts, view.FontOption{
			Name:      f.Name,
			Path:      f.Path,
			PreviewID: fontpreview.SanitizeIdentifier(f.Path),
		})
	}

	page.Flash, page.FlashError = s.takeFlash()

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(c.Writer, page); err != nil {
		s.logger.Error("渲染页面失败", zap.Error(err))
	}
}

func (s *Server) handleFontPreview(c *gin.Context) {
	id := c.Param("id")
	for _, rule := range s.registry.Rules() {
		if rule.ID == id {
			png, err := fontpreview.RenderSample(rule.Path, s.cfg.PreviewText, s.cfg.PreviewFontSize, 480, 64)
			if err != nil {
				s.logger.Error("渲染字体预览失败", zap.String("id", id), zap.Error(err))
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Data(http.StatusOK, "image/png", png)
			return
		}
	}
	c.Status(http.StatusNotFound)
}

func (s *Server) handleFontFile(c *gin.Context) {
	name := c.Param("name")
	for _, rule := range s.registry.Rules() {
		if filepath.Base(strings.ReplaceAll(rule.Path, "\\", "/")) == name {
			c.File(rule.Path)
			return
		}
	}
	c.Status(http.StatusNotFound)
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.finish(c, "已刷新", s.reconciler.Refresh(c.Request.Context()))
}

func (s *Server) handleFilter(c *gin.Context) {
	panel := s.panelParam(c)
	s.voices.SetFilter(panel, c.PostForm("category"))
	s.redirect(c)
}

func (s *Server) handleSelectVoice(c *gin.Context) {
	panel := s.panelParam(c)
	s.finish(c, "", s.voices.SelectVoice(panel, c.PostForm("voice_path")))
}

func (s *Server) handleSelectModel(c *gin.Context) {
	panel := s.panelParam(c)
	err := s.voices.SelectModel(c.Request.Context(), panel, c.PostForm("model"))
	s.finish(c, "已切换模型", err)
}

func (s *Server) handleSaveNote(c *gin.Context) {
	err := s.voices.SaveNote(c.Request.Context(),
		c.PostForm("voice_name"), c.PostForm("note"), c.PostForm("model"))
	s.finish(c, "备注已保存", err)
}

func (s *Server) handleChangeCategory(c *gin.Context) {
	err := s.voices.ChangeCategory(c.Request.Context(),
		c.PostForm("voice_name"), c.PostForm("category"))
	s.finish(c, "分类已修改", err)
}

func (s *Server) handleGenerate(c *gin.Context) {
	params := api.DefaultGenerateParams()
	params.Text = c.PostForm("text")
	params.InferMode = c.PostForm("infer_mode")
	if v, err := strconv.ParseFloat(c.PostForm("top_p"), 64); err == nil {
		params.TopP = v
	}
	if v, err := strconv.Atoi(c.PostForm("top_k")); err == nil {
		params.TopK = v
	}
	if v, err := strconv.ParseFloat(c.PostForm("temperature"), 64); err == nil {
		params.Temperature = v
	}
	if v, err := strconv.Atoi(c.PostForm("num_beams")); err == nil {
		params.NumBeams = v
	}
	if v, err := strconv.ParseFloat(c.PostForm("repetition_penalty"), 64); err == nil {
		params.RepetitionPenalty = v
	}
	if v, err := strconv.Atoi(c.PostForm("max_mel_tokens")); err == nil {
		params.MaxMelTokens = v
	}
	if v, err := strconv.Atoi(c.PostForm("max_text_tokens_per_sentence")); err == nil {
		params.MaxTextTokensPerSentence = v
	}
	if v, err := strconv.Atoi(c.PostForm("sentences_bucket_max_size")); err == nil {
		params.SentencesBucketMaxSize = v
	}
	params.DoSample = c.PostForm("do_sample") != "false"

	outcome, err := s.generate.Submit(c.Request.Context(), params)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.store.SetPlayerSource(outcome.AudioURL)
	s.ok(c, fmt.Sprintf("生成成功，耗时 %.1f 秒", outcome.GenerationTime))
}

func (s *Server) handlePlayRecord(c *gin.Context) {
	s.finish(c, "", s.history.Play(c.PostForm("record_id")))
}

func (s *Server) handleDeleteRecord(c *gin.Context) {
	remaining, err := s.history.Delete(c.Request.Context(), c.PostForm("record_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, fmt.Sprintf("记录已删除，剩余 %d 条", remaining))
}

func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, &controller.InputError{Message: "请选择要上传的音频文件"})
		return
	}

	var files []api.UploadFile
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			s.fail(c, fmt.Errorf("读取上传文件失败: %v", err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.fail(c, fmt.Errorf("读取上传文件失败: %v", err))
			return
		}
		files = append(files, api.UploadFile{Name: fh.Filename, Content: content})
	}

	summary, err := s.library.Upload(c.Request.Context(), c.PostForm("category"), files, true)
	if err != nil {
		s.fail(c, err)
		return
	}
	if summary.FailCount > 0 {
		s.flashMu.Lock()
		s.flash = summary.FailureSummary
		s.flashError = true
		s.flashMu.Unlock()
		s.redirect(c)
		return
	}
	s.ok(c, summary.Message)
}

func (s *Server) handleDeleteAudio(c *gin.Context) {
	err := s.library.Delete(c.Request.Context(), c.PostForm("filename"))
	s.finish(c, "参考音频已删除", err)
}

func (s *Server) handleAddCategory(c *gin.Context) {
	err := s.library.AddCategory(c.Request.Context(),
		c.PostForm("category_id"), c.PostForm("category_name"))
	s.finish(c, "分类已添加", err)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	err := s.library.DeleteCategory(c.Request.Context(), c.PostForm("category_id"))
	s.finish(c, "分类已删除，分类下的音频保留", err)
}

func (s *Server) handleCheckProject(c *gin.Context) {
	projects, err := s.fonts.CheckProject(c.Request.Context(), c.PostForm("project_dir"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, fmt.Sprintf("检测到 %d 个剪映工程", len(projects)))
}

func (s *Server) handleSelectProject(c *gin.Context) {
	name := c.PostForm("project")
	if err := s.fonts.SelectProject(name); err != nil {
		s.fail(c, err)
		return
	}
	s.scripts.SetProject(name)
	s.redirect(c)
}

func (s *Server) handleLoadTexts(c *gin.Context) {
	s.finish(c, "工程文本已加载", s.fonts.LoadTexts(c.Request.Context()))
}

func (s *Server) handleAssignFont(c *gin.Context) {
	err := s.fonts.AssignFont(c.PostForm("text_id"), c.PostForm("font_path"))
	s.finish(c, "", err)
}

func (s *Server) handleApplyFontAll(c *gin.Context) {
	err := s.fonts.ApplyToAll(c.PostForm("font_path"))
	s.finish(c, "已将字体应用到全部文本", err)
}

func (s *Server) handleReplaceFonts(c *gin.Context) {
	count, err := s.fonts.ReplaceFonts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, fmt.Sprintf("已替换 %d 条文本的字体", count))
}

func (s *Server) handleExportSubtitles(c *gin.Context) {
	result, err := s.fonts.ExportSubtitles(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename*=UTF-8''%s", template.URLQueryEscaper(result.Filename)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(result.Content))
}

func (s *Server) handleSplitScript(c *gin.Context) {
	mode := script.SplitMode(c.PostForm("split_mode"))
	calc := c.PostForm("calculate_duration") != "false"
	count, err := s.scripts.Split(c.PostForm("script_text"), mode, c.PostForm("custom_split_chars"), calc)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, fmt.Sprintf("切分完成，共 %d 段", count))
}

func (s *Server) handleUpdateSegmentText(c *gin.Context) {
	s.finish(c, "", s.scripts.UpdateText(c.PostForm("segment_id"), c.PostForm("text")))
}

func (s *Server) handleUpdateSegmentDuration(c *gin.Context) {
	s.finish(c, "", s.scripts.UpdateDuration(c.PostForm("segment_id"), c.PostForm("duration")))
}

func (s *Server) handleSegmentUp(c *gin.Context) {
	s.finish(c, "", s.scripts.MoveUp(c.PostForm("segment_id")))
}

func (s *Server) handleSegmentDown(c *gin.Context) {
	s.finish(c, "", s.scripts.MoveDown(c.PostForm("segment_id")))
}

func (s *Server) handleDeleteSegment(c *gin.Context) {
	s.finish(c, "", s.scripts.Delete(c.PostForm("segment_id")))
}

func (s *Server) handleImportScript(c *gin.Context) {
	fontSize, _ := strconv.ParseFloat(c.PostForm("font_size"), 64)
	count, err := s.scripts.Import(c.Request.Context(), fontSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, fmt.Sprintf("已导入 %d 段文案", count))
}

func (s *Server) handleGenerateAIScript(c *gin.Context) {
	text, err := s.scripts.GenerateAI(c.Request.Context(), c.PostForm("prompt"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, "AI 文案生成成功：\n"+text)
}

func (s *Server) handleSaveAPIKey(c *gin.Context) {
	s.finish(c, "API Key已保存", s.scripts.SaveAPIKey(c.Request.Context(), c.PostForm("api_key")))
}

func (s *Server) handleLoadSlots(c *gin.Context) {
	all := c.PostForm("get_all_subtitles") == "true"
	count, err := s.slots.Load(c.Request.Context(), s.fonts.Project(), all)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, fmt.Sprintf("已加载 %d 个配音槽位", count))
}

func (s *Server) handleSaveSlotText(c *gin.Context) {
	err := s.slots.SaveText(c.Request.Context(), c.PostForm("slot_id"), c.PostForm("text_content"))
	s.finish(c, "文案已保存", err)
}

func (s *Server) handleReplaceAudio(c *gin.Context) {
	ids := c.PostFormArray("slot_ids")
	syncPosition := c.PostForm("sync_position") != "false"
	appendToLast := c.PostForm("append_to_last") == "true"

	summary, err := s.slots.Replace(c.Request.Context(), ids, syncPosition, appendToLast)
	if err != nil {
		s.fail(c, err)
		return
	}

	if summary.FailCount > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "替换完成：成功 %d 条，失败 %d 条\n", summary.SuccessCount, summary.FailCount)
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.ID, f.Message)
		}
		s.flashMu.Lock()
		s.flash = b.String()
		s.flashError = true
		s.flashMu.Unlock()
		s.redirect(c)
		return
	}
	s.ok(c, fmt.Sprintf("替换完成，成功 %d 条", summary.SuccessCount))
}

func (s *Server) handlePlaySlot(c *gin.Context) {
	s.finish(c, "", s.slots.Play(c.PostForm("slot_id")))
}

func (s *Server) panelParam(c *gin.Context) state.Panel {
	if c.PostForm("panel") == "jianying" {
		return state.PanelJianying
	}
	return state.PanelGeneral
}

// finish 按操作结果设置提示并重定向，message 为空时成功不提示
func (s *Server) finish(c *gin.Context, message string, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	if message == "" {
		s.redirect(c)
		return
	}
	s.ok(c, message)
}

func (s *Server) ok(c *gin.Context, message string) {
	s.flashMu.Lock()
	s.flash = message
	s.flashError = false
	s.flashMu.Unlock()
	s.redirect(c)
}

func (s *Server) fail(c *gin.Context, err error) {
	var inputErr *controller.InputError
	if !errors.As(err, &inputErr) {
		s.logger.Error("操作失败", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	s.flashMu.Lock()
	s.flash = err.Error()
	s.flashError = true
	s.flashMu.Unlock()
	s.redirect(c)
}

func (s *Server) redirect(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) takeFlash() (string, bool) {
	s.flashMu.Lock()
	defer s.flashMu.Unlock()
	msg, isErr := s.flash, s.flashError
	s.flash = ""
	s.flashError = false
	return msg, isErr
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/config"
	"github.com/shiyaaini/index-tts-jianying/internal/controller"
	"github.com/shiyaaini/index-tts-jianying/internal/fontpreview"
	"github.com/shiyaaini/index-tts-jianying/internal/mcp"
	"github.com/shiyaaini/index-tts-jianying/internal/progress"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
	"github.com/shiyaaini/index-tts-jianying/internal/storage"
	"github.com/shiyaaini/index-tts-jianying/internal/web"
)

func main() {
	// MCP 模式下 stdout 被 JSON-RPC 占用，日志全部走 stderr
	if os.Getenv("MCP_STDIO_MODE") == "true" {
		runMCPMode()
		return
	}

	fmt.Println("启动 IndexTTS 剪映语音控制台...")
	fmt.Println("- Web 控制台: 供浏览器操作")
	fmt.Println("- 按 Ctrl+C 停止服务")

	go runWebMode()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n正在关闭服务器...")
}

func runMCPMode() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load(logger)
	client := api.NewClient(logger, cfg.APIBaseURL)

	mcpServer, err := mcp.NewServer(client, logger)
	if err != nil {
		logger.Fatal("创建MCP服务器失败", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mcpServer.Start(ctx); err != nil {
		logger.Fatal("MCP服务器启动失败", zap.Error(err))
	}
}

func runWebMode() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load(logger)
	client := api.NewClient(logger, cfg.APIBaseURL)
	store := state.NewStore(logger)
	store.SetModel(state.PanelGeneral, cfg.DefaultModel)
	store.SetModel(state.PanelJianying, cfg.DefaultModel)
	if cfg.ProjectDir != "" {
		store.SetProjectDir(cfg.ProjectDir)
	}
	cache, err := storage.Open(cfg.SnapshotPath)
	if err != nil {
		// 缓存打不开时退化为纯在线模式
		logger.Warn("打开快照缓存失败，跳过本地缓存", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	var snapshotCache controller.SnapshotCache
	if cache != nil {
		snapshotCache = cache
	}

	reconciler := controller.NewReconciler(client, store, snapshotCache, logger)
	reconciler.Restore()

	hub := progress.NewHub(logger)
	go hub.Run()
	defer hub.Close()

	registry := fontpreview.NewRegistry(logger, fontpreview.FamilyName)

	deps := web.Deps{
		Config:     cfg,
		Client:     client,
		Store:      store,
		Registry:   registry,
		Hub:        hub,
		Reconciler: reconciler,
		Voices:     controller.NewVoiceController(client, store, reconciler, logger),
		Generate:   controller.NewGenerateController(client, store, logger),
		History:    controller.NewHistoryController(client, store, logger),
		Library:    controller.NewLibraryController(client, reconciler, hub, logger),
		Fonts:      controller.NewFontController(client, store, registry, logger),
		Scripts:    controller.NewScriptController(client, store, cfg.MsPerChar, logger),
		Slots:      controller.NewAudioSlotController(client, store, logger),
		Logger:     logger,
	}

	server, err := web.NewServer(deps)
	if err != nil {
		logger.Fatal("创建Web服务器失败", zap.Error(err))
	}

	// 先用缓存渲染，首次协调放到后台，服务端未就绪也能打开页面
	go func() {
		if err := reconciler.Refresh(context.Background()); err != nil {
			logger.Warn("启动时拉取服务端状态失败", zap.Error(err))
		}
	}()

	if err := server.Run(); err != nil {
		logger.Fatal("Web服务器启动失败", zap.Error(err))
	}
}

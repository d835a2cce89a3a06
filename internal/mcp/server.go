package mcp

import (
	"context"

	mcp_server "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
)

// Server 把语音生成能力以 MCP 工具的形式暴露给 AI 代理
type Server struct {
	server  *mcp_server.MCPServer
	client  *api.Client
	logger  *zap.Logger
	handler *Handler
}

func NewServer(client *api.Client, logger *zap.Logger) (*Server, error) {
	mcpServer := mcp_server.NewMCPServer(
		"index-tts-jianying-server",
		"1.0.0",
		mcp_server.WithToolCapabilities(true),
		mcp_server.WithRecovery(),
	)

	s := &Server{
		server: mcpServer,
		client: client,
		logger: logger,
	}
	s.handler = NewHandler(s.server, client, logger)
	s.handler.RegisterTools()

	return s, nil
}

// Start 以标准输入输出运行 MCP 服务器，阻塞直到连接断开
func (s *Server) Start(ctx context.Context) error {
	if err := mcp_server.ServeStdio(s.server); err != nil {
		s.logger.Error("MCP服务器启动失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) GetToolNames() []string {
	return s.handler.GetToolNames()
}

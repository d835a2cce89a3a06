package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config 控制台运行配置
type Config struct {
	APIBaseURL      string
	Listen          string
	SnapshotPath    string
	DefaultModel    string
	MsPerChar       int
	ImportFontSize  float64
	ProjectDir      string
	PreviewText     string
	PreviewFontSize float64
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:5000")
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("storage.snapshot_path", "./data/snapshot.sqlite")
	viper.SetDefault("tts.default_model", "checkpoints")
	viper.SetDefault("script.ms_per_char", 300)
	viper.SetDefault("script.import_font_size", 6.0)
	viper.SetDefault("jianying.project_dir", "")
	viper.SetDefault("fonts.preview_text", "字体效果预览 AaBbCc 123")
	viper.SetDefault("fonts.preview_size", 28.0)
}

// Load 加载配置文件。先找当前工作目录，再找可执行文件所在目录，
// 两处都没有时使用默认值运行。
func Load(logger *zap.Logger) *Config {
	setDefaults()

	wd, _ := os.Getwd()
	configPath := filepath.Join(wd, "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if exe, exeErr := os.Executable(); exeErr == nil {
			configPath = filepath.Join(filepath.Dir(exe), "config.yaml")
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatal("读取配置文件失败",
				zap.String("configPath", configPath),
				zap.Error(err),
			)
		}
		logger.Info("配置文件加载成功", zap.String("path", configPath))
	} else {
		logger.Info("未找到配置文件，使用默认配置")
	}

	return &Config{
		APIBaseURL:      viper.GetString("api.base_url"),
		Listen:          viper.GetString("server.listen"),
		SnapshotPath:    viper.GetString("storage.snapshot_path"),
		DefaultModel:    viper.GetString("tts.default_model"),
		MsPerChar:       viper.GetInt("script.ms_per_char"),
		ImportFontSize:  viper.GetFloat64("script.import_font_size"),
		ProjectDir:      viper.GetString("jianying.project_dir"),
		PreviewText:     viper.GetString("fonts.preview_text"),
		PreviewFontSize: viper.GetFloat64("fonts.preview_size"),
	}
}

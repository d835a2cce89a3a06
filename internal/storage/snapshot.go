package storage

import (
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shiyaaini/index-tts-jianying/internal/api"
	"github.com/shiyaaini/index-tts-jianying/internal/state"
)

// CachedVoice 本地缓存的参考音频
type CachedVoice struct {
	ID       uint   `gorm:"primaryKey"`
	Path     string `gorm:"uniqueIndex;size:512"`
	Name     string `gorm:"size:255"`
	Note     string
	Category string `gorm:"size:64"`
}

// CachedCategory 本地缓存的分类
type CachedCategory struct {
	CategoryID string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"size:255"`
	Position   int
}

// CachedRecord 本地缓存的生成记录，原始记录以 JSON 存储
type CachedRecord struct {
	RecordID string `gorm:"primaryKey;size:64"`
	Position int
	Payload  string
}

// SnapshotStore 用 SQLite 保存最近一次协调成功的完整快照。
// 启动时先读缓存渲染页面，再由协调器从服务端拉取最新状态。
type SnapshotStore struct {
	db *gorm.DB
}

// Open 打开或创建快照数据库
func Open(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %v", err)
	}

	gormLogger := logger.New(
		stdlog.New(stdlog.Writer(), "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("%s?_busy_timeout=10000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("打开快照数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&CachedVoice{}, &CachedCategory{}, &CachedRecord{}); err != nil {
		return nil, fmt.Errorf("迁移快照数据库失败: %v", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Save 整体替换缓存内容
func (s *SnapshotStore) Save(snap state.Snapshot) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []interface{}{&CachedVoice{}, &CachedCategory{}, &CachedRecord{}} {
			if err := tx.Where("1 = 1").Delete(table).Error; err != nil {
				return fmt.Errorf("清空缓存表失败: %v", err)
			}
		}

		for _, v := range snap.Voices {
			row := CachedVoice{Path: v.Path, Name: v.Name, Note: v.Note, Category: v.Category}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("写入音频缓存失败: %v", err)
			}
		}
		for i, c := range snap.Categories {
			row := CachedCategory{CategoryID: c.ID, Name: c.Name, Position: i}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("写入分类缓存失败: %v", err)
			}
		}
		for i, r := range snap.History {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("序列化生成记录失败: %v", err)
			}
			row := CachedRecord{RecordID: r.ID, Position: i, Payload: string(payload)}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("写入记录缓存失败: %v", err)
			}
		}
		return nil
	})
}

// Load 读取缓存的快照。缓存为空时返回空快照而不是错误。
func (s *SnapshotStore) Load() (state.Snapshot, error) {
	var snap state.Snapshot

	var voices []CachedVoice
	if err := s.db.Order("id").Find(&voices).Error; err != nil {
		return snap, fmt.Errorf("读取音频缓存失败: %v", err)
	}
	for _, v := range voices {
		snap.Voices = append(snap.Voices, api.Voice{
			Path:     v.Path,
			Name:     v.Name,
			Note:     v.Note,
			Category: v.Category,
			// 文件存在性以服务端为准，缓存渲染阶段先按存在处理
			FileExists: true,
		})
	}

	var categories []CachedCategory
	if err := s.db.Order("position").Find(&categories).Error; err != nil {
		return snap, fmt.Errorf("读取分类缓存失败: %v", err)
	}
	for _, c := range categories {
		snap.Categories = append(snap.Categories, api.Category{ID: c.CategoryID, Name: c.Name})
	}

	var records []CachedRecord
	if err := s.db.Order("position").Find(&records).Error; err != nil {
		return snap, fmt.Errorf("读取记录缓存失败: %v", err)
	}
	for _, r := range records {
		var record api.GenerationRecord
		if err := json.Unmarshal([]byte(r.Payload), &record); err != nil {
			continue
		}
		snap.History = append(snap.History, record)
	}

	return snap, nil
}

// Close 关闭数据库连接
func (s *SnapshotStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

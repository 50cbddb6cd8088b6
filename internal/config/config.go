package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 对应 config.yaml 的根结构
type Config struct {
	Sync   SyncConfig   `yaml:"sync"`
	Google GoogleConfig `yaml:"google"`
	Server ServerConfig `yaml:"server"`
	System SystemConfig `yaml:"system"`
}

// SyncConfig 同步相关配置
type SyncConfig struct {
	// 本地照片目录，拍照流程往这里写文件，同步引擎只读
	LocalDir string `yaml:"local_dir"`
	// 云端目标文件夹名，必须非空
	DriveFolder string `yaml:"drive_folder"`
	// 定时同步间隔，如 "60s"、"5m"
	Interval string `yaml:"interval"`
	// 解析后的 duration，不导出到 yaml
	IntervalDuration time.Duration `yaml:"-"`
}

// GoogleConfig Google Drive API 配置
// 授权码流程在引擎之外完成，这里只指向它保存下来的 token 文件
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
}

// ServerConfig 触发/状态 HTTP 接口配置
type ServerConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	DBPath   string `yaml:"db_path"`
	LockFile string `yaml:"lock_file"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// LoadConfig 读取并解析配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 格式错误: %w", err)
	}

	// 默认值
	if cfg.Sync.LocalDir == "" {
		cfg.Sync.LocalDir = "images"
	}
	if cfg.Sync.DriveFolder == "" {
		cfg.Sync.DriveFolder = "BarcoderImages"
	}
	if cfg.Sync.Interval == "" {
		cfg.Sync.Interval = "60s"
	}
	if cfg.Google.TokenFile == "" {
		cfg.Google.TokenFile = "config/token.json"
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":5000"
	}
	if cfg.System.DBPath == "" {
		cfg.System.DBPath = "data/barcodersync.db"
	}

	// 校验与转换
	if strings.TrimSpace(cfg.Sync.DriveFolder) == "" {
		return nil, fmt.Errorf("云端文件夹名 (sync.drive_folder) 不能为空")
	}

	duration, err := time.ParseDuration(cfg.Sync.Interval)
	if err != nil {
		return nil, fmt.Errorf("无效的同步间隔格式 (sync.interval): %v", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("同步间隔必须大于 0 (sync.interval): %s", cfg.Sync.Interval)
	}
	cfg.Sync.IntervalDuration = duration

	return &cfg, nil
}

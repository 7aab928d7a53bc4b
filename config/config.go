package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Data      DataConfig      `yaml:"data"`
	Upload    UploadConfig    `yaml:"upload"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Import    ImportConfig    `yaml:"import"`
	Grid      GridConfig      `yaml:"grid"`
	Export    ExportConfig    `yaml:"export"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql, postgres
	DSN  string `yaml:"dsn"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

type UploadConfig struct {
	MaxMB int64 `yaml:"max_mb"`
}

// ExtractorConfig 章节识别阈值，均为经验值
type ExtractorConfig struct {
	ArticleMinMatches  int `yaml:"article_min_matches"`
	CombinedMinMatches int `yaml:"combined_min_matches"`
	CombinedMaxMatches int `yaml:"combined_max_matches"`
	MarkupMinSections  int `yaml:"markup_min_sections"`
}

// ImportConfig 表格导入时的表头探测参数
type ImportConfig struct {
	HeaderScanRows int `yaml:"header_scan_rows"`
	HeaderMinHits  int `yaml:"header_min_hits"`
}

type GridConfig struct {
	DefaultRows    int     `yaml:"default_rows"`
	DefaultVATRate float64 `yaml:"default_vat_rate"`
}

type ExportConfig struct {
	Workers int `yaml:"workers"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/dce.db",
		},
		Data: DataConfig{
			Dir: "./data",
		},
		Upload: UploadConfig{
			MaxMB: 20,
		},
		Extractor: ExtractorConfig{
			ArticleMinMatches:  3,
			CombinedMinMatches: 3,
			CombinedMaxMatches: 120,
			MarkupMinSections:  2,
		},
		Import: ImportConfig{
			HeaderScanRows: 20,
			HeaderMinHits:  3,
		},
		Grid: GridConfig{
			DefaultRows:    10,
			DefaultVATRate: 20,
		},
		Export: ExportConfig{
			Workers: 4,
		},
	}
}

func loadConfig() *Config {
	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	applyEnv(config)
	return config
}

// applyEnv 环境变量优先级高于配置文件
func applyEnv(config *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	// 数据库环境变量
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
		if config.Database.Type == "sqlite" && os.Getenv("DB_DSN") == "" {
			config.Database.DSN = filepath.Join(dataDir, "dce.db")
		}
	}

	if maxMB := os.Getenv("MAX_UPLOAD_MB"); maxMB != "" {
		if v, err := strconv.ParseInt(maxMB, 10, 64); err == nil && v > 0 {
			config.Upload.MaxMB = v
		}
	}
}

// MaxUploadBytes 上传文件大小上限（字节）
func (c *Config) MaxUploadBytes() int64 {
	if c.Upload.MaxMB <= 0 {
		return 20 << 20
	}
	return c.Upload.MaxMB << 20
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func UpdateConfig(newCfg *Config) {
	cfg = newCfg
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (METINANALIZ_SERVER_ADDRESS, ...).
const EnvPrefix = "METINANALIZ"

// ConfigPathEnv selects the config file when no explicit path is given.
const ConfigPathEnv = EnvPrefix + "_CONFIG"

// Config represents runtime configuration for the service.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Redis      RedisConfig               `mapstructure:"redis"`
	Paths      PathsConfig               `mapstructure:"paths"`
	Processing ProcessingConfig          `mapstructure:"processing"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Logging    LoggingConfig             `mapstructure:"logging"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
	// MaxUploadMB is the upload limit used until the max_file_size setting is saved.
	MaxUploadMB int64 `mapstructure:"max_upload_mb" validate:"gte=1"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=sqlite sqlite3 mysql"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	Params   string `mapstructure:"params"`
}

type RedisConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	ProgressTTL int    `mapstructure:"progress_ttl_minutes"`
}

type PathsConfig struct {
	UploadDir  string `mapstructure:"upload_dir" validate:"required"`
	ResultsDir string `mapstructure:"results_dir" validate:"required"`
	BackupDir  string `mapstructure:"backup_dir" validate:"required"`
}

type ProcessingConfig struct {
	DefaultModel      string              `mapstructure:"default_model" validate:"required"`
	PDFChunkPages     int                 `mapstructure:"pdf_chunk_pages" validate:"gte=1"`
	OCRLanguage       string              `mapstructure:"ocr_language"`
	TesseractPath     string              `mapstructure:"tesseract_path"`
	VisionEnabled     bool                `mapstructure:"vision_enabled"`
	MaxAttempts       int                 `mapstructure:"max_attempts" validate:"gte=1"`
	RetryDelaySeconds int                 `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	TimeoutSeconds    int                 `mapstructure:"timeout_seconds" validate:"gte=1"`
	AllowedExtensions map[string][]string `mapstructure:"allowed_extensions" validate:"required"`
	PDFFontPath       string              `mapstructure:"pdf_font_path"`
	BackupKeep        int                 `mapstructure:"backup_keep" validate:"gte=1"`
	UploadTTLHours    int                 `mapstructure:"upload_ttl_hours" validate:"gte=0"`
	SweepMinutes      int                 `mapstructure:"sweep_interval_minutes" validate:"gte=0"`
}

// ProviderConfig describes one model endpoint. Keys of Config.Providers are the
// model names offered to clients (gemini, llama, openai, claude).
type ProviderConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Workspace  string `mapstructure:"workspace"`
	ImageModel string `mapstructure:"image_model"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// RetryDelay is the fixed pause between model call attempts.
func (p ProcessingConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySeconds) * time.Second
}

func (p ProcessingConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p ProcessingConfig) UploadTTL() time.Duration {
	return time.Duration(p.UploadTTLHours) * time.Hour
}

func (p ProcessingConfig) SweepInterval() time.Duration {
	return time.Duration(p.SweepMinutes) * time.Minute
}

func (r RedisConfig) ProgressTTLDuration() time.Duration {
	if r.ProgressTTL <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(r.ProgressTTL) * time.Minute
}

// Provider returns the provider block for name, or a zero value.
func (c *Config) Provider(name string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[strings.ToLower(name)]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8090")
	v.SetDefault("server.max_upload_mb", 16)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "data/text_analysis.db")
	v.SetDefault("database.params", "parseTime=true&charset=utf8mb4")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.progress_ttl_minutes", 30)

	v.SetDefault("paths.upload_dir", "data/uploads")
	v.SetDefault("paths.results_dir", "data/results")
	v.SetDefault("paths.backup_dir", "data/backups")

	v.SetDefault("processing.default_model", "gemini")
	v.SetDefault("processing.pdf_chunk_pages", 5)
	v.SetDefault("processing.ocr_language", "tur")
	v.SetDefault("processing.tesseract_path", "tesseract")
	v.SetDefault("processing.vision_enabled", false)
	v.SetDefault("processing.max_attempts", 3)
	v.SetDefault("processing.retry_delay_seconds", 5)
	v.SetDefault("processing.timeout_seconds", 60)
	v.SetDefault("processing.allowed_extensions", DefaultExtensions())
	v.SetDefault("processing.backup_keep", 5)
	v.SetDefault("processing.upload_ttl_hours", 24)
	v.SetDefault("processing.sweep_interval_minutes", 60)

	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("providers.gemini.image_model", "imagen-3.0-generate-002")
	v.SetDefault("providers.llama.base_url", "http://localhost:3001")
	v.SetDefault("providers.llama.workspace", "chatting")
	v.SetDefault("providers.llama.model", "llama")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// DefaultExtensions is the category → extension map accepted for uploads.
func DefaultExtensions() map[string][]string {
	return map[string][]string{
		"pdf":   {".pdf"},
		"image": {".jpg", ".jpeg", ".png"},
		"text":  {".txt"},
		"word":  {".docx"},
		"json":  {".json"},
	}
}

// Load reads configuration from the provided path. An empty path falls back to
// $METINANALIZ_CONFIG and then to ./config.json; a missing default file is not
// an error and yields the built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working dir: %w", err)
	}
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		v.SetConfigFile(absPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", absPath, err)
		}
		baseDir = filepath.Dir(absPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolvePaths(baseDir)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Paths.UploadDir = abs(c.Paths.UploadDir)
	c.Paths.ResultsDir = abs(c.Paths.ResultsDir)
	c.Paths.BackupDir = abs(c.Paths.BackupDir)
	if c.Processing.PDFFontPath != "" {
		c.Processing.PDFFontPath = abs(c.Processing.PDFFontPath)
	}
	if c.Database.Driver != "mysql" && isFileDSN(c.Database.DSN) {
		c.Database.DSN = abs(c.Database.DSN)
	}
}

func isFileDSN(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/kelseyhightower/envconfig"
)

// AI 提供方。
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
	ProviderOllama = "ollama"
)

// 会话存储后端。
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Store   StoreConfig
	Stories StoriesConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config

	sections := []struct {
		name   string
		target interface{}
	}{
		{"server", &cfg.Server},
		{"ai", &cfg.AI},
		{"store", &cfg.Store},
		{"stories", &cfg.Stories},
		{"log", &cfg.Log},
	}
	for _, section := range sections {
		if err := envconfig.Process("", section.target); err != nil {
			return nil, fmt.Errorf("load %s config: %w", section.name, err)
		}
	}

	if err := cfg.Server.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.AI.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Stories.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Log.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Host           string   `envconfig:"HOST" default:"0.0.0.0"`
	Port           string   `envconfig:"PORT" default:"8000"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	Addr string `ignored:"true"`
}

// resolve 解析服务器监听地址。
func (c *ServerConfig) resolve() error {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		c.Addr = port
		return nil
	}

	if strings.Contains(port, " ") {
		return fmt.Errorf("invalid PORT value: %q", port)
	}

	c.Addr = strings.TrimSpace(c.Host) + ":" + port
	return nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string        `envconfig:"AI_PROVIDER" default:"openai"`
	Timeout     time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	Temperature *float64      `envconfig:"AI_TEMPERATURE"`
	TopP        *float64      `envconfig:"AI_TOP_P"`
	MaxTokens   *int          `envconfig:"AI_MAX_TOKENS"`

	// OpenAI 兼容接口，默认指向 Gemini。
	OpenAIAPIKey  string `envconfig:"GEMINI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gemini-2.0-flash"`

	// 火山方舟。
	APIKey    string `envconfig:"ARK_API_KEY"`
	AccessKey string `envconfig:"ARK_ACCESS_KEY"`
	SecretKey string `envconfig:"ARK_SECRET_KEY"`
	Model     string `envconfig:"ARK_MODEL"`
	BaseURL   string `envconfig:"ARK_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string `envconfig:"ARK_REGION" default:"cn-beijing"`

	OllamaHost  string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llama3.1"`
}

func (c *AIConfig) resolve() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderArk, ProviderOllama:
	default:
		return fmt.Errorf("invalid AI_PROVIDER value: %q", c.Provider)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid AI_TIMEOUT value: %s", c.Timeout)
	}

	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	return nil
}

// Enabled 表示当前提供方是否提供了必需的密钥与模型。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	case ProviderOllama:
		return c.OllamaHost != "" && c.OllamaModel != ""
	default:
		return c.OpenAIAPIKey != "" && c.OpenAIModel != ""
	}
}

// ModelName 返回当前提供方使用的模型名。
func (c AIConfig) ModelName() string {
	switch c.Provider {
	case ProviderArk:
		return c.Model
	case ProviderOllama:
		return c.OllamaModel
	default:
		return c.OpenAIModel
	}
}

// NewChatModel 使用方舟配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Model == "" || (c.APIKey == "" && (c.AccessKey == "" || c.SecretKey == "")) {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// StoreConfig 描述会话存储配置。
type StoreConfig struct {
	Backend       string `envconfig:"STORE_BACKEND" default:"file"`
	DataDir       string `envconfig:"DATA_DIR" default:"./data"`
	SessionsFile  string `envconfig:"SESSIONS_FILE" default:"previous_answers.json"`
	SQLitePath    string `envconfig:"SQLITE_PATH"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisKey      string `envconfig:"REDIS_KEY" default:"zsaga:sessions"`
}

func (c *StoreConfig) validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
		return nil
	default:
		return fmt.Errorf("invalid STORE_BACKEND value: %q", c.Backend)
	}
}

// SessionsPath 返回会话文档的完整路径。
func (c StoreConfig) SessionsPath() string {
	if filepath.IsAbs(c.SessionsFile) {
		return c.SessionsFile
	}
	return filepath.Join(c.DataDir, c.SessionsFile)
}

// DatabasePath 返回 SQLite 数据库路径，未配置时放在数据目录下。
func (c StoreConfig) DatabasePath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "sessions.db")
}

// StoriesConfig 描述故事原文的位置以及提示词中引用原文的长度。
type StoriesConfig struct {
	Dir      string `envconfig:"STORIES_DIR" default:"./stories"`
	Manifest string `envconfig:"STORIES_MANIFEST"`

	StartExcerpt    int `envconfig:"PROMPT_START_EXCERPT" default:"3000"`
	ContinueExcerpt int `envconfig:"PROMPT_CONTINUE_EXCERPT" default:"2000"`
	HistoryWindow   int `envconfig:"PROMPT_HISTORY_WINDOW" default:"3"`
}

func (c *StoriesConfig) validate() error {
	limits := []struct {
		key   string
		value int
	}{
		{"PROMPT_START_EXCERPT", c.StartExcerpt},
		{"PROMPT_CONTINUE_EXCERPT", c.ContinueExcerpt},
		{"PROMPT_HISTORY_WINDOW", c.HistoryWindow},
	}
	for _, l := range limits {
		if l.value <= 0 {
			return fmt.Errorf("invalid %s value: %d", l.key, l.value)
		}
	}
	return nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`
	Encoding string `envconfig:"LOG_ENCODING" default:"json"`
}

func (c *LogConfig) validate() error {
	c.Encoding = strings.ToLower(strings.TrimSpace(c.Encoding))
	if c.Encoding != "json" && c.Encoding != "console" {
		return fmt.Errorf("invalid LOG_ENCODING value: %q", c.Encoding)
	}
	return nil
}

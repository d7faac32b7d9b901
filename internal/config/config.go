package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Gateway     GatewayConfig             `json:"gateway"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Redis       RedisConfig               `json:"redis"`
	Dispatcher  DispatcherConfig          `json:"dispatcher"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	LogFile       string `json:"log_file"`
	Production    bool   `json:"production"`
	TemplateDir   string `json:"template_dir"`
	// MaxUploadMB bounds the size of a single uploaded document.
	MaxUploadMB int `json:"max_upload_mb"`
	// WorkspaceTTL and WorkspaceCleanup are minutes.
	WorkspaceTTL     int `json:"workspace_ttl"`
	WorkspaceCleanup int `json:"workspace_cleanup"`
}

type GatewayConfig struct {
	APIKey        string `json:"api_key"`
	AnalysisModel string `json:"analysis_model"`
	SpeechModel   string `json:"speech_model"`
	Voice         string `json:"voice"`
	// ChatProvider names an entry of Providers used for chat answers.
	ChatProvider   string `json:"chat_provider"`
	LocateModel    string `json:"locate_model"`
	LocateStrategy string `json:"locate_strategy"`
	// TimeoutSeconds bounds every remote call.
	TimeoutSeconds int `json:"timeout_seconds"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type DispatcherConfig struct {
	MinWorkers int `json:"min_workers"`
	MaxWorkers int `json:"max_workers"`
	QueueSize  int `json:"queue_size"`
	// WorkerIdleTimeout is seconds.
	WorkerIdleTimeout int `json:"worker_idle_timeout"`
}

const (
	DefaultAnalysisModel  = "gemini-2.5-flash"
	DefaultSpeechModel    = "gemini-2.5-flash-preview-tts"
	DefaultVoice          = "Algenib"
	DefaultLocateStrategy = "maps"
	DefaultTimeout        = 60 * time.Second
)

// Load reads configuration from the provided path (defaults to config.json).
// Secrets missing from the file are taken from the environment, after an
// optional .env next to the config has been loaded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(absPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env %s: %w", envPath, err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.BasicConfig.TemplateDir != "" && !filepath.IsAbs(cfg.BasicConfig.TemplateDir) {
		cfg.BasicConfig.TemplateDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.TemplateDir)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Gateway.APIKey == "" {
		c.Gateway.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	for name, p := range c.Providers {
		if p.APIKey == "" {
			p.APIKey = os.Getenv(strings.ToUpper(name) + "_API_KEY")
			c.Providers[name] = p
		}
	}
	if pw := os.Getenv("REDIS_PASSWORD"); c.Redis.Password == "" && pw != "" {
		c.Redis.Password = pw
	}
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8090"
	}
	if c.BasicConfig.LogFile == "" {
		c.BasicConfig.LogFile = "./logs/sahaj.log"
	}
	if c.BasicConfig.MaxUploadMB <= 0 {
		c.BasicConfig.MaxUploadMB = 10
	}
	if c.BasicConfig.WorkspaceTTL <= 0 {
		c.BasicConfig.WorkspaceTTL = 60
	}
	if c.BasicConfig.WorkspaceCleanup <= 0 {
		c.BasicConfig.WorkspaceCleanup = 10
	}
	if c.Gateway.AnalysisModel == "" {
		c.Gateway.AnalysisModel = DefaultAnalysisModel
	}
	if c.Gateway.LocateModel == "" {
		c.Gateway.LocateModel = c.Gateway.AnalysisModel
	}
	if c.Gateway.SpeechModel == "" {
		c.Gateway.SpeechModel = DefaultSpeechModel
	}
	if c.Gateway.Voice == "" {
		c.Gateway.Voice = DefaultVoice
	}
	if c.Gateway.ChatProvider == "" {
		c.Gateway.ChatProvider = "gemini"
	}
	if c.Gateway.LocateStrategy == "" {
		c.Gateway.LocateStrategy = DefaultLocateStrategy
	}
	if _, ok := c.Providers["gemini"]; !ok {
		c.Providers["gemini"] = ProviderConfig{Model: c.Gateway.AnalysisModel, APIKey: c.Gateway.APIKey}
	}
	if c.Dispatcher.MinWorkers <= 0 {
		c.Dispatcher.MinWorkers = 2
	}
	if c.Dispatcher.MaxWorkers < c.Dispatcher.MinWorkers {
		c.Dispatcher.MaxWorkers = 16
	}
	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = 256
	}
}

// Validate reports configuration that cannot serve requests.
func (c *Config) Validate() error {
	if c.Gateway.APIKey == "" {
		return errors.New("gateway api_key or GEMINI_API_KEY must be configured")
	}
	switch c.Gateway.LocateStrategy {
	case "maps", "search":
	default:
		return fmt.Errorf("unknown locate_strategy %q", c.Gateway.LocateStrategy)
	}
	if _, ok := c.Providers[c.Gateway.ChatProvider]; !ok {
		return fmt.Errorf("chat provider %s not configured", c.Gateway.ChatProvider)
	}
	return nil
}

// Timeout returns the bound applied to every gateway call.
func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func (b BasicConfig) WorkspaceLifetime() time.Duration {
	return time.Duration(b.WorkspaceTTL) * time.Minute
}

func (b BasicConfig) WorkspaceCleanupInterval() time.Duration {
	return time.Duration(b.WorkspaceCleanup) * time.Minute
}

func (b BasicConfig) MaxUploadBytes() int64 {
	return int64(b.MaxUploadMB) << 20
}

func (d DispatcherConfig) IdleTimeout() time.Duration {
	return time.Duration(d.WorkerIdleTimeout) * time.Second
}

package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// 传输方式
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Config 聚合客户端与参考后端的全部配置项。
type Config struct {
	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
	AI     AIConfig     `toml:"ai"`
	Mail   MailConfig   `toml:"mail"`
}

// ClientConfig 描述聊天客户端。
type ClientConfig struct {
	AskURL         string        `toml:"ask_url"`
	DraftURL       string        `toml:"draft_url"`
	Transport      string        `toml:"transport"`
	Mode           string        `toml:"mode"`
	Greeting       string        `toml:"greeting"`
	NoticeDelay    time.Duration `toml:"notice_delay"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	Sender         string        `toml:"sender"`
}

// WSURL derives the websocket ask endpoint from AskURL.
func (c ClientConfig) WSURL() string {
	u, err := url.Parse(c.AskURL)
	if err != nil {
		return c.AskURL
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

// ServerConfig 描述 HTTP 服务配置。DraftAddr 非空时额外监听一个端口，
// 默认 :8000 / :8081 分别对应 Client.AskURL 与 Client.DraftURL。
type ServerConfig struct {
	Addr      string `toml:"addr"`
	DraftAddr string `toml:"draft_addr"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string   `toml:"api_key"`
	AccessKey   string   `toml:"access_key"`
	SecretKey   string   `toml:"secret_key"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"`
	Region      string   `toml:"region"`
	Temperature *float64 `toml:"temperature"`
	TopP        *float64 `toml:"top_p"`
	MaxTokens   *int     `toml:"max_tokens"`
}

// MailConfig 描述草稿生成配置。
type MailConfig struct {
	DefaultRecipient string `toml:"default_recipient"`
	HistoryLimit     int    `toml:"history_limit"`
	LLMEnabled       bool   `toml:"llm_enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			AskURL:         "http://localhost:8000",
			DraftURL:       "http://localhost:8081",
			Transport:      TransportHTTP,
			Mode:           "normal",
			Greeting:       "Hello! How can I assist you today?",
			NoticeDelay:    2 * time.Second,
			RequestTimeout: 60 * time.Second,
			Sender:         "concierge@localhost",
		},
		Server: ServerConfig{
			Addr:      ":8000",
			DraftAddr: ":8081",
		},
		AI: AIConfig{
			BaseURL: "https://ark.cn-beijing.volces.com/api/v3",
			Region:  "cn-beijing",
		},
		Mail: MailConfig{
			DefaultRecipient: "team@argano.com",
			LLMEnabled:       true,
		},
	}
}

// Load 依次应用默认值、可选的 TOML 文件和环境变量，后者优先。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Client.Transport {
	case TransportHTTP, TransportWS:
	default:
		return fmt.Errorf("%w: transport must be %q or %q, got %q", ErrInvalidConfig, TransportHTTP, TransportWS, c.Client.Transport)
	}
	if c.Client.NoticeDelay <= 0 {
		return fmt.Errorf("%w: notice_delay must be positive", ErrInvalidConfig)
	}
	if c.Client.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}
	if c.Mail.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Client.AskURL = getEnvOrDefault("CONCIERGE_ASK_URL", c.Client.AskURL)
	c.Client.DraftURL = getEnvOrDefault("CONCIERGE_DRAFT_URL", c.Client.DraftURL)
	c.Client.Transport = strings.ToLower(getEnvOrDefault("CONCIERGE_TRANSPORT", c.Client.Transport))
	c.Client.Mode = getEnvOrDefault("CONCIERGE_MODE", c.Client.Mode)
	c.Client.Greeting = getEnvOrDefault("CONCIERGE_GREETING", c.Client.Greeting)
	c.Client.Sender = getEnvOrDefault("CONCIERGE_SENDER", c.Client.Sender)

	delay, err := parseOptionalDurationEnv("CONCIERGE_NOTICE_DELAY")
	if err != nil {
		return err
	}
	if delay != nil {
		c.Client.NoticeDelay = *delay
	}

	timeout, err := parseOptionalDurationEnv("CONCIERGE_REQUEST_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		c.Client.RequestTimeout = *timeout
	}

	if err := c.Server.applyEnv(); err != nil {
		return err
	}
	if err := c.AI.applyEnv(); err != nil {
		return err
	}

	c.Mail.DefaultRecipient = getEnvOrDefault("MAIL_DEFAULT_RECIPIENT", c.Mail.DefaultRecipient)
	limit, err := parseOptionalIntEnv("MAIL_HISTORY_LIMIT")
	if err != nil {
		return err
	}
	if limit != nil {
		c.Mail.HistoryLimit = *limit
	}
	c.Mail.LLMEnabled, err = parseBoolEnv("MAIL_LLM_ENABLED", c.Mail.LLMEnabled)
	return err
}

// applyEnv 解析服务器监听地址。
func (s *ServerConfig) applyEnv() error {
	addr, err := normalizeAddr("PORT", os.Getenv("PORT"), s.Addr)
	if err != nil {
		return err
	}
	draftAddr, err := normalizeAddr("DRAFT_PORT", os.Getenv("DRAFT_PORT"), s.DraftAddr)
	if err != nil {
		return err
	}
	s.Addr, s.DraftAddr = addr, draftAddr
	return nil
}

func normalizeAddr(key, raw, fallback string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return fallback, nil
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid %s value: %q", key, port)
	}

	return ":" + port, nil
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
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

func (c *AIConfig) applyEnv() error {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return err
	}
	if temperature != nil {
		c.Temperature = temperature
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return err
	}
	if topP != nil {
		c.TopP = topP
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return err
	}
	if maxTokens != nil {
		c.MaxTokens = maxTokens
	}

	c.APIKey = getEnvOrDefault("ARK_API_KEY", c.APIKey)
	c.AccessKey = getEnvOrDefault("ARK_ACCESS_KEY", c.AccessKey)
	c.SecretKey = getEnvOrDefault("ARK_SECRET_KEY", c.SecretKey)
	c.Model = getEnvOrDefault("Model", c.Model)
	c.BaseURL = getEnvOrDefault("ARK_BASE_URL", c.BaseURL)
	c.Region = getEnvOrDefault("ARK_REGION", c.Region)
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func lookupTrimmed(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	return value, value != ""
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseOptionalDurationEnv 接受 "1500ms" 这类时长，也接受纯数字（按毫秒）。
func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}

	if ms, err := strconv.Atoi(value); err == nil {
		d := time.Duration(ms) * time.Millisecond
		return &d, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &d, nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		Env         string   `yaml:"env"`
		AppURL      string   `yaml:"appUrl"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Database struct {
		Host         string   `yaml:"host"`
		Port         int      `yaml:"port"`
		User         string   `yaml:"user"`
		Password     string   `yaml:"password"`
		Name         string   `yaml:"name"`
		Replicas     []string `yaml:"replicas"`
		MaxOpenConns int      `yaml:"maxOpenConns"`
	} `yaml:"database"`

	Mongo struct {
		URI string `yaml:"uri"`
	} `yaml:"mongo"`

	Redis struct {
		Addr          string `yaml:"addr"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		HistoryMaxLen int64  `yaml:"historyMaxLen"`
	} `yaml:"redis"`

	LanguageTool struct {
		URL            string `yaml:"url"`
		Language       string `yaml:"language"`
		MinLength      int    `yaml:"minLength"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"languageTool"`

	Pipeline struct {
		DebounceMillis int `yaml:"debounceMillis"`
	} `yaml:"pipeline"`

	Chat struct {
		Provider string `yaml:"provider"`
	} `yaml:"chat"`

	OpenRouter struct {
		APIKey      string  `yaml:"apiKey"`
		BaseURL     string  `yaml:"baseUrl"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"maxTokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"openrouter"`

	Gemini struct {
		APIKey    string `yaml:"apiKey"`
		ChatModel string `yaml:"chatModel"`
		OCRModel  string `yaml:"ocrModel"`
	} `yaml:"gemini"`
}

// LoadConfig reads the optional .env file next to the working directory, the
// YAML file at path (skipped when path is empty) and environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal yaml")
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "stat %s", path)
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*dst = n
		return nil
	}

	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	str("APP_ENV", &c.Server.Env)
	str("APP_URL", &c.Server.AppURL)
	if v, ok := lookup("CORS_ORIGIN"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("JWT_SECRET", &c.JWT.Secret)
	str("DB_HOST", &c.Database.Host)
	if err := num("DB_PORT", &c.Database.Port); err != nil {
		return err
	}
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("MONGO_URI", &c.Mongo.URI)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("LANGUAGETOOL_URL", &c.LanguageTool.URL)
	str("CHAT_PROVIDER", &c.Chat.Provider)
	str("OPENROUTER_API_KEY", &c.OpenRouter.APIKey)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Env == "" {
		c.Server.Env = EnvDevelopment
	}
	c.Server.Env = strings.ToLower(c.Server.Env)
	if c.Server.AppURL == "" {
		c.Server.AppURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{c.Server.AppURL}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Redis.HistoryMaxLen == 0 {
		c.Redis.HistoryMaxLen = 200
	}
	if c.LanguageTool.URL == "" {
		c.LanguageTool.URL = "https://api.languagetool.org/v2/check"
	}
	if c.LanguageTool.Language == "" {
		c.LanguageTool.Language = "es"
	}
	if c.LanguageTool.MinLength == 0 {
		c.LanguageTool.MinLength = 3
	}
	if c.LanguageTool.TimeoutSeconds == 0 {
		c.LanguageTool.TimeoutSeconds = 10
	}
	if c.Pipeline.DebounceMillis == 0 {
		c.Pipeline.DebounceMillis = 750
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = ProviderOpenRouter
	}
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = "mistralai/mistral-7b-instruct:free"
	}
	if c.OpenRouter.MaxTokens == 0 {
		c.OpenRouter.MaxTokens = 150
	}
	if c.OpenRouter.Temperature == 0 {
		c.OpenRouter.Temperature = 0.5
	}
	if c.Gemini.ChatModel == "" {
		c.Gemini.ChatModel = "gemini-2.5-flash"
	}
	if c.Gemini.OCRModel == "" {
		c.Gemini.OCRModel = "gemini-2.5-flash"
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// Validate returns every problem found, not just the first.
func (c *Config) Validate() []error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, errors.Errorf("server.env %q must be development, production or test", c.Server.Env))
	}
	if c.IsProduction() {
		if c.JWT.Secret == "" {
			errs = append(errs, errors.New("jwt.secret is required in production"))
		}
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required in production"))
		}
	}
	if c.Database.Host != "" && (c.Database.User == "" || c.Database.Name == "") {
		errs = append(errs, errors.New("database.user and database.name are required when database.host is set"))
	}
	if u, err := url.Parse(c.LanguageTool.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.Errorf("languageTool.url %q is not an absolute URL", c.LanguageTool.URL))
	}
	if c.LanguageTool.MinLength < 1 {
		errs = append(errs, errors.New("languageTool.minLength must be at least 1"))
	}
	if c.LanguageTool.TimeoutSeconds < 1 {
		errs = append(errs, errors.New("languageTool.timeoutSeconds must be at least 1"))
	}
	if c.Pipeline.DebounceMillis < 0 {
		errs = append(errs, errors.New("pipeline.debounceMillis must not be negative"))
	}
	switch c.Chat.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		errs = append(errs, errors.Errorf("chat.provider %q must be openrouter or gemini", c.Chat.Provider))
	}
	if c.OpenRouter.Temperature < 0 || c.OpenRouter.Temperature > 2 {
		errs = append(errs, errors.New("openrouter.temperature must be between 0 and 2"))
	}
	return errs
}

// MySQLDSN builds the go-sql-driver DSN for the primary database.
func (c *Config) MySQLDSN() string {
	d := c.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func (c *Config) LanguageToolTimeout() time.Duration {
	return time.Duration(c.LanguageTool.TimeoutSeconds) * time.Second
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Pipeline.DebounceMillis) * time.Millisecond
}

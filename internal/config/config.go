package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Dev struct {
		Mode bool `yaml:"mode"`
	} `yaml:"dev"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	ObjectStore struct {
		BaseURL       string `yaml:"base_url"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"object_store"`
	LLM struct {
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		InvokeURL string `yaml:"invoke_url"`
		TimeoutS  int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	CORS struct {
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"cors"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8000"
	cfg.Dev.Mode = true
	cfg.LLM.Model = "mistralai/mistral-large-3-675b-instruct-2512"
	cfg.LLM.InvokeURL = "https://integrate.api.nvidia.com/v1/chat/completions"
	cfg.LLM.TimeoutS = 30
	cfg.CORS.AllowOrigins = []string{"*"}
	cfg.Log.Level = "info"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CC_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("CC_DEV_MODE"); v != "" {
		cfg.Dev.Mode = parseBool(v, cfg.Dev.Mode)
	}
	if v := os.Getenv("CC_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CC_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("CC_OBJECT_STORE_BASE_URL"); v != "" {
		cfg.ObjectStore.BaseURL = v
	}
	if v := os.Getenv("CC_OBJECT_STORE_PUBLIC_BASE_URL"); v != "" {
		cfg.ObjectStore.PublicBaseURL = v
	}
	if v := os.Getenv("CC_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CC_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CC_LLM_INVOKE_URL"); v != "" {
		cfg.LLM.InvokeURL = v
	}
	if v := os.Getenv("CC_LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.TimeoutS = n
		}
	}
	if v := os.Getenv("CC_CORS_ALLOW_ORIGINS"); v != "" {
		cfg.CORS.AllowOrigins = splitCSV(v)
	}
	if v := os.Getenv("CC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		out = append(out, val)
	}
	return out
}

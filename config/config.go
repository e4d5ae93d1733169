package config

import (
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Directory DirectoryConfig `yaml:"directory"`
	Chain     ChainConfig     `yaml:"chain"`
}

type ServerConfig struct {
	Port      string          `yaml:"port" env:"SERVER_PORT"`
	Mode      string          `yaml:"mode" env:"SERVER_MODE"` // debug, release
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig /api 限流，RPS 为 0 时不限流
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type DatabaseConfig struct {
	Type string `yaml:"type" env:"DB_TYPE"` // sqlite, mysql, postgres
	DSN  string `yaml:"dsn" env:"DB_DSN"`
}

// RedisConfig Addr 为空时审批链锁只在进程内生效
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type DirectoryConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" env:"DIRECTORY_CACHE_TTL"`
}

type ChainConfig struct {
	LockTTL time.Duration `yaml:"lock_ttl" env:"CHAIN_LOCK_TTL"`
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

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
			RateLimit: RateLimitConfig{
				RPS:   50,
				Burst: 100,
			},
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		Directory: DirectoryConfig{
			CacheTTL: 30 * time.Second,
		},
		Chain: ChainConfig{
			LockTTL: 10 * time.Second,
		},
	}
}

func loadConfig() *Config {
	config := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			klog.Warningf("解析配置文件失败: path=%s, error=%v", configPath, err)
		}
	}

	// 环境变量优先级高于配置文件
	if err := applyEnv(config); err != nil {
		klog.Warningf("解析环境变量失败: %v", err)
	}

	return config
}

// applyEnv 只覆盖已设置的环境变量，未设置的字段保留原值
func applyEnv(config *Config) error {
	return env.Parse(config)
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

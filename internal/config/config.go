package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PostgresConfig holds configuration for the durable store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"` // disable, require, verify-full
	// 连接池设置
	MaxOpenConns int `yaml:"max_open_conns"` // 最大打开连接数
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大空闲连接数
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"` // 连接超时(秒)
	// GORM日志级别: 1=Silent 2=Error 3=Warn 4=Info
	LogLevel int `yaml:"log_level"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`          // 最大重试次数
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"` // 最小重试间隔(毫秒)
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"` // 最大重试间隔(毫秒)
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址, 例如 "0.0.0.0:8080"
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// WarmerConfig 自动补全缓存预热配置
type WarmerConfig struct {
	DataTypes []string `yaml:"data_types"` // 需要预热的数据类型标签
	Depth     int      `yaml:"depth"`      // 预热深度(1-3), 0表示使用各类型自己声明的深度
}

// Config 应用程序配置
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Logger   LoggerConfig   `yaml:"logger"`
	Warmer   WarmerConfig   `yaml:"warmer"`
}

// LoadConfig 从文件加载配置。
// configPath为空时在常见位置查找config.yaml；找不到任何文件时返回默认配置而不报错，
// 以便测试与本地环境可以直接跑起来。
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			"../../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".borgcache", "config.yaml"),
		}
		if execPath, err := os.Executable(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
		}
		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
		if configPath == "" {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides 允许环境变量覆盖敏感或随部署变化的字段。
// 除此之外的配置一律来自显式的配置结构，不做零散的环境变量读取。
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
}

// DefaultConfig 返回带有文档化默认值的配置
func DefaultConfig() *Config {
	return &Config{
		Postgres: PostgresConfig{
			Host:                   "127.0.0.1",
			Port:                   5432,
			Username:               "postgres",
			Password:               "",
			Database:               "postgres",
			SSLMode:                "disable",
			MaxOpenConns:           20,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 60,
			ConnMaxIdleTimeMinutes: 30,
			ConnectTimeoutSeconds:  5,
			LogLevel:               3,
		},
		Redis: RedisConfig{
			Address:                "127.0.0.1:6379",
			Password:               "",
			DB:                     0,
			PoolSize:               16,
			MinIdleConns:           2,
			DialTimeoutSeconds:     5,
			ReadTimeoutSeconds:     3,
			WriteTimeoutSeconds:    3,
			MaxRetries:             3,
			MinRetryBackoffMS:      8,
			MaxRetryBackoffMS:      512,
			ConnMaxLifetimeMinutes: 60,
			ConnMaxIdleTimeMinutes: 30,
		},
		Server: ServerConfig{
			Address: "0.0.0.0:8080",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Warmer: WarmerConfig{
			DataTypes: []string{"animal", "food"},
			Depth:     0,
		},
	}
}

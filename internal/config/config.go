// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（池默认密码、JWT 密钥）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 凭据单一数据源：密码/密钥只存在 .env 中，YAML 不存储任何密码。
//
// 环境：
//   - 开发: APP_ENV=dev (默认) → configs/dev.yaml
//   - 测试: APP_ENV=test → configs/test.yaml
//   - 生产: APP_ENV=prod → configs/prod.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration 支持 "4s" / "15m" 写法的 YAML 时长字段
type Duration time.Duration

// UnmarshalYAML 按 time.ParseDuration 语义解析
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转换为标准库时长
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`
	Pool   PoolConfig   `yaml:"pool"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// AuditConfig 审计日志（SQLite）配置
type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

// PoolConfig 节点池配置
//
// Defaults 为池级默认参数（username/distr/bind_addr/bind_port）。
// 默认 SSH 密码只从 POOL_DEFAULT_PASSWORD 环境变量读取，
// 不存储在 YAML 中。
type PoolConfig struct {
	StartupPause Duration          `yaml:"startup_pause"`
	Defaults     map[string]string `yaml:"defaults"`
}

// AuthConfig 认证配置
//
// JWTSecret/AdminPassword 只从环境变量读取。
type AuthConfig struct {
	JWTSecret      string   `yaml:"-"`
	AdminUser      string   `yaml:"admin_user"`
	AdminPassword  string   `yaml:"-"`
	AccessTokenTTL Duration `yaml:"access_token_ttl"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env     Environment
	APIPort string
	Log     LogConfig
	Audit   AuditConfig
	Pool    PoolConfig
	Auth    AuthConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"/etc/delta-admin",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
}

// Load 加载配置
//  1. 加载 .env（敏感信息 + APP_ENV）
//  2. 根据 APP_ENV 加载 configs/{env}.yaml
//  3. 环境变量覆盖，构建最终配置
func Load() *Config {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))
	yamlCfg := loadYAMLConfig(env)

	cfg := &Config{
		Env:     env,
		APIPort: getEnv("API_PORT", yamlCfg.Server.Port),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", yamlCfg.Log.Level),
			Format: getEnv("LOG_FORMAT", yamlCfg.Log.Format),
		},
		Audit: AuditConfig{
			DBPath: getEnv("AUDIT_DB_PATH", yamlCfg.Audit.DBPath),
		},
		Pool: yamlCfg.Pool,
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			AdminUser:      getEnv("ADMIN_USER", yamlCfg.Auth.AdminUser),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
			AccessTokenTTL: yamlCfg.Auth.AccessTokenTTL,
		},
	}

	if cfg.Pool.Defaults == nil {
		cfg.Pool.Defaults = make(map[string]string)
	}
	// 默认 SSH 密码只来自环境变量
	if pw := os.Getenv("POOL_DEFAULT_PASSWORD"); pw != "" {
		cfg.Pool.Defaults["password"] = pw
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Audit:  AuditConfig{DBPath: "delta-admin.db"},
		Pool: PoolConfig{
			StartupPause: Duration(4 * time.Second),
			Defaults:     map[string]string{},
		},
		Auth: AuthConfig{
			AdminUser:      "admin",
			AccessTokenTTL: Duration(15 * time.Minute),
		},
	}

	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "prod", "production":
		return EnvProduction
	case "test":
		return EnvTest
	default:
		return EnvDevelopment
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// String 打印配置（脱敏）
func (c *Config) String() string {
	defaults := make([]string, 0, len(c.Pool.Defaults))
	for k := range c.Pool.Defaults {
		if k == "password" {
			defaults = append(defaults, "password=***")
			continue
		}
		defaults = append(defaults, k+"="+c.Pool.Defaults[k])
	}
	return fmt.Sprintf("env=%s port=%s audit_db=%s pool_defaults=[%s] auth_enabled=%v",
		c.Env, c.APIPort, c.Audit.DBPath, strings.Join(defaults, " "), c.Auth.JWTSecret != "")
}

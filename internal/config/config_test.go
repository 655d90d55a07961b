// Package config 配置加载测试
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults 无配置文件时使用硬编码默认值
func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("APP_ENV", "dev")

	cfg := Load()
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "delta-admin.db", cfg.Audit.DBPath)
	assert.Equal(t, 4*time.Second, cfg.Pool.StartupPause.Std())
	assert.False(t, cfg.Auth.JWTSecret != "")
}

// TestLoad_YAMLAndEnvOverride 环境变量覆盖 YAML 配置
func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0755))
	yaml := `
server:
  port: "9090"
log:
  level: debug
pool:
  startup_pause: 2s
  defaults:
    username: deploy
    bind_port: "6100"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "test.yaml"), []byte(yaml), 0644))
	t.Chdir(dir)
	t.Setenv("APP_ENV", "test")
	t.Setenv("API_PORT", "7070")

	cfg := Load()
	assert.Equal(t, EnvTest, cfg.Env)
	// 环境变量优先于 YAML
	assert.Equal(t, "7070", cfg.APIPort)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.Pool.StartupPause.Std())
	assert.Equal(t, "deploy", cfg.Pool.Defaults["username"])
	assert.Equal(t, "6100", cfg.Pool.Defaults["bind_port"])
}

// TestLoad_PasswordOnlyFromEnv 池默认密码只来自环境变量
func TestLoad_PasswordOnlyFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("POOL_DEFAULT_PASSWORD", "s3cret")

	cfg := Load()
	assert.Equal(t, "s3cret", cfg.Pool.Defaults["password"])

	// String() 输出脱敏
	assert.NotContains(t, cfg.String(), "s3cret")
}

// TestParseEnv 环境解析
func TestParseEnv(t *testing.T) {
	assert.Equal(t, EnvProduction, parseEnv("prod"))
	assert.Equal(t, EnvProduction, parseEnv("PRODUCTION"))
	assert.Equal(t, EnvTest, parseEnv("test"))
	assert.Equal(t, EnvDevelopment, parseEnv(""))
	assert.Equal(t, EnvDevelopment, parseEnv("anything"))
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config 是 TOML 文件 / 环境变量映射的整体结构，仅供 CLI 组装 application.Config 使用。
type Config struct {
	AppName         string   `mapstructure:"AppName"`
	ListenHost      string   `mapstructure:"ListenHost"`
	ListenPort      int      `mapstructure:"ListenPort"`
	Environment     string   `mapstructure:"Environment"`
	SecureHTTP      bool     `mapstructure:"SecureHTTP"`
	TLSCertFile     string   `mapstructure:"TLSCertFile"`
	TLSKeyFile      string   `mapstructure:"TLSKeyFile"`
	AllowedOrigins  []string `mapstructure:"AllowedOrigins"`
	BodyLimit       int      `mapstructure:"BodyLimit"`
	NotFoundPage    string   `mapstructure:"NotFoundPage"`
	ShutdownTimeout Duration `mapstructure:"ShutdownTimeout"`
	DatabasePath    string   `mapstructure:"DatabasePath"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
}

// IsProduction 表示当前运行环境是否为 production。
func (c Config) IsProduction() bool {
	return IsProduction(c.Environment)
}

// IsProduction 对环境名做大小写无关比较。
func IsProduction(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), EnvProduction)
}

// LogFields 输出启动日志中常用的配置摘要。
func (c Config) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"app_name":        c.AppName,
		"listen_port":     c.ListenPort,
		"environment":     c.Environment,
		"secure_http":     c.SecureHTTP,
		"allowed_origins": len(c.AllowedOrigins),
	}
}

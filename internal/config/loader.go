package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DefaultListenPort = 8800
	DefaultAppName    = "appkit"
	DefaultBodyLimit  = 100 * 1024 * 1024

	envPrefix = "APPKIT"
)

// Load 读取 TOML 配置文件（可选）与 APPKIT_* 环境变量，注入默认值并完成校验。
// path 为空时仅使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DetectEnvironment 从 APPKIT_ENVIRONMENT / environment 环境变量读取运行环境，缺省为 development。
func DetectEnvironment() string {
	v := viper.New()
	v.SetDefault("Environment", EnvDevelopment)
	bindEnv(v)
	return NormalizeEnvironment(v.GetString("Environment"))
}

// NormalizeEnvironment 统一大小写并为空值回退 development。
func NormalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return EnvDevelopment
	}
	return env
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("AppName", DefaultAppName)
	v.SetDefault("ListenHost", "")
	v.SetDefault("ListenPort", DefaultListenPort)
	v.SetDefault("Environment", EnvDevelopment)
	v.SetDefault("SecureHTTP", false)
	v.SetDefault("TLSCertFile", "")
	v.SetDefault("TLSKeyFile", "")
	v.SetDefault("AllowedOrigins", []string{})
	v.SetDefault("BodyLimit", DefaultBodyLimit)
	v.SetDefault("NotFoundPage", "")
	v.SetDefault("ShutdownTimeout", "10s")
	v.SetDefault("DatabasePath", ":memory:")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
}

// bindEnv 启用 APPKIT_<KEY> 覆盖；Environment 额外兼容裸 environment 变量。
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("Environment", envPrefix+"_ENVIRONMENT", "environment")
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = DefaultListenPort
	}
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.ShutdownTimeout.DurationValue() == 0 {
		cfg.ShutdownTimeout = Duration(10 * time.Second)
	}
	cfg.Environment = NormalizeEnvironment(cfg.Environment)
	if cfg.IsProduction() {
		cfg.SecureHTTP = true
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// 字符串交给 Duration.UnmarshalText 处理
			return v, nil
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

package config

import (
	"errors"
	"strings"
)

var supportedEnvironments = map[string]struct{}{
	EnvDevelopment: {},
	EnvProduction:  {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if strings.TrimSpace(c.AppName) == "" {
		return NewFieldError("AppName", "不能为空")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return NewFieldError("ListenPort", "必须在 1-65535")
	}
	if _, ok := supportedEnvironments[NormalizeEnvironment(c.Environment)]; !ok {
		return NewFieldError("Environment", "仅支持 development|production")
	}
	if c.SecureHTTP || c.IsProduction() {
		if strings.TrimSpace(c.TLSCertFile) == "" || strings.TrimSpace(c.TLSKeyFile) == "" {
			return NewFieldError("TLSCertFile/TLSKeyFile", "启用 HTTPS 时必须同时提供")
		}
	}
	if c.BodyLimit <= 0 {
		return NewFieldError("BodyLimit", "必须大于 0")
	}
	if c.ShutdownTimeout.DurationValue() <= 0 {
		return NewFieldError("ShutdownTimeout", "必须大于 0")
	}
	if c.LogMaxSize < 0 {
		return NewFieldError("LogMaxSize", "不能为负数")
	}
	if c.LogMaxBackups < 0 {
		return NewFieldError("LogMaxBackups", "不能为负数")
	}
	for i, origin := range c.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return NewFieldError(IndexedField("AllowedOrigins", i, ""), "不能为空")
		}
	}

	return nil
}

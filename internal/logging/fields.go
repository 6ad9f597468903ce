package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供请求 ID、方法、路径与 Origin 字段，供管线与错误处理日志复用。
func RequestFields(requestID, method, path, origin string) logrus.Fields {
	fields := logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	}
	if origin != "" {
		fields["origin"] = origin
	}
	return fields
}

// ServerFields 描述监听状态，用于启动/停止日志。
func ServerFields(appName, host string, port int, environment string, secure bool) logrus.Fields {
	if host == "" {
		host = "localhost"
	}
	return logrus.Fields{
		"app_name":    appName,
		"host":        host,
		"port":        port,
		"environment": environment,
		"secure":      secure,
	}
}

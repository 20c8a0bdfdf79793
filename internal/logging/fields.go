package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// SourceFields 描述一个远端源，供加载与再验证日志复用。
func SourceFields(name, kind, cacheID string, priority int) logrus.Fields {
	return logrus.Fields{
		"source":      name,
		"source_type": kind,
		"cache_id":    cacheID,
		"priority":    priority,
	}
}

// CacheFields 描述一次缓存判定的结果。
func CacheFields(sourceID, templateName, state, strategy string) logrus.Fields {
	return logrus.Fields{
		"cache_key":      sourceID + ":" + templateName,
		"cache_state":    state,
		"cache_strategy": strategy,
	}
}

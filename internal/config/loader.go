package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/devboot/devboot/internal/cache"
)

// EnvConfigPath 指定配置文件路径的环境变量，优先级低于 -config 参数。
const EnvConfigPath = "DEVBOOT_CONFIG"

const envPrefix = "DEVBOOT"

// ResolvePath 按 -config 参数、DEVBOOT_CONFIG、config.toml 的顺序选择配置文件。
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env
	}
	return "config.toml"
}

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// 全局键可被 DEVBOOT_<KEY> 环境变量覆盖，例如 DEVBOOT_LOGLEVEL。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.Global.defaultTTLSet = v.InConfig("DefaultTTL")
	applyGlobalDefaults(&cfg.Global)
	explicit := explicitPriorities(v)
	for i := range cfg.Sources {
		applySourceDefaults(&cfg.Sources[i], explicit[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, dir := range []*string{&cfg.Global.CacheDir, &cfg.Global.CloneDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("无法解析缓存目录: %w", err)
		}
		*dir = abs
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheDir", "")
	v.SetDefault("CloneDir", "")
	v.SetDefault("HTTPTimeout", "30s")
	v.SetDefault("DefaultTTL", "7d")
	v.SetDefault("DiagnosticsPort", 0)
}

// defaultCacheBase 优先使用系统缓存目录，无法获取时退回当前目录。
func defaultCacheBase() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "devboot")
	}
	return ".devboot-cache"
}

func applyGlobalDefaults(g *GlobalConfig) {
	if strings.TrimSpace(g.CacheDir) == "" {
		g.CacheDir = filepath.Join(defaultCacheBase(), "remote")
	}
	if strings.TrimSpace(g.CloneDir) == "" {
		g.CloneDir = filepath.Join(defaultCacheBase(), "repos")
	}
	if g.HTTPTimeout.DurationValue() == 0 {
		g.HTTPTimeout = Duration(30 * time.Second)
	}
	if g.DefaultTTL.DurationValue() == 0 && !g.defaultTTLSet {
		g.DefaultTTL = Duration(cache.DefaultTTL)
	}
}

func applySourceDefaults(s *SourceConfig, priorityExplicit bool) {
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.URL = strings.TrimSpace(s.URL)
	if !priorityExplicit {
		s.Priority = DefaultSourcePriority
	}
	if strategy := strings.TrimSpace(s.Cache.Strategy); strategy != "" {
		s.Cache.Strategy = strings.ToLower(strategy)
	}
}

// explicitPriorities 读取原始 [[Source]] 表，区分显式的 Priority = 0 与未填写。
func explicitPriorities(v *viper.Viper) map[int]bool {
	result := map[int]bool{}
	raw, ok := v.Get("Source").([]interface{})
	if !ok {
		return result
	}
	for idx, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		for key := range m {
			if strings.EqualFold(key, "Priority") {
				result[idx] = true
			}
		}
	}
	return result
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return Duration(0), nil
			}
			parsed, err := cache.ParseTTL(v)
			if err != nil {
				return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
			}
			return Duration(parsed), nil
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

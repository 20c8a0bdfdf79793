package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/sourcekind"
)

// Duration 提供更灵活的反序列化能力，兼容 "7d"、"30m"、纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别 TTL 风格的配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	parsed, err := cache.ParseTTL(raw)
	if err != nil {
		return fmt.Errorf("invalid duration value: %s", raw)
	}
	*d = Duration(parsed)
	return nil
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为，所有远端源共享同一份参数。
type GlobalConfig struct {
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	CacheDir        string   `mapstructure:"CacheDir"`
	CloneDir        string   `mapstructure:"CloneDir"`
	HTTPTimeout     Duration `mapstructure:"HTTPTimeout"`
	DefaultTTL      Duration `mapstructure:"DefaultTTL"`
	DiagnosticsPort int      `mapstructure:"DiagnosticsPort"`

	// defaultTTLSet 记录配置文件是否显式写了 DefaultTTL，用于保留显式的 0。
	defaultTTLSet bool
}

// CacheConfig 是源级缓存覆盖项。TTL 为 nil 表示未填写，显式的 0 表示每次都视为过期。
type CacheConfig struct {
	TTL      *Duration `mapstructure:"TTL"`
	Strategy string    `mapstructure:"Strategy"`
}

// SourceConfig 描述一个远端模板源。
type SourceConfig struct {
	Name      string      `mapstructure:"Name"`
	Type      string      `mapstructure:"Type"`
	URL       string      `mapstructure:"URL"`
	Ref       string      `mapstructure:"Ref"`
	Path      string      `mapstructure:"Path"`
	Priority  int         `mapstructure:"Priority"`
	Timeout   Duration    `mapstructure:"Timeout"`
	AuthToken string      `mapstructure:"AuthToken"`
	Cache     CacheConfig `mapstructure:"Cache"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig   `mapstructure:",squash"`
	Sources []SourceConfig `mapstructure:"Source"`
}

// DefaultSourcePriority 是未声明 Priority 时的源优先级，数值越小越优先。
const DefaultSourcePriority = 100

// CacheID 只由传输、URL 与 ref 派生，与内容无关：http:<url> 或 git:<url>@<ref|HEAD>。
func (s SourceConfig) CacheID() string {
	if strings.EqualFold(s.Type, sourcekind.Git) {
		ref := s.Ref
		if ref == "" {
			ref = "HEAD"
		}
		return fmt.Sprintf("git:%s@%s", s.URL, ref)
	}
	return "http:" + s.URL
}

// Kind 返回源对应的传输元数据。
func (s SourceConfig) Kind() (sourcekind.Metadata, bool) {
	return sourcekind.Resolve(s.Type)
}

// HasAuth 表示源是否配置了访问令牌，日志中只输出该布尔值。
func (s SourceConfig) HasAuth() bool {
	return s.AuthToken != ""
}

// EffectivePolicy 返回源最终生效的 TTL 与策略：源级覆盖 > 全局 DefaultTTL > 传输默认值。
func (c *Config) EffectivePolicy(s SourceConfig) sourcekind.Policy {
	meta, _ := s.Kind()
	overrides := sourcekind.PolicyOverrides{
		TTL:    c.Global.DefaultTTL.DurationValue(),
		TTLSet: c.Global.defaultTTLSet,
	}
	if s.Cache.TTL != nil {
		overrides.TTL = s.Cache.TTL.DurationValue()
		overrides.TTLSet = true
	}
	if strings.TrimSpace(s.Cache.Strategy) != "" {
		if parsed, err := cache.ParseStrategy(s.Cache.Strategy); err == nil {
			overrides.Strategy = parsed
		}
	}
	return sourcekind.ResolvePolicy(meta, overrides)
}

// EffectiveTimeout 返回源的网络超时，未覆盖时回退至全局 HTTPTimeout。
func (c *Config) EffectiveTimeout(s SourceConfig) time.Duration {
	if s.Timeout.DurationValue() > 0 {
		return s.Timeout.DurationValue()
	}
	return c.Global.HTTPTimeout.DurationValue()
}

package config

import (
	"testing"
	"time"
)

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
CacheDir = "./data"
DefaultTTL = "boom"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadWithoutSources(t *testing.T) {
	path := writeTempConfig(t, `LogLevel = "warn"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("没有远端源的配置也应合法: %v", err)
	}
	if len(cfg.Sources) != 0 {
		t.Fatalf("不应凭空生成源")
	}
	if cfg.Global.CacheDir == "" || cfg.Global.CloneDir == "" {
		t.Fatalf("缓存目录应有默认值")
	}
}

func TestLoadExplicitZeroPriority(t *testing.T) {
	path := writeTempConfig(t, `
[[Source]]
Name = "first"
Type = "http"
URL = "https://example.com/t.yaml"
Priority = 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Sources[0].Priority != 0 {
		t.Fatalf("显式 Priority = 0 应被保留，实际 %d", cfg.Sources[0].Priority)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DEVBOOT_LOGLEVEL", "debug")
	path := writeTempConfig(t, `LogLevel = "info"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.LogLevel != "debug" {
		t.Fatalf("环境变量应覆盖配置文件，实际 %s", cfg.Global.LogLevel)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != "config.toml" {
		t.Fatalf("默认路径应为 config.toml，实际 %s", got)
	}
	t.Setenv(EnvConfigPath, "/etc/devboot.toml")
	if got := ResolvePath(""); got != "/etc/devboot.toml" {
		t.Fatalf("应读取 %s，实际 %s", EnvConfigPath, got)
	}
	if got := ResolvePath("custom.toml"); got != "custom.toml" {
		t.Fatalf("-config 参数应优先，实际 %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(testConfigPath(t, "does-not-exist.toml")); err == nil {
		t.Fatalf("缺失配置文件应返回错误")
	}
}

func TestLoadKeepsExplicitZeroTTL(t *testing.T) {
	path := writeTempConfig(t, `
DefaultTTL = "2h"

[[Source]]
Name = "always-check"
Type = "http"
URL = "https://example.com/a.yaml"

[Source.Cache]
TTL = "0"
Strategy = "ttl"

[[Source]]
Name = "inherits"
Type = "http"
URL = "https://example.com/b.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if got := cfg.EffectivePolicy(cfg.Sources[0]).TTL; got != 0 {
		t.Fatalf("显式 TTL = \"0\" 应生效为 0，实际 %s", got)
	}
	if got := cfg.EffectivePolicy(cfg.Sources[1]).TTL; got != 2*time.Hour {
		t.Fatalf("未填写 TTL 时应继承全局 DefaultTTL，实际 %s", got)
	}
}

func TestLoadKeepsExplicitZeroDefaultTTL(t *testing.T) {
	path := writeTempConfig(t, `
DefaultTTL = 0

[[Source]]
Name = "team"
Type = "http"
URL = "https://example.com/a.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.DefaultTTL.DurationValue() != 0 {
		t.Fatalf("显式 DefaultTTL = 0 不应被默认值覆盖，实际 %s", cfg.Global.DefaultTTL.DurationValue())
	}
	if got := cfg.EffectivePolicy(cfg.Sources[0]).TTL; got != 0 {
		t.Fatalf("源应继承显式的全局 0，实际 %s", got)
	}
}

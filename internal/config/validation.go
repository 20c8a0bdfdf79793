package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/sourcekind"
)

// ValidationError 定位到具体模板源（或 Global 段）的非法配置项。
// Source 为空表示 Global 段或尚未命名的源。
type ValidationError struct {
	Source string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("模板源 %q 的 %s: %v", e.Source, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalidGlobal(field, reason string) error {
	return &ValidationError{Field: "Global." + field, Err: errors.New(reason)}
}

func invalidSource(name, field, reason string) error {
	if name == "" {
		field = "Source[]." + field
	}
	return &ValidationError{Source: name, Field: field, Err: errors.New(reason)}
}

// Validate 针对语义级别做进一步校验，防止非法配置进入加载流程。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.CacheDir == "" {
		return invalidGlobal("CacheDir", "不能为空")
	}
	if g.CloneDir == "" {
		return invalidGlobal("CloneDir", "不能为空")
	}
	if g.HTTPTimeout.DurationValue() <= 0 {
		return invalidGlobal("HTTPTimeout", "必须大于 0")
	}
	if g.DefaultTTL.DurationValue() < 0 {
		return invalidGlobal("DefaultTTL", "不能为负数")
	}
	if g.DiagnosticsPort < 0 || g.DiagnosticsPort > 65535 {
		return invalidGlobal("DiagnosticsPort", "必须在 0-65535")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Sources {
		src := &c.Sources[i]
		if strings.TrimSpace(src.Name) == "" {
			return invalidSource("", "Name", "不能为空")
		}
		if _, exists := seenNames[src.Name]; exists {
			return invalidSource(src.Name, "Name", "重复")
		}
		seenNames[src.Name] = struct{}{}

		normalizedType := strings.ToLower(strings.TrimSpace(src.Type))
		if normalizedType == "" {
			return invalidSource(src.Name, "Type", "不能为空")
		}
		meta, ok := sourcekind.Resolve(normalizedType)
		if !ok {
			return invalidSource(src.Name, "Type", "仅支持 "+strings.Join(sourcekind.Keys(), "|"))
		}
		src.Type = meta.Key

		if err := validateSourceURL(meta.Key, src.URL); err != nil {
			return &ValidationError{Source: src.Name, Field: "URL", Err: err}
		}
		if src.Timeout.DurationValue() < 0 {
			return invalidSource(src.Name, "Timeout", "不能为负数")
		}
		if src.Cache.TTL != nil && src.Cache.TTL.DurationValue() < 0 {
			return invalidSource(src.Name, "Cache.TTL", "不能为负数")
		}
		if src.Cache.Strategy != "" {
			strategy, err := cache.ParseStrategy(src.Cache.Strategy)
			if err != nil {
				return invalidSource(src.Name, "Cache.Strategy", "仅支持 ttl/etag/git")
			}
			if !meta.Supports(strategy) {
				return invalidSource(src.Name, "Cache.Strategy", fmt.Sprintf("%s 源不支持 %s 策略", meta.Key, strategy))
			}
			src.Cache.Strategy = string(strategy)
		}
		if meta.Key != sourcekind.Git && (src.Ref != "" || src.Path != "") {
			return invalidSource(src.Name, "Ref/Path", "仅 git 源可配置")
		}
	}

	return nil
}

func validateSourceURL(kind, raw string) error {
	if raw == "" {
		return errors.New("缺少源地址")
	}
	if kind == sourcekind.Git {
		// git 源允许 scp 风格地址与本地路径，交给 go-git 解析。
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源地址: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源地址缺少 Host: %s", raw)
	}
	return nil
}

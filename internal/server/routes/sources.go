package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/server"
)

// RegisterSourceRoutes 暴露 /-/sources，列出远端源及其缓存标识与最终生效策略。
func RegisterSourceRoutes(app *fiber.App, rt *server.Runtime) {
	if app == nil || rt == nil {
		return
	}

	app.Get("/-/sources", func(c fiber.Ctx) error {
		sources := rt.Loader.Sources()
		items := make([]sourcePayload, 0, len(sources))
		for _, src := range sources {
			policy := rt.Config.EffectivePolicy(src)
			items = append(items, sourcePayload{
				Name:     src.Name,
				Type:     src.Type,
				URL:      src.URL,
				Ref:      src.Ref,
				Path:     src.Path,
				Priority: src.Priority,
				CacheID:  src.CacheID(),
				Strategy: string(policy.Strategy),
				TTL:      cache.FormatDuration(policy.TTL),
				Timeout:  cache.FormatDuration(rt.Config.EffectiveTimeout(src)),
				HasAuth:  src.HasAuth(),
			})
		}
		return c.JSON(fiber.Map{"sources": items})
	})
}

type sourcePayload struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	Ref      string `json:"ref,omitempty"`
	Path     string `json:"path,omitempty"`
	Priority int    `json:"priority"`
	CacheID  string `json:"cache_id"`
	Strategy string `json:"strategy"`
	TTL      string `json:"ttl"`
	Timeout  string `json:"timeout"`
	HasAuth  bool   `json:"has_auth"`
}

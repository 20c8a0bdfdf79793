package routes

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/server"
)

// RegisterCacheRoutes 暴露 /-/cache 诊断接口，用于查看、清空与清理模板缓存。
func RegisterCacheRoutes(app *fiber.App, rt *server.Runtime) {
	if app == nil || rt == nil {
		return
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		entries, err := rt.Store.List()
		if err != nil {
			return err
		}
		total, err := rt.Store.TotalSize()
		if err != nil {
			return err
		}
		now := time.Now()
		return c.JSON(fiber.Map{
			"root":        rt.Store.Root(),
			"count":       len(entries),
			"total_bytes": total,
			"total_human": humanize.Bytes(uint64(total)),
			"entries":     encodeEntries(entries, now),
		})
	})

	app.Delete("/-/cache", func(c fiber.Ctx) error {
		removed, err := rt.Store.Clear()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"removed": removed})
	})

	app.Post("/-/cache/cleanup", func(c fiber.Ctx) error {
		removed, err := rt.Validator.CleanupExpired()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"removed": removed})
	})
}

type entryPayload struct {
	SourceID     string    `json:"source_id"`
	TemplateName string    `json:"template_name"`
	CachedAt     time.Time `json:"cached_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
	RemainingTTL string    `json:"remaining_ttl"`
	Age          string    `json:"age"`
	ETag         string    `json:"etag,omitempty"`
	CommitSHA    string    `json:"commit_sha,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentKind  string    `json:"content_kind"`
}

func encodeEntries(entries []cache.Entry, now time.Time) []entryPayload {
	result := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		meta := entry.Metadata
		result = append(result, entryPayload{
			SourceID:     entry.SourceID,
			TemplateName: entry.TemplateName,
			CachedAt:     meta.CachedAt,
			ExpiresAt:    meta.ExpiresAt,
			Expired:      entry.IsExpiredAt(now),
			RemainingTTL: cache.FormatDuration(meta.RemainingTTLAt(now)),
			Age:          humanize.RelTime(meta.CachedAt, now, "ago", "from now"),
			ETag:         meta.ETag,
			CommitSHA:    meta.CommitSHA,
			SizeBytes:    meta.SizeBytes,
			ContentKind:  string(meta.ContentKind),
		})
	}
	return result
}

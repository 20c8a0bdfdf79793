package routes

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/devboot/devboot/internal/registry"
	"github.com/devboot/devboot/internal/server"
	"github.com/devboot/devboot/internal/template"
)

// RegisterTemplateRoutes 暴露 /-/templates 诊断接口：列出、解析与重新加载远端模板。
func RegisterTemplateRoutes(app *fiber.App, rt *server.Runtime) {
	if app == nil || rt == nil {
		return
	}
	reg := rt.Registry

	app.Get("/-/templates", func(c fiber.Ctx) error {
		names := reg.AllNames()
		items := make([]templateSummary, 0, len(names))
		for _, name := range names {
			tpl, src, err := reg.Resolve(name)
			if err != nil {
				continue
			}
			items = append(items, templateSummary{
				Name:        name,
				Description: tpl.Description,
				Category:    tpl.Category,
				Source:      src.String(),
			})
		}
		return c.JSON(fiber.Map{
			"count":     len(items),
			"templates": items,
			"pass_id":   reg.Remote().ID(),
		})
	})

	app.Get("/-/templates/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "template_name_required"})
		}
		tpl, src, err := reg.Resolve(name)
		if errors.Is(err, registry.ErrUnknownTemplate) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "template_not_found"})
		}
		if err != nil {
			return err
		}
		return c.JSON(templateDetail{Template: tpl, Source: src.String()})
	})

	app.Post("/-/templates/reload", func(c fiber.Ctx) error {
		set, err := reg.ReloadRemote(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"pass_id":        set.ID(),
			"templates":      set.Len(),
			"failed_sources": set.Failed(),
		})
	})
}

type templateSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Source      string `json:"source"`
}

type templateDetail struct {
	Template *template.Template `json:"template"`
	Source   string             `json:"source"`
}

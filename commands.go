package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/registry"
	"github.com/devboot/devboot/internal/server"
	"github.com/devboot/devboot/internal/version"
)

// listCache 按缓存时间由新到旧输出条目。
func listCache(rt *server.Runtime) int {
	entries, err := rt.Store.List()
	if err != nil {
		fmt.Fprintf(stdErr, "读取缓存失败: %v\n", err)
		return 1
	}
	total, err := rt.Store.TotalSize()
	if err != nil {
		fmt.Fprintf(stdErr, "统计缓存大小失败: %v\n", err)
		return 1
	}

	now := time.Now()
	w := tabwriter.NewWriter(stdOut, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSTATE\tSIZE\tCACHED\tEXPIRES IN")
	for _, entry := range entries {
		state := "fresh"
		if entry.IsExpiredAt(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			entry.SourceID,
			state,
			humanize.Bytes(uint64(entry.Metadata.SizeBytes)),
			humanize.RelTime(entry.Metadata.CachedAt, now, "ago", "from now"),
			cache.FormatDuration(entry.Metadata.RemainingTTLAt(now)),
		)
	}
	_ = w.Flush()
	fmt.Fprintf(stdOut, "%d entries, %s in %s\n", len(entries), humanize.Bytes(uint64(total)), rt.Store.Root())
	return 0
}

func clearCache(rt *server.Runtime) int {
	removed, err := rt.Store.Clear()
	if err != nil {
		fmt.Fprintf(stdErr, "清空缓存失败: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdOut, "removed %d cache entries\n", removed)
	return 0
}

func cleanupCache(rt *server.Runtime) int {
	removed, err := rt.Validator.CleanupExpired()
	if err != nil {
		fmt.Fprintf(stdErr, "清理过期缓存失败: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdOut, "removed %d expired cache entries\n", removed)
	return 0
}

// resolveTemplate 加载远端源后按优先级解析模板，找不到时返回 1。
func resolveTemplate(ctx context.Context, rt *server.Runtime, name string) int {
	if _, err := rt.Registry.ReloadRemote(ctx); err != nil {
		fmt.Fprintf(stdErr, "加载远端模板失败: %v\n", err)
		return 1
	}
	tpl, src, err := rt.Registry.Resolve(name)
	if errors.Is(err, registry.ErrUnknownTemplate) {
		fmt.Fprintf(stdErr, "未找到模板: %s\n", name)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stdErr, "解析模板失败: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdOut, "name:    %s\n", tpl.Name)
	fmt.Fprintf(stdOut, "source:  %s\n", src)
	fmt.Fprintf(stdOut, "version: %s\n", tpl.Version)
	if tpl.Description != "" {
		fmt.Fprintf(stdOut, "about:   %s\n", tpl.Description)
	}
	if tpl.Step.Command != "" {
		fmt.Fprintf(stdOut, "command: %s\n", tpl.Step.Command)
	}
	return 0
}

// listTemplates 是未指定动作时的默认行为：加载远端源并列出全部模板。
func listTemplates(ctx context.Context, rt *server.Runtime) int {
	set, err := rt.Registry.ReloadRemote(ctx)
	if err != nil {
		fmt.Fprintf(stdErr, "加载远端模板失败: %v\n", err)
		return 1
	}

	w := tabwriter.NewWriter(stdOut, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tDESCRIPTION")
	for _, name := range rt.Registry.AllNames() {
		tpl, src, err := rt.Registry.Resolve(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, src, tpl.Description)
	}
	_ = w.Flush()
	if failed := set.Failed(); len(failed) > 0 {
		fmt.Fprintf(stdErr, "%d remote sources unavailable: %v\n", len(failed), failed)
	}
	return 0
}

// printVersion 输出注入的版本 + 提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}

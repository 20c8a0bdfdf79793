package server

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/config"
	"github.com/devboot/devboot/internal/registry"
)

// Runtime 聚合一次进程内共享的缓存、校验器与模板注册表。
type Runtime struct {
	Config    *config.Config
	Store     cache.Store
	Validator *cache.Validator
	Loader    *registry.RemoteLoader
	Registry  *registry.Registry
}

// Bootstrap 按“配置 → 磁盘缓存 → 远端加载器 → Registry”的顺序构建运行时。
// 本地与内置模板层由调用方通过 layers 注入，未提供的层视为空。
func Bootstrap(cfg *config.Config, logger *logrus.Logger, layers registry.Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	store, err := cache.NewStore(cfg.Global.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存目录失败: %w", err)
	}

	loader := registry.NewRemoteLoader(cfg, store, registry.WithLogger(logger))
	layers.Remote = loader

	return &Runtime{
		Config:    cfg,
		Store:     store,
		Validator: cache.NewValidator(store),
		Loader:    loader,
		Registry:  registry.New(layers),
	}, nil
}

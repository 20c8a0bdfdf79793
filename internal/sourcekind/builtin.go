package sourcekind

import "github.com/devboot/devboot/internal/cache"

const (
	// HTTP 通过单个 URL 拉取模板目录。
	HTTP = "http"
	// Git 通过浅克隆拉取仓库中的模板文件或目录。
	Git = "git"
)

func init() {
	MustRegister(Metadata{
		Key:                 HTTP,
		Description:         "Template catalogue served over HTTP(S), revalidated with If-None-Match",
		DefaultStrategy:     cache.StrategyETag,
		SupportedStrategies: []cache.Strategy{cache.StrategyTTL, cache.StrategyETag},
		DefaultTTL:          cache.DefaultTTL,
	})
	MustRegister(Metadata{
		Key:                 Git,
		Description:         "Template repository cloned shallowly, revalidated by remote commit",
		DefaultStrategy:     cache.StrategyGit,
		SupportedStrategies: []cache.Strategy{cache.StrategyTTL, cache.StrategyGit},
		DefaultTTL:          cache.DefaultTTL,
	})
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/devboot/devboot/internal/config"
	"github.com/devboot/devboot/internal/logging"
	"github.com/devboot/devboot/internal/registry"
	"github.com/devboot/devboot/internal/server"
	"github.com/devboot/devboot/internal/server/routes"
	"github.com/devboot/devboot/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath   string
	checkOnly    bool
	showVersion  bool
	listCache    bool
	clearCache   bool
	cleanupCache bool
	resolveName  string
	diagnostics  bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["sources"] = len(cfg.Sources)
		fields["cache_dir"] = cfg.Global.CacheDir
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 本地与内置模板层由上层工具注入，这里只装配远端层。
	rt, err := server.Bootstrap(cfg, logger, registry.Options{})
	if err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["sources"] = len(cfg.Sources)
	fields["cache_dir"] = rt.Store.Root()
	fields["version"] = version.Full()
	logger.WithFields(fields).Debug("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case opts.listCache:
		return listCache(rt)
	case opts.clearCache:
		return clearCache(rt)
	case opts.cleanupCache:
		return cleanupCache(rt)
	case opts.resolveName != "":
		return resolveTemplate(ctx, rt, opts.resolveName)
	case opts.diagnostics:
		if err := startDiagnosticsServer(ctx, rt, logger); err != nil {
			fmt.Fprintf(stdErr, "诊断服务启动失败: %v\n", err)
			return 1
		}
		return 0
	default:
		return listTemplates(ctx, rt)
	}
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("devboot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		opts       cliOptions
		configFlag string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 DEVBOOT_CONFIG 覆盖）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	fs.BoolVar(&opts.listCache, "list-cache", false, "列出模板缓存条目")
	fs.BoolVar(&opts.clearCache, "clear-cache", false, "清空模板缓存")
	fs.BoolVar(&opts.cleanupCache, "cleanup-cache", false, "删除已过期的缓存条目")
	fs.StringVar(&opts.resolveName, "resolve", "", "解析指定模板并输出来源")
	fs.BoolVar(&opts.diagnostics, "diagnostics", false, "在 DiagnosticsPort 上启动诊断服务")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	opts.configPath = config.ResolvePath(configFlag)
	return opts, nil
}

func startDiagnosticsServer(ctx context.Context, rt *server.Runtime, logger *logrus.Logger) error {
	port := rt.Config.Global.DiagnosticsPort
	if port <= 0 {
		return errors.New("DiagnosticsPort 未配置")
	}

	app, err := server.NewApp(server.AppOptions{Logger: logger})
	if err != nil {
		return err
	}
	routes.RegisterCacheRoutes(app, rt)
	routes.RegisterTemplateRoutes(app, rt)
	routes.RegisterSourceRoutes(app, rt)

	if _, err := rt.Registry.ReloadRemote(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("诊断服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}

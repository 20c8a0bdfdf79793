package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/devboot/devboot/internal/config"
)

// New 构造写入 out 的 JSON logger。CLI 之外的调用方（诊断服务、测试）直接使用它，
// 不会改动 logrus 的全局 logger。
func New(out io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return logger
}

// InitLogger 按全局配置构造进程级 logger，并让 logrus 标准 logger 与之保持一致。
// 远端源加载、缓存再验证等事件都经由它输出；命令结果写 stdout，日志默认写 stderr。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别 %q: %w", cfg.LogLevel, err)
	}

	out, openErr := openLogOutput(cfg)
	logger := New(out, level)

	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(level)

	if openErr != nil {
		// 日志文件不可用不影响模板解析，只提示一次并继续使用 stderr。
		logger.WithFields(logrus.Fields{
			"action":   "logger_fallback",
			"log_file": cfg.LogFilePath,
		}).Warn(openErr.Error())
	}
	return logger, nil
}

// openLogOutput 在配置了 LogFilePath 时返回按大小轮转的文件 Writer；
// 目录无法创建时退回 stderr，并把原因作为 error 返回。
func openLogOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stderr, fmt.Errorf("日志文件 %s 不可用: %w", cfg.LogFilePath, err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}

package xbus

import (
	"strings"

	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// NewLogger 按 LogConfig 构建日志记录器。
// File 非空时写入带轮转的文件，返回的 cleanup 负责关闭文件。
func NewLogger(cfg LogConfig) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetFormat(cfg.Format).
		SetAddSource(cfg.AddSource)
	if strings.TrimSpace(cfg.Level) != "" {
		b.SetLevelString(cfg.Level)
	}
	if cfg.File != "" {
		b.SetRotation(cfg.File, cfg.Rotation)
	}
	return b.Build()
}

// ApplyLevel 把配置中的级别应用到运行中的日志记录器，用于配置热加载。
// 级别为空时不做修改。
func ApplyLevel(logger xlog.Leveler, cfg LogConfig) error {
	if strings.TrimSpace(cfg.Level) == "" {
		return nil
	}
	level, err := xlog.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

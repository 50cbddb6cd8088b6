package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup 初始化全局日志配置
// levelStr: "debug", "info", "warn", "error"
// logPath: 日志文件路径 (为空则只输出到控制台)
func Setup(levelStr string, logPath string) error {
	// 1. 解析日志等级
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// 2. 控制台输出：带颜色的 tint，重定向到管道时自动关色
	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	handlers := []slog.Handler{consoleHandler}

	// 3. 可选的文件输出 (追加模式，纯文本格式)
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return err
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}

		fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug, // 仅 Debug 模式下带文件名和行号
		})
		handlers = append(handlers, fileHandler)
	}

	// 4. 设置为全局默认 Logger
	slog.SetDefault(slog.New(newMultiHandler(handlers...)))

	return nil
}

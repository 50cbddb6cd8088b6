package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"barcodersync/internal/auth"
	"barcodersync/internal/config"
	"barcodersync/internal/database"
	"barcodersync/internal/fs/gdrive"
	"barcodersync/internal/fs/local"
	"barcodersync/internal/server"
	syncer "barcodersync/internal/sync"
	"barcodersync/pkg/logger"
)

const version = "1.0.0"

func main() {

	// 1. 加载配置
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		panic("配置加载失败: " + err.Error())
	}

	// 2. 初始化日志系统
	if err := logger.Setup(cfg.System.LogLevel, cfg.System.LogFile); err != nil {
		panic("日志初始化失败: " + err.Error())
	}

	slog.Info("BarcoderSync 启动中",
		"version", version,
		"log_level", cfg.System.LogLevel,
		"log_file", cfg.System.LogFile,
	)
	slog.Info("配置已加载",
		"local_dir", cfg.Sync.LocalDir,
		"drive_folder", cfg.Sync.DriveFolder,
		"interval", cfg.Sync.Interval,
	)

	// 3. 初始化运行记录数据库
	journal, err := database.NewJournal(cfg.System.DBPath)
	if err != nil {
		slog.Error("无法打开数据库", "err", err, "path", cfg.System.DBPath)
		panic("数据库初始化失败: " + err.Error())
	}
	defer journal.Close()

	// 4. 初始化本地扫描器和 Drive 适配器
	// 授权流程在外部完成，这里只消费保存下来的 token 文件
	localFS := local.NewScanner(cfg.Sync.LocalDir)
	provider := auth.NewFileProvider(
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.TokenFile,
	)
	remoteFS := gdrive.New(provider)

	// 5. 初始化同步引擎
	engine := syncer.NewEngine(&syncer.EngineOptions{
		Local:      localFS,
		Remote:     remoteFS,
		FolderName: cfg.Sync.DriveFolder,
		Journal:    journal,
		LockFile:   cfg.System.LockFile,
	})

	// 6. 设置优雅退出
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	runSync := func(appCtx context.Context) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			slog.Info(">>> 开始同步")
			_, err := engine.Run(appCtx)
			switch {
			case err == nil:
				// 结果已由引擎落日志和运行记录
			case errors.Is(err, syncer.ErrSyncInProgress):
				slog.Info("上一轮同步尚未结束，跳过本次触发")
			case appCtx.Err() != nil:
				slog.Warn("同步被中断")
			default:
				slog.Error("同步错误", "error", err)
			}
			slog.Info("<<< 同步结束")
		}()
	}

	// 7. 启动 HTTP 触发/状态接口 (手动触发和定时触发共用引擎内的互斥)
	var httpSrv *server.Server
	if cfg.Server.Enable {
		httpSrv = server.New(cfg.Server.Listen, engine, journal, localFS)
		go func() {
			if err := httpSrv.Start(); err != nil {
				slog.Error("HTTP 服务异常退出", "err", err)
			}
		}()
	}

	// 立即运行一次
	runSync(ctx)

	// 主循环
	ticker := time.NewTicker(cfg.Sync.IntervalDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runSync(ctx)
		case sig := <-sigChan:
			slog.Info("接收到信号，准备优雅退出...", "signal", sig)
			cancel()  // 通知所有 goroutine 退出
			wg.Wait() // 等待进行中的同步收尾

			if httpSrv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := httpSrv.Shutdown(shutdownCtx); err != nil {
					slog.Warn("HTTP 服务关闭超时", "err", err)
				}
				shutdownCancel()
			}

			slog.Info("所有任务已完成，程序退出")
			return
		case <-ctx.Done():
			// 其他原因导致 ctx 被取消
			slog.Info("主上下文被取消，程序退出")
			return
		}
	}
}

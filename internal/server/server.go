package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"barcodersync/internal/auth"
	"barcodersync/internal/database"
	"barcodersync/internal/fs"
	syncer "barcodersync/internal/sync"
)

// Server 触发/状态 HTTP 接口
// 只是同步引擎的一个薄调用层，引擎脱离它也照常工作
type Server struct {
	engine  *syncer.Engine
	journal *database.Journal
	local   fs.LocalInventory
	srv     *http.Server
}

// New 创建 HTTP 服务
func New(listen string, engine *syncer.Engine, journal *database.Journal, local fs.LocalInventory) *Server {
	s := &Server{
		engine:  engine,
		journal: journal,
		local:   local,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), slogMiddleware())

	api := router.Group("/api")
	api.POST("/sync", s.handleSync)
	api.GET("/sync/status", s.handleStatus)
	api.GET("/sync/runs", s.handleRuns)
	api.GET("/images", s.handleImages)

	s.srv = &http.Server{
		Addr:    listen,
		Handler: router,
	}
	return s
}

// Start 启动监听，阻塞直到服务关闭
func (s *Server) Start() error {
	slog.Info("HTTP 服务已启动", "listen", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleSync 手动触发一轮同步，同步执行并返回结果
func (s *Server) handleSync(c *gin.Context) {
	result, err := s.engine.Run(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, syncer.ErrSyncInProgress):
			status = http.StatusConflict
		case errors.Is(err, auth.ErrNotAuthenticated):
			status = http.StatusUnauthorized
		case errors.Is(err, fs.ErrLocalIO):
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("已上传 %d 个文件，跳过 %d 个", result.Uploaded, result.Skipped),
		"result":  result,
	})
}

// handleStatus 当前运行状态 + 最近一次完成的结果
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": s.engine.Running(),
		"last":    s.engine.LastResult(),
	})
}

// maxRunsLimit ?limit= 的上限，防止一个请求逼出超大分配
const maxRunsLimit = 500

// handleRuns 最近的运行记录 (?limit=N，默认 20，上限 500)
func (s *Server) handleRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxRunsLimit)
		}
	}

	runs, err := s.journal.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"runs":    runs,
	})
}

// handleImages 当前本地照片清单
func (s *Server) handleImages(c *gin.Context) {
	files, err := s.local.Scan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	type imageInfo struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	images := make([]imageInfo, 0, len(files))
	for _, f := range files {
		images = append(images, imageInfo{Name: f.Name, Size: f.Size})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"images":  images,
	})
}

// slogMiddleware 简单的请求日志
func slogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http 请求",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

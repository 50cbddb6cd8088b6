package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"barcodersync/internal/database"
	"barcodersync/internal/fs"
)

// EngineOptions 初始化选项
type EngineOptions struct {
	Local      fs.LocalInventory
	Remote     fs.RemoteDrive
	FolderName string // 云端目标文件夹名，非空

	// Journal 运行记录存储，可为 nil (不记录)
	Journal *database.Journal

	// LockFile 跨进程锁文件路径，可为空 (单进程部署只靠进程内互斥)
	LockFile string
}

// Engine 同步编排器
// 同一时刻最多只有一轮同步在执行：进程内靠 TryLock 互斥，
// 多进程部署时再加一层 flock 文件租约，两层在所有退出路径上都会释放
type Engine struct {
	opts *EngineOptions

	mu       sync.Mutex // 同步互斥，持有期即一轮同步
	running  atomic.Bool
	fileLock *flock.Flock

	lastMu sync.RWMutex
	last   *Result
}

// NewEngine 创建同步引擎
func NewEngine(opts *EngineOptions) *Engine {
	e := &Engine{opts: opts}
	if opts.LockFile != "" {
		e.fileLock = flock.New(opts.LockFile)
	}
	return e
}

// Running 当前是否有同步在执行 (状态接口用)
func (e *Engine) Running() bool {
	return e.running.Load()
}

// LastResult 最近一次完成的同步结果，还没跑过返回 nil
func (e *Engine) LastResult() *Result {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// Run 执行一次完整的同步：解析文件夹 -> 采集两份清单 -> 差集 -> 逐个上传
//
// 已有同步在进行时立即返回 ErrSyncInProgress (拒绝而非排队)。
// 文件夹解析或清单采集失败会中止整轮且不产生 Result：
// 云端清单不全时继续规划会造成重复上传。
// 单个文件上传失败只记入 Result.Failures，不中断后续文件。
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if strings.TrimSpace(e.opts.FolderName) == "" {
		return nil, fmt.Errorf("云端文件夹名不能为空")
	}

	if !e.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	if e.fileLock != nil {
		locked, err := e.fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("获取同步锁文件失败: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w (其他进程持有锁)", ErrSyncInProgress)
		}
		defer e.fileLock.Unlock()
	}

	e.running.Store(true)
	defer e.running.Store(false)

	start := time.Now()
	runID := uuid.NewString()
	log := slog.With("run_id", runID)

	// 1. 解析云端文件夹 (不存在则创建)
	log.Debug("解析云端文件夹", "name", e.opts.FolderName)
	folder, err := e.opts.Remote.ResolveFolder(ctx, e.opts.FolderName)
	if err != nil {
		return nil, fmt.Errorf("解析云端文件夹失败: %w", err)
	}

	// 2. 并发采集本地快照和云端清单 (两者互相独立，先后无所谓)
	var (
		localFiles  []fs.LocalFile
		remoteFiles []fs.RemoteFile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localFiles, err = e.opts.Local.Scan(gctx)
		if err != nil {
			return fmt.Errorf("扫描本地目录失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		remoteFiles, err = e.opts.Remote.ListChildren(gctx, folder.ID)
		if err != nil {
			return fmt.Errorf("获取云端清单失败: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. 差集规划
	plan := BuildPlan(localFiles, remoteFiles)
	log.Info("同步计划已生成",
		"local", len(localFiles),
		"remote", len(remoteFiles),
		"to_upload", len(plan.ToUpload),
		"already_present", len(plan.AlreadyPresent),
	)

	result := &Result{
		RunID:     runID,
		Folder:    folder.Name,
		Skipped:   len(plan.AlreadyPresent),
		Failures:  []FileFailure{},
		StartedAt: start,
	}

	// 4. 顺序上传 (限制远端请求速率，也让失败记账简单)
	for _, file := range plan.ToUpload {
		// 每个文件之间是一个取消点
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, err := e.opts.Remote.Upload(ctx, folder.ID, file)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// 单个文件失败不阻塞剩余计划，下一轮自然重试
			log.Error("上传失败，继续后续文件", "name", file.Name, "err", err)
			result.Failures = append(result.Failures, FileFailure{
				Name:    file.Name,
				Kind:    classifyFailure(err),
				Message: err.Error(),
			})
			continue
		}

		result.Uploaded++
		log.Info("已上传", "name", file.Name, "size", file.Size, "remote_id", id)
	}

	result.Duration = time.Since(start)

	e.lastMu.Lock()
	e.last = result
	e.lastMu.Unlock()

	if e.opts.Journal != nil {
		if err := e.opts.Journal.Append(newRunRecord(result)); err != nil {
			// 记录失败不影响同步结果本身
			log.Warn("写入运行记录失败", "err", err)
		}
	}

	log.Info("同步完成",
		"uploaded", result.Uploaded,
		"skipped", result.Skipped,
		"failed", len(result.Failures),
		"duration", result.Duration,
	)
	return result, nil
}

// newRunRecord 把同步结果转成落库的运行记录
func newRunRecord(r *Result) *database.SyncRun {
	rec := &database.SyncRun{
		ID:         r.RunID,
		Folder:     r.Folder,
		StartedAt:  r.StartedAt,
		FinishedAt: r.StartedAt.Add(r.Duration),
		Uploaded:   r.Uploaded,
		Skipped:    r.Skipped,
	}
	for _, f := range r.Failures {
		rec.Failures = append(rec.Failures, database.RunFailure{
			Name:    f.Name,
			Kind:    string(f.Kind),
			Message: f.Message,
		})
	}
	return rec
}

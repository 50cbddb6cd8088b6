package fs

import (
	"context"
	"errors"
)

// LocalFile 本地目录中一个符合同步条件的文件
type LocalFile struct {
	Name     string // 文件名 (同步比对的唯一键，区分大小写)
	Path     string // 本地绝对路径
	Size     int64  // 文件大小 (字节)
	MimeType string // 上传时声明的 MIME 类型
}

// RemoteFile 云端文件夹下的一个直接子文件
type RemoteFile struct {
	ID   string // 云端文件 ID (创建后引擎不再复用)
	Name string
}

// RemoteFolder 云端目标文件夹 (按名称解析得到，只在单次同步内持有)
type RemoteFolder struct {
	ID   string
	Name string
}

// 远端操作的错误分类哨兵，适配器负责包装，引擎用 errors.Is 判断
var (
	// ErrRemoteUnavailable 网络/服务故障 (含认证被拒)
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrQuotaExceeded 云端空间或配额不足
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrLocalIO 本地目录不可读 (目录不存在除外，那是正常的空状态)
	ErrLocalIO = errors.New("local io error")
)

// LocalInventory 本地文件清单的抽象
type LocalInventory interface {
	// Root 返回扫描根目录 (用于日志或调试)
	Root() string

	// Scan 扫描一次目录，返回符合条件文件的快照
	// 目录不存在时自动创建并返回空快照，这不是错误
	Scan(ctx context.Context) ([]LocalFile, error)
}

// RemoteDrive 云端存储的统一抽象
// 引擎只依赖这几种能力：按名解析/创建文件夹、列直接子文件、流式上传
type RemoteDrive interface {
	// ResolveFolder 按名称查找文件夹，零结果时在根目录创建
	// 多个同名结果时以列表返回的第一个为准
	ResolveFolder(ctx context.Context, name string) (*RemoteFolder, error)

	// ListChildren 列出文件夹下全部未进回收站的直接子文件
	// 实现必须跟随翻页游标取完，不能假设单页上限
	ListChildren(ctx context.Context, folderID string) ([]RemoteFile, error)

	// Upload 将一个本地文件按原名流式上传到指定文件夹，返回云端文件 ID
	Upload(ctx context.Context, folderID string, file LocalFile) (string, error)
}

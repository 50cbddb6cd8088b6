package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"barcodersync/internal/auth"
	"barcodersync/internal/fs"
)

const (
	// FolderMimeType Google Drive 文件夹的固定 MIME 类型
	FolderMimeType = "application/vnd.google-apps.folder"
	// listPageSize 单页条数，仅为减少往返；翻页逻辑不依赖这个值
	listPageSize = 1000
)

// Drive 实现了 fs.RemoteDrive 接口 (Google Drive v3)
type Drive struct {
	provider auth.Provider
	opts     []option.ClientOption // 测试时注入 endpoint / http client

	mu  sync.Mutex
	svc *drive.Service
}

// New 创建适配器实例
// Service 延迟到首次调用时初始化，凭据缺失会在第一个远端操作上暴露
func New(provider auth.Provider, opts ...option.ClientOption) *Drive {
	return &Drive{provider: provider, opts: opts}
}

// service 获取 (必要时初始化) Drive Service
func (d *Drive) service(ctx context.Context) (*drive.Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc != nil {
		return d.svc, nil
	}

	ts, err := d.provider.TokenSource(ctx)
	if err != nil {
		// 保留 auth.ErrNotAuthenticated，引擎据此中止
		return nil, err
	}

	clientOpts := append([]option.ClientOption{option.WithTokenSource(ts)}, d.opts...)
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("初始化 Drive 客户端失败: %w", err)
	}
	d.svc = svc
	return svc, nil
}

// ResolveFolder 按名称查找目标文件夹，不存在则在根目录创建
// 云端存在多个同名文件夹时以第一个为准 (与历史行为保持一致)
func (d *Drive) ResolveFolder(ctx context.Context, name string) (*fs.RemoteFolder, error) {
	svc, err := d.service(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), FolderMimeType)

	list, err := svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	if len(list.Files) > 0 {
		if len(list.Files) > 1 {
			slog.Warn("云端存在多个同名文件夹，使用第一个",
				"name", name, "count", len(list.Files))
		}
		first := list.Files[0]
		return &fs.RemoteFolder{ID: first.Id, Name: first.Name}, nil
	}

	created, err := svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}).Fields("id", "name").Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	slog.Info("已创建云端文件夹", "name", name, "id", created.Id)
	return &fs.RemoteFolder{ID: created.Id, Name: created.Name}, nil
}

// ListChildren 列出文件夹下全部未进回收站的直接子文件
// 必须跟随 nextPageToken 取完：清单不全会导致重复上传
func (d *Drive) ListChildren(ctx context.Context, folderID string) ([]fs.RemoteFile, error) {
	svc, err := d.service(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))

	var result []fs.RemoteFile
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(listPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Context(ctx).Do()
		if err != nil {
			return nil, classify(err)
		}

		for _, f := range page.Files {
			result = append(result, fs.RemoteFile{ID: f.Id, Name: f.Name})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return result, nil
}

// Upload 将一个本地文件按原名流式上传到指定文件夹
// Media 走分块传输，不会把整个文件读进内存
func (d *Drive) Upload(ctx context.Context, folderID string, file fs.LocalFile) (string, error) {
	svc, err := d.service(ctx)
	if err != nil {
		return "", err
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("打开本地文件失败 %s: %w", file.Path, err)
	}
	defer f.Close()

	created, err := svc.Files.Create(&drive.File{
		Name:    file.Name,
		Parents: []string{folderID},
	}).Media(f, googleapi.ContentType(file.MimeType)).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}

	return created.Id, nil
}

// escapeQuery 转义 Drive 查询语法中的单引号和反斜杠
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

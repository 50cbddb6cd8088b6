package local

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"barcodersync/internal/fs"
)

// 允许同步的扩展名 (不区分大小写)，其余文件对引擎不可见
var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
}

// Scanner 本地照片目录扫描器
type Scanner struct {
	rootDir string // 本地绝对路径根目录
}

// NewScanner 创建一个新的本地扫描器
func NewScanner(rootDir string) *Scanner {
	// 确保 rootDir 是绝对路径
	absDir, err := filepath.Abs(rootDir)
	if err != nil {
		absDir = rootDir
	}
	return &Scanner{rootDir: absDir}
}

// Root 返回根目录
func (s *Scanner) Root() string {
	return s.rootDir
}

// Scan 扫描目录，返回符合条件文件的一次性快照
// 目录不存在时创建空目录并返回空快照 (还没有照片可同步，不算错误)
// 其余 IO 故障包装为 fs.ErrLocalIO
func (s *Scanner) Scan(ctx context.Context) ([]fs.LocalFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(s.rootDir, 0755); mkErr != nil {
				return nil, fmt.Errorf("%w: 创建本地目录失败 %s: %v", fs.ErrLocalIO, s.rootDir, mkErr)
			}
			return []fs.LocalFile{}, nil
		}
		return nil, fmt.Errorf("%w: 读取本地目录失败 %s: %v", fs.ErrLocalIO, s.rootDir, err)
	}

	// os.ReadDir 已按文件名排序，这个顺序就是上传计划的顺序
	files := make([]fs.LocalFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !allowedExts[ext] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// 扫描和拍照进程并发，文件可能在两次系统调用之间消失
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: 读取文件信息失败 %s: %v", fs.ErrLocalIO, name, err)
		}

		files = append(files, fs.LocalFile{
			Name:     name,
			Path:     filepath.Join(s.rootDir, name),
			Size:     info.Size(),
			MimeType: mimeTypeByExt(ext),
		})
	}

	return files, nil
}

func mimeTypeByExt(ext string) string {
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "image/jpeg"
}

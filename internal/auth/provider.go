package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
)

// ErrNotAuthenticated 没有可用的有效凭据
// 授权流程在引擎之外完成，这里只负责报告"还没授权"
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider 提供一个已认证的凭据句柄
// 引擎把它当作不透明对象，凭据缺失/过期时快速失败
type Provider interface {
	// TokenSource 返回可自动续期的令牌源
	// 没有有效凭据时返回 ErrNotAuthenticated
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// FileProvider 从磁盘加载授权流程保存下来的 OAuth2 token 文件
// 刷新出的新 token 会写回同一文件，避免 refresh_token 轮换后失效
type FileProvider struct {
	conf      *oauth2.Config
	tokenFile string
	// 刷新请求绑定的长生命周期上下文
	// 不能用单次同步的 ctx：TokenSource 会被客户端长期持有，
	// 那个 ctx 结束后所有后续刷新都会直接失败
	baseCtx context.Context
}

// NewFileProvider 创建基于 token 文件的凭据提供者
func NewFileProvider(clientID, clientSecret, tokenFile string) *FileProvider {
	return &FileProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{drive.DriveFileScope},
		},
		tokenFile: tokenFile,
		baseCtx:   context.Background(),
	}
}

// TokenSource 加载 token 文件并包装为自动刷新的 TokenSource
// 入参 ctx 只约束本次加载，刷新走 baseCtx
func (p *FileProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(p.tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: token 文件不存在 %s", ErrNotAuthenticated, p.tokenFile)
		}
		return nil, fmt.Errorf("读取 token 文件失败: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: token 文件格式错误: %v", ErrNotAuthenticated, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token 文件内容为空", ErrNotAuthenticated)
	}

	return &persistingSource{
		src:  p.conf.TokenSource(p.baseCtx, &tok),
		path: p.tokenFile,
		last: &tok,
	}, nil
}

// persistingSource 在底层 TokenSource 刷新出新 token 时写回磁盘
type persistingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last *oauth2.Token
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	if tok.AccessToken != s.last.AccessToken {
		s.last = tok
		if err := s.save(tok); err != nil {
			// 持久化失败不影响本次同步，下次刷新还有机会
			slog.Warn("写回刷新后的 token 失败", "path", s.path, "err", err)
		}
	}
	return tok, nil
}

func (s *persistingSource) save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// StaticProvider 直接持有现成的 TokenSource，测试或嵌入场景使用
type StaticProvider struct {
	Source oauth2.TokenSource
}

func (p *StaticProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if p.Source == nil {
		return nil, ErrNotAuthenticated
	}
	return p.Source, nil
}

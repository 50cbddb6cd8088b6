package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcodersync/internal/auth"
	"barcodersync/internal/database"
	"barcodersync/internal/fs"
	"barcodersync/internal/fs/local"
	syncer "barcodersync/internal/sync"
)

// stubDrive 按注入的错误响应，成功时把上传记入内存
type stubDrive struct {
	resolveErr error
	children   []fs.RemoteFile
}

func (s *stubDrive) ResolveFolder(ctx context.Context, name string) (*fs.RemoteFolder, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return &fs.RemoteFolder{ID: "folder-1", Name: name}, nil
}

func (s *stubDrive) ListChildren(ctx context.Context, folderID string) ([]fs.RemoteFile, error) {
	return s.children, nil
}

func (s *stubDrive) Upload(ctx context.Context, folderID string, file fs.LocalFile) (string, error) {
	s.children = append(s.children, fs.RemoteFile{ID: "id-" + file.Name, Name: file.Name})
	return "id-" + file.Name, nil
}

func newTestServer(t *testing.T, remote fs.RemoteDrive) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	journal, err := database.NewJournal(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	scanner := local.NewScanner(dir)
	engine := syncer.NewEngine(&syncer.EngineOptions{
		Local:      scanner,
		Remote:     remote,
		FolderName: "BarcoderImages",
		Journal:    journal,
	})
	return New(":0", engine, journal, scanner), dir
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.srv.Handler.ServeHTTP(w, req)
	return w
}

func TestSyncEndpoint(t *testing.T) {
	s, dir := newTestServer(t, &stubDrive{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.jpg"), []byte("x"), 0644))

	w := doRequest(s, http.MethodPost, "/api/sync")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Result  struct {
			Uploaded int `json:"uploaded"`
			Skipped  int `json:"skipped"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Result.Uploaded)

	// 再触发一次：幂等，全部跳过
	w = doRequest(s, http.MethodPost, "/api/sync")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Result.Uploaded)
	assert.Equal(t, 1, body.Result.Skipped)
}

func TestSyncEndpointNotAuthenticated(t *testing.T) {
	s, _ := newTestServer(t, &stubDrive{
		resolveErr: fmt.Errorf("%w: no token", auth.ErrNotAuthenticated),
	})

	w := doRequest(s, http.MethodPost, "/api/sync")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSyncEndpointRemoteDown(t *testing.T) {
	s, _ := newTestServer(t, &stubDrive{
		resolveErr: fmt.Errorf("%w: dns", fs.ErrRemoteUnavailable),
	})

	w := doRequest(s, http.MethodPost, "/api/sync")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubDrive{})

	w := doRequest(s, http.MethodGet, "/api/sync/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Running bool            `json:"running"`
		Last    json.RawMessage `json:"last"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Running)
	assert.Equal(t, "null", string(body.Last))
}

func TestRunsEndpoint(t *testing.T) {
	s, dir := newTestServer(t, &stubDrive{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.jpg"), []byte("x"), 0644))

	require.Equal(t, http.StatusOK, doRequest(s, http.MethodPost, "/api/sync").Code)

	w := doRequest(s, http.MethodGet, "/api/sync/runs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs []database.SyncRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, 1, body.Runs[0].Uploaded)
}

func TestRunsEndpointClampsLimit(t *testing.T) {
	s, dir := newTestServer(t, &stubDrive{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.jpg"), []byte("x"), 0644))
	require.Equal(t, http.StatusOK, doRequest(s, http.MethodPost, "/api/sync").Code)

	// 离谱的 limit 不能逼出超大分配，照常返回存量
	w := doRequest(s, http.MethodGet, "/api/sync/runs?limit=999999999999")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs []database.SyncRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Runs, 1)
}

func TestImagesEndpoint(t *testing.T) {
	s, dir := newTestServer(t, &stubDrive{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.jpg"), []byte("abc"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.png"), []byte("x"), 0644))

	w := doRequest(s, http.MethodGet, "/api/images")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Images []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Images, 1)
	assert.Equal(t, "A.jpg", body.Images[0].Name)
	assert.Equal(t, int64(3), body.Images[0].Size)
}
